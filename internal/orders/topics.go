package orders

import "strconv"

const (
	TopicOrderPlaced      = "inventory.order.placed"
	TopicProductRestocked = "inventory.product.restock"
)

// Partition key = order or product id, so events for one entity stay ordered.
func PartitionKey(id int64) []byte { return []byte(strconv.FormatInt(id, 10)) }
