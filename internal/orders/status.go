package orders

type Status string

const (
	StatusProcessing Status = "Processing"
	StatusCompleted  Status = "Completed"
)

// An aborted placement never persists, so there is no failed status.
var validNext = map[Status]map[Status]bool{
	StatusProcessing: {StatusCompleted: true},
	StatusCompleted:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
