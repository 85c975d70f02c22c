package redisx

import "time"

const (
	// Report generation counter, bumped on every invalidation.
	KeyReportGen = "report:gen"

	// Cached /report payload: report:v1:{gen} -> JSON of orders.Report
	KeyReport = "report:v1:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLDedup = 48 * time.Hour
)
