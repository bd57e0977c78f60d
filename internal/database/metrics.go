package database

import (
	"errors"
	"time"

	"chirp/internal/observability"

	"gorm.io/gorm"
)

const queryStartKey = "chirp:query_start"

// RegisterMetricsCallbacks times every GORM operation into the query latency histogram.
func RegisterMetricsCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("chirp:metrics_before_create", startQueryTimer),
		cb.Create().After("gorm:create").Register("chirp:metrics_after_create", observeQuery("create")),
		cb.Query().Before("gorm:query").Register("chirp:metrics_before_query", startQueryTimer),
		cb.Query().After("gorm:query").Register("chirp:metrics_after_query", observeQuery("query")),
		cb.Update().Before("gorm:update").Register("chirp:metrics_before_update", startQueryTimer),
		cb.Update().After("gorm:update").Register("chirp:metrics_after_update", observeQuery("update")),
		cb.Delete().Before("gorm:delete").Register("chirp:metrics_before_delete", startQueryTimer),
		cb.Delete().After("gorm:delete").Register("chirp:metrics_after_delete", observeQuery("delete")),
		cb.Row().Before("gorm:row").Register("chirp:metrics_before_row", startQueryTimer),
		cb.Row().After("gorm:row").Register("chirp:metrics_after_row", observeQuery("row")),
		cb.Raw().Before("gorm:raw").Register("chirp:metrics_before_raw", startQueryTimer),
		cb.Raw().After("gorm:raw").Register("chirp:metrics_after_raw", observeQuery("raw")),
	)
}

func startQueryTimer(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func observeQuery(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		observability.ObserveQuery(operation, table, start)
	}
}
