// Package audit implements the daily queue usage audit: collect last-get
// and last-put timestamps from every manager in the directory and upsert
// them into a persistent store.
//
// The upsert is restart-safe: a manager restart clears the broker's
// in-memory timestamps, so blank values never overwrite previously recorded
// ones, and queues with all four timestamps blank are skipped entirely.
package audit

import (
	"context"
	"time"

	"github.com/vsundar/flowtrace/pkg/admin"
)

// Record is one queue's usage snapshot on one audit day.
// Timestamp fields are the broker's own date/time strings; blank means the
// broker had nothing recorded.
type Record struct {
	Manager     string
	Queue       string
	LastGetDate string
	LastGetTime string
	LastPutDate string
	LastPutTime string
	AuditedAt   time.Time
}

// AuditDay returns the day bucket the record belongs to, used as part of
// the store's conflict key.
func (r Record) AuditDay() string {
	return r.AuditedAt.Format("2006-01-02")
}

// Store persists audit records. One Upsert call carries all records for one
// manager's run; implementations must keep non-blank stored values when the
// incoming field is blank.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Close()
}

// buildRecords converts queue statuses into audit records, skipping queues
// whose four timestamps are all blank (manager restarted since last use).
func buildRecords(manager string, statuses []admin.QueueStatus, auditedAt time.Time) []Record {
	var records []Record
	for _, st := range statuses {
		if st.LastGetDate == "" && st.LastGetTime == "" && st.LastPutDate == "" && st.LastPutTime == "" {
			continue
		}
		records = append(records, Record{
			Manager:     manager,
			Queue:       st.Queue,
			LastGetDate: st.LastGetDate,
			LastGetTime: st.LastGetTime,
			LastPutDate: st.LastPutDate,
			LastPutTime: st.LastPutTime,
			AuditedAt:   auditedAt,
		})
	}
	return records
}
