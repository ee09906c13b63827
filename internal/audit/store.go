package audit

import (
	"context"
	"time"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
	// ExportLimit caps the entries written by Logger.Export.
	ExportLimit = 10000
)

// Query selects audit entries. Zero fields do not filter.
type Query struct {
	Action    Action
	SchemaKey string
	Severity  Severity
	DatasetID string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// normalize applies the default and maximum limit.
func (q Query) normalize() Query {
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

func (q Query) matches(e Entry) bool {
	if q.Action != "" && e.Action != q.Action {
		return false
	}
	if q.SchemaKey != "" && e.SchemaKey != q.SchemaKey {
		return false
	}
	if q.Severity != "" && e.Severity != q.Severity {
		return false
	}
	if q.DatasetID != "" && e.DatasetID != q.DatasetID {
		return false
	}
	if !q.From.IsZero() && e.CreatedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !e.CreatedAt.Before(q.To) {
		return false
	}
	return true
}

// Store persists audit entries. List returns newest first.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	List(ctx context.Context, q Query) ([]Entry, error)
	Count(ctx context.Context, q Query) (int64, error)
	// Purge deletes entries created before cutoff, at most batchSize per
	// statement, and returns how many were removed.
	Purge(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}
