package audit

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/adparams/internal/core"
)

// Logger writes and queries audit entries through a Store.
type Logger struct {
	store Store
	now   func() time.Time
}

// NewLogger creates a logger backed by store.
func NewLogger(store Store) *Logger {
	return &Logger{store: store, now: time.Now}
}

// Log fills in the ID, severity, timestamp and request metadata of e and stores it.
func (l *Logger) Log(ctx context.Context, e Entry) (*Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Severity = SeverityFor(e.Action)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now().UTC()
	}
	if e.IPAddress == "" {
		e.IPAddress = IPAddressFromContext(ctx)
	}
	if e.UserAgent == "" {
		e.UserAgent = UserAgentFromContext(ctx)
	}

	if err := l.store.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("audit %s: %w", e.Action, err)
	}
	return &e, nil
}

// Page is one slice of a List result.
type Page struct {
	Entries    []Entry `json:"entries"`
	TotalCount int64   `json:"totalCount"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
}

// List returns the entries matching q, newest first, with the total match count.
func (l *Logger) List(ctx context.Context, q Query) (*Page, error) {
	q = q.normalize()

	total, err := l.store.Count(ctx, q)
	if err != nil {
		return nil, err
	}
	entries, err := l.store.List(ctx, q)
	if err != nil {
		return nil, err
	}

	return &Page{
		Entries:    entries,
		TotalCount: total,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}, nil
}

var exportHeader = []string{
	"ID", "Timestamp", "Action", "Severity", "Schema", "Dataset ID", "Client ID",
	"File Name", "IP Address", "Rows Affected", "Detail",
}

// Export writes up to ExportLimit matching entries to w as CSV and returns how many were written.
func (l *Logger) Export(ctx context.Context, q Query, w io.Writer) (int, error) {
	q.Offset = 0
	q.Limit = MaxListLimit

	var records []core.Record
	for len(records) < ExportLimit {
		entries, err := l.store.List(ctx, q)
		if err != nil {
			return 0, err
		}
		for _, e := range entries {
			records = append(records, entryRecord(e))
		}
		if len(entries) < q.Limit {
			break
		}
		q.Offset += q.Limit
	}
	if len(records) > ExportLimit {
		records = records[:ExportLimit]
	}

	if err := core.WriteCSVWithHeader(w, exportHeader, records); err != nil {
		return 0, fmt.Errorf("write audit export: %w", err)
	}
	return len(records), nil
}

func entryRecord(e Entry) core.Record {
	return core.NewRecord(
		core.Cell{Column: "ID", Value: e.ID},
		core.Cell{Column: "Timestamp", Value: e.CreatedAt.Format("2006-01-02 15:04:05")},
		core.Cell{Column: "Action", Value: string(e.Action)},
		core.Cell{Column: "Severity", Value: string(e.Severity)},
		core.Cell{Column: "Schema", Value: e.SchemaKey},
		core.Cell{Column: "Dataset ID", Value: e.DatasetID},
		core.Cell{Column: "Client ID", Value: e.ClientID},
		core.Cell{Column: "File Name", Value: e.FileName},
		core.Cell{Column: "IP Address", Value: e.IPAddress},
		core.Cell{Column: "Rows Affected", Value: strconv.Itoa(e.RowsAffected)},
		core.Cell{Column: "Detail", Value: e.Detail},
	)
}

// Purge removes entries older than retentionDays.
func (l *Logger) Purge(ctx context.Context, retentionDays, batchSize int) (int64, error) {
	cutoff := l.now().AddDate(0, 0, -retentionDays)
	return l.store.Purge(ctx, cutoff, batchSize)
}
