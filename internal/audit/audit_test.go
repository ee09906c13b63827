package audit

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedLogger(store Store, now time.Time) *Logger {
	l := NewLogger(store)
	l.now = func() time.Time { return now }
	return l
}

func TestLogger_LogFillsMetadata(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	l := fixedLogger(store, now)

	ctx := ContextWithRequest(context.Background(), "10.0.0.1:5555", "curl/8")
	e, err := l.Log(ctx, Entry{Action: ActionDownloadRequest, DatasetID: "d1"})
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, SeverityHigh, e.Severity)
	assert.Equal(t, now, e.CreatedAt)
	assert.Equal(t, "10.0.0.1:5555", e.IPAddress)
	assert.Equal(t, "curl/8", e.UserAgent)

	n, err := store.Count(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, SeverityMedium, SeverityFor(ActionUploadValidate))
	assert.Equal(t, SeverityMedium, SeverityFor(ActionDatasetExport))
	assert.Equal(t, SeverityHigh, SeverityFor(ActionDownloadRequest))
	assert.Equal(t, SeverityLow, SeverityFor(ActionDatasetEvict))
}

func seed(t *testing.T, store Store, base time.Time) {
	t.Helper()
	ctx := context.Background()
	actions := []Action{ActionUploadValidate, ActionDatasetExport, ActionUploadValidate, ActionDownloadRequest}
	for i, a := range actions {
		require.NoError(t, store.Insert(ctx, Entry{
			ID:        string(rune('a' + i)),
			Action:    a,
			Severity:  SeverityFor(a),
			SchemaKey: "parameters",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
}

func TestLogger_List(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	seed(t, store, base)
	l := NewLogger(store)

	page, err := l.List(context.Background(), Query{Action: ActionUploadValidate})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalCount)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "c", page.Entries[0].ID, "newest first")
	assert.Equal(t, DefaultListLimit, page.Limit)

	page, err = l.List(context.Background(), Query{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.TotalCount)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "c", page.Entries[0].ID)

	page, err = l.List(context.Background(), Query{From: base.Add(time.Hour), To: base.Add(3 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalCount)

	page, err = l.List(context.Background(), Query{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
}

func TestLogger_Export(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	seed(t, store, base)
	l := NewLogger(store)

	var buf bytes.Buffer
	n, err := l.Export(context.Background(), Query{Action: ActionDatasetExport}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], `"ID","Timestamp","Action"`))
	assert.Equal(t, `"b","2025-05-01 01:00:00","dataset_export","medium","parameters","","","","","0",""`, lines[1])
}

func TestLogger_Purge(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, Entry{ID: "old", CreatedAt: now.AddDate(0, 0, -100)}))
	require.NoError(t, store.Insert(ctx, Entry{ID: "new", CreatedAt: now.AddDate(0, 0, -1)}))

	purged, err := fixedLogger(store, now).Purge(ctx, 90, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	left, err := store.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].ID)
}

func TestRunRetention_StopsWithContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewLogger(store).RunRetention(ctx, RetentionConfig{CheckInterval: time.Hour})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retention loop did not stop")
	}
}

func TestWhereBuilder(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	wb := buildWhere(Query{Action: ActionDatasetExport, Severity: SeverityMedium, From: from})

	clause, args := wb.Build()
	assert.Equal(t, " WHERE action = $1 AND severity = $2 AND created_at >= $3", clause)
	assert.Equal(t, []any{"dataset_export", "medium", from}, args)
	assert.Equal(t, 4, wb.NextArgIndex())

	clause, args = buildWhere(Query{}).Build()
	assert.Empty(t, clause)
	assert.Empty(t, args)
}

func TestParseIP(t *testing.T) {
	assert.Nil(t, parseIP(""))
	assert.Nil(t, parseIP("not-an-ip"))
	assert.Equal(t, "10.0.0.1", parseIP("10.0.0.1:443").String())
	assert.Equal(t, "::1", parseIP("::1").String())
}
