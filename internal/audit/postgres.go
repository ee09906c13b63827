package audit

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgxpool.Pool used by PGStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS audit_log (
	id            UUID PRIMARY KEY,
	action        TEXT NOT NULL,
	severity      TEXT NOT NULL,
	schema_key    TEXT,
	dataset_id    TEXT,
	client_id     TEXT,
	file_name     TEXT,
	ip_address    INET,
	user_agent    TEXT,
	rows_affected INTEGER NOT NULL DEFAULT 0,
	detail        TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS audit_log_created_at_idx ON audit_log (created_at DESC);
CREATE INDEX IF NOT EXISTS audit_log_action_idx ON audit_log (action);
`

const selectColumns = `id, action, severity, schema_key, dataset_id, client_id, file_name,
	ip_address, user_agent, rows_affected, detail, created_at`

// PGStore stores audit entries in the audit_log table.
type PGStore struct {
	db DBTX
}

// NewPGStore wraps db. Call EnsureSchema once before use.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{db: db}
}

// EnsureSchema creates the audit_log table and indexes if they are missing.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create audit_log: %w", err)
	}
	return nil
}

func (s *PGStore) Insert(ctx context.Context, e Entry) error {
	_, err := s.db.Exec(ctx, `INSERT INTO audit_log (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, string(e.Action), string(e.Severity),
		toPgText(e.SchemaKey), toPgText(e.DatasetID), toPgText(e.ClientID), toPgText(e.FileName),
		parseIP(e.IPAddress), toPgText(e.UserAgent), e.RowsAffected, toPgText(e.Detail), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PGStore) List(ctx context.Context, q Query) ([]Entry, error) {
	q = q.normalize()

	wb := buildWhere(q)
	whereClause, args := wb.Build()
	sql := `SELECT ` + selectColumns + ` FROM audit_log` + whereClause +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", wb.NextArgIndex(), wb.NextArgIndex()+1)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

func (s *PGStore) Count(ctx context.Context, q Query) (int64, error) {
	whereClause, args := buildWhere(q).Build()

	var n int64
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM audit_log"+whereClause, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}

// Purge deletes in batches so a large backlog does not hold one long lock.
func (s *PGStore) Purge(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 5000
	}

	var total int64
	for {
		tag, err := s.db.Exec(ctx, `DELETE FROM audit_log WHERE id IN (
			SELECT id FROM audit_log WHERE created_at < $1 LIMIT $2)`, cutoff, batchSize)
		if err != nil {
			return total, fmt.Errorf("purge audit entries: %w", err)
		}
		n := tag.RowsAffected()
		total += n
		if n < int64(batchSize) {
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

func scanEntry(rows pgx.Rows) (Entry, error) {
	var (
		id           pgtype.UUID
		action       string
		severity     string
		schemaKey    pgtype.Text
		datasetID    pgtype.Text
		clientID     pgtype.Text
		fileName     pgtype.Text
		ipAddress    *netip.Addr
		userAgent    pgtype.Text
		rowsAffected int32
		detail       pgtype.Text
		createdAt    pgtype.Timestamptz
	)

	err := rows.Scan(
		&id, &action, &severity, &schemaKey, &datasetID, &clientID, &fileName,
		&ipAddress, &userAgent, &rowsAffected, &detail, &createdAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("scan audit entry: %w", err)
	}

	e := Entry{
		Action:       Action(action),
		Severity:     Severity(severity),
		SchemaKey:    schemaKey.String,
		DatasetID:    datasetID.String,
		ClientID:     clientID.String,
		FileName:     fileName.String,
		UserAgent:    userAgent.String,
		RowsAffected: int(rowsAffected),
		Detail:       detail.String,
		CreatedAt:    createdAt.Time,
	}
	if id.Valid {
		e.ID = uuid.UUID(id.Bytes).String()
	}
	if ipAddress != nil {
		e.IPAddress = ipAddress.String()
	}
	return e, nil
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func buildWhere(q Query) *whereBuilder {
	wb := &whereBuilder{}
	wb.Add("action", string(q.Action))
	wb.Add("schema_key", q.SchemaKey)
	wb.Add("severity", string(q.Severity))
	wb.Add("dataset_id", q.DatasetID)
	wb.AddTime("created_at", ">=", q.From)
	wb.AddTime("created_at", "<", q.To)
	return wb
}

// whereBuilder assembles a parameterized WHERE clause from optional conditions.
type whereBuilder struct {
	conds []string
	args  []any
}

// Add appends "column = $n" unless value is empty.
func (w *whereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	w.args = append(w.args, value)
	w.conds = append(w.conds, fmt.Sprintf("%s = $%d", column, len(w.args)))
}

// AddTime appends "column op $n" unless t is zero.
func (w *whereBuilder) AddTime(column, op string, t time.Time) {
	if t.IsZero() {
		return
	}
	w.args = append(w.args, t)
	w.conds = append(w.conds, fmt.Sprintf("%s %s $%d", column, op, len(w.args)))
}

// Build returns the clause (with a leading space, or empty) and its arguments.
func (w *whereBuilder) Build() (string, []any) {
	if len(w.conds) == 0 {
		return "", w.args
	}
	return " WHERE " + strings.Join(w.conds, " AND "), w.args
}

// NextArgIndex is the placeholder number for the next argument after Build.
func (w *whereBuilder) NextArgIndex() int {
	return len(w.args) + 1
}
