// Package service ties upload parsing, validation, filtering and payload
// building together around an in-memory dataset store.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/adparams/internal/audit"
	"github.com/JonMunkholm/adparams/internal/core"
	"github.com/JonMunkholm/adparams/internal/csvio"
	"github.com/JonMunkholm/adparams/internal/logging"
	"github.com/JonMunkholm/adparams/internal/observability"
	"github.com/JonMunkholm/adparams/internal/schema"
)

var (
	ErrNoAccounts     = errors.New("no account ids provided")
	ErrDatasetInvalid = errors.New("dataset has validation errors")
)

const (
	DefaultRowLimit    = 500
	MaxRowLimit        = 5000
	DefaultDatasetTTL  = 2 * time.Hour
	DefaultMaxDatasets = 100
)

// Config holds the service settings.
type Config struct {
	MaxConcurrent   int
	MaxWait         time.Duration
	MaxFileSize     int64
	DatasetTTL      time.Duration
	MaxDatasets     int
	Encoding        csvio.Encoding
	DefaultClientID string
}

// Service provides dataset operations for the HTTP layer.
type Service struct {
	cfg      Config
	limiter  *UploadLimiter
	datasets *datasetStore
	audit    *audit.Logger
	now      func() time.Time
}

// New creates a Service. A nil auditLog disables auditing.
func New(cfg Config, auditLog *audit.Logger) *Service {
	if cfg.DatasetTTL <= 0 {
		cfg.DatasetTTL = DefaultDatasetTTL
	}
	if cfg.MaxDatasets <= 0 {
		cfg.MaxDatasets = DefaultMaxDatasets
	}
	if cfg.Encoding == "" {
		cfg.Encoding = csvio.UTF8
	}
	return &Service{
		cfg:      cfg,
		limiter:  NewUploadLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		datasets: newDatasetStore(cfg.MaxDatasets),
		audit:    auditLog,
		now:      time.Now,
	}
}

// Limiter exposes the upload limiter for shutdown and status reporting.
func (s *Service) Limiter() *UploadLimiter { return s.limiter }

// Schemas returns the registered upload schemas.
func (s *Service) Schemas() []schema.UploadSchema { return schema.All() }

// Operators returns the filter operator enumeration.
func (s *Service) Operators() []core.OperatorOption { return core.Operators() }

// ============================================================================
// Upload
// ============================================================================

// UploadInput is one file submitted for validation.
type UploadInput struct {
	SchemaKey string
	ClientID  string
	FileName  string
	Body      io.Reader
	// Size is the declared size, checked before reading. Zero skips the check.
	Size int64
}

// UploadResult is returned after an upload is parsed and validated.
type UploadResult struct {
	DatasetID string                `json:"datasetId"`
	SchemaKey string                `json:"schemaKey"`
	ClientID  string                `json:"clientId"`
	FileName  string                `json:"fileName"`
	Header    []string              `json:"header"`
	RowCount  int                   `json:"rowCount"`
	Report    core.ValidationReport `json:"report"`
	Preview   Preview               `json:"preview"`
}

// UploadDataset parses and validates an upload and stores it as a dataset.
// The dataset is stored even when invalid so its errors can be shown; a file
// the CSV parser rejects becomes a dataset with no records and a single
// CsvParseError.
func (s *Service) UploadDataset(ctx context.Context, in UploadInput) (*UploadResult, error) {
	sch, err := schema.Lookup(in.SchemaKey)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxFileSize > 0 && in.Size > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", csvio.ErrFileTooLarge, in.Size, s.cfg.MaxFileSize)
	}

	clientID := strings.TrimSpace(in.ClientID)
	if clientID == "" {
		clientID = s.cfg.DefaultClientID
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	log := logging.WithFields(ctx, "schema", sch.Key, "file", in.FileName)
	start := time.Now()

	var (
		header  []string
		records []core.Record
		lines   []int
		blank   int
		report  core.ValidationReport
		outcome string
	)

	parsed, err := csvio.ReadRecords(in.Body, csvio.Options{Encoding: s.cfg.Encoding, MaxBytes: s.cfg.MaxFileSize})
	switch {
	case err == nil:
		header, records, lines, blank = parsed.Header, parsed.Records, parsed.Lines, parsed.BlankRows
		report = core.Validate(records, sch.Contract(clientID))
		outcome = "valid"
		if !report.IsValid {
			outcome = "invalid"
		}
	case csvio.IsParseError(err):
		report = core.ParseFailureReport(err)
		outcome = "parse_error"
	default:
		observability.UploadsTotal.WithLabelValues(sch.Key, "rejected").Inc()
		return nil, err
	}

	ds := &Dataset{
		ID:        uuid.NewString(),
		SchemaKey: sch.Key,
		ClientID:  clientID,
		FileName:  in.FileName,
		Header:    header,
		Records:   records,
		Report:    report,
		CreatedAt: s.now().UTC(),
	}
	evicted := s.datasets.put(ds, s.now())
	observability.DatasetsStored.Set(float64(s.datasets.len()))
	for _, old := range evicted {
		s.recordEviction(ctx, old, "capacity")
	}

	observability.UploadsTotal.WithLabelValues(sch.Key, outcome).Inc()
	observability.UploadRows.Observe(float64(len(records)))
	for kind, n := range report.CountByKind() {
		observability.ValidationErrors.WithLabelValues(string(kind)).Add(float64(n))
	}

	s.record(ctx, audit.Entry{
		Action:       audit.ActionUploadValidate,
		SchemaKey:    sch.Key,
		DatasetID:    ds.ID,
		ClientID:     clientID,
		FileName:     in.FileName,
		RowsAffected: len(records),
		Detail:       fmt.Sprintf("outcome=%s errors=%d", outcome, len(report.Errors)),
	})

	log.Info("upload validated",
		"dataset_id", ds.ID,
		"rows", len(records),
		"outcome", outcome,
		"errors", len(report.Errors),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &UploadResult{
		DatasetID: ds.ID,
		SchemaKey: sch.Key,
		ClientID:  clientID,
		FileName:  in.FileName,
		Header:    header,
		RowCount:  len(records),
		Report:    report,
		Preview:   buildPreview(records, lines, blank, report),
	}, nil
}

// ============================================================================
// Dataset queries
// ============================================================================

// DatasetSummary describes a stored dataset without its rows.
type DatasetSummary struct {
	ID        string                `json:"id"`
	SchemaKey string                `json:"schemaKey"`
	ClientID  string                `json:"clientId"`
	FileName  string                `json:"fileName"`
	Header    []string              `json:"header"`
	RowCount  int                   `json:"rowCount"`
	Report    core.ValidationReport `json:"report"`
	CreatedAt time.Time             `json:"createdAt"`
}

// Dataset returns the summary of a stored dataset.
func (s *Service) Dataset(id string) (*DatasetSummary, error) {
	ds, err := s.datasets.get(id, s.now())
	if err != nil {
		return nil, err
	}
	return &DatasetSummary{
		ID:        ds.ID,
		SchemaKey: ds.SchemaKey,
		ClientID:  ds.ClientID,
		FileName:  ds.FileName,
		Header:    ds.Header,
		RowCount:  len(ds.Records),
		Report:    ds.Report,
		CreatedAt: ds.CreatedAt,
	}, nil
}

// RowsQuery selects rows of a dataset.
type RowsQuery struct {
	Filters []core.ColumnFilter `json:"filters"`
	Search  string              `json:"search"`
	Limit   int                 `json:"limit"`
}

// RowsResult is a filtered view of a dataset.
type RowsResult struct {
	DatasetID string        `json:"datasetId"`
	Header    []string      `json:"header"`
	Total     int           `json:"total"`
	Matched   int           `json:"matched"`
	Rows      []core.Record `json:"rows"`
	Truncated bool          `json:"truncated"`
}

// QueryRows applies filters and search to a dataset and returns at most
// Limit matching rows in dataset order.
func (s *Service) QueryRows(ctx context.Context, id string, q RowsQuery) (*RowsResult, error) {
	if err := core.ValidateFilters(q.Filters); err != nil {
		return nil, err
	}
	ds, err := s.datasets.get(id, s.now())
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultRowLimit
	}
	if limit > MaxRowLimit {
		limit = MaxRowLimit
	}

	matched := core.Project(ds.Records, q.Filters, q.Search)
	rows := matched
	if len(rows) > limit {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []core.Record{}
	}

	logging.FromContext(ctx).Debug("dataset rows queried",
		"dataset_id", id,
		"filters", len(q.Filters),
		"matched", len(matched),
	)

	return &RowsResult{
		DatasetID: id,
		Header:    ds.Header,
		Total:     len(ds.Records),
		Matched:   len(matched),
		Rows:      rows,
		Truncated: len(matched) > len(rows),
	}, nil
}

// ExportInput selects what to export.
type ExportInput struct {
	Filters  []core.ColumnFilter `json:"filters"`
	Search   string              `json:"search"`
	FileName string              `json:"file_name"`
}

// ExportResult describes a written export.
type ExportResult struct {
	FileName string `json:"fileName"`
	Rows     int    `json:"rows"`
}

// Export writes the filtered dataset to w as quoted CSV.
func (s *Service) Export(ctx context.Context, id string, in ExportInput, w io.Writer) (*ExportResult, error) {
	if err := core.ValidateFilters(in.Filters); err != nil {
		return nil, err
	}
	ds, err := s.datasets.get(id, s.now())
	if err != nil {
		return nil, err
	}

	n, err := core.ExportCSV(w, ds.Records, in.Filters, in.Search)
	if err != nil {
		return nil, fmt.Errorf("export dataset %s: %w", id, err)
	}
	observability.ExportsTotal.Inc()

	name := core.ExportFileName(in.FileName, s.now())
	s.record(ctx, audit.Entry{
		Action:       audit.ActionDatasetExport,
		SchemaKey:    ds.SchemaKey,
		DatasetID:    ds.ID,
		ClientID:     ds.ClientID,
		FileName:     name,
		RowsAffected: n,
		Detail:       fmt.Sprintf("filters=%d search=%q", len(in.Filters), in.Search),
	})

	return &ExportResult{FileName: name, Rows: n}, nil
}

// ============================================================================
// Filters, layers and download requests
// ============================================================================

// NewFilter returns a fresh filter on column, or on the schema's default
// filter column when column is blank.
func (s *Service) NewFilter(schemaKey, column string) (core.ColumnFilter, error) {
	column = strings.TrimSpace(column)
	if column == "" {
		sch, err := schema.Lookup(schemaKey)
		if err != nil {
			return core.ColumnFilter{}, err
		}
		column = sch.DefaultFilterColumn
	}
	return core.NewFilter(column), nil
}

// ToggleLayer applies one layer click to a selection.
func (s *Service) ToggleLayer(sel core.Selection, layer core.DataLayer) core.Selection {
	return core.Toggle(sel, layer)
}

// DownloadInput is a request to build a download payload.
type DownloadInput struct {
	// DatasetID is optional. When set, the dataset must exist and be valid.
	DatasetID  string              `json:"dataset_id"`
	Filters    []core.ColumnFilter `json:"filters"`
	AccountIDs []string            `json:"account_ids"`
	Layers     []core.DataLayer    `json:"layers"`
}

// DownloadResult is the payload plus the filters it could not carry.
type DownloadResult struct {
	Request core.DownloadRequest `json:"request"`
	Dropped []core.ColumnFilter  `json:"dropped"`
}

// BuildDownloadRequest builds the external download payload. Filters on
// columns with no external mapping are left out, logged and counted.
func (s *Service) BuildDownloadRequest(ctx context.Context, in DownloadInput) (*DownloadResult, error) {
	accounts := cleanAccountIDs(in.AccountIDs)
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}
	if err := core.ValidateFilters(in.Filters); err != nil {
		return nil, err
	}
	layers := make([]core.DataLayer, 0, len(in.Layers))
	for _, l := range in.Layers {
		layer, err := core.ParseLayer(string(l))
		if err != nil {
			return nil, err
		}
		layers = append(layers, layer)
	}

	var ds *Dataset
	if in.DatasetID != "" {
		var err error
		if ds, err = s.datasets.get(in.DatasetID, s.now()); err != nil {
			return nil, err
		}
		if !ds.Report.IsValid {
			return nil, ErrDatasetInvalid
		}
	}

	sel := core.SelectionOf(layers...)
	req, dropped := core.BuildDownloadRequest(in.Filters, accounts, sel)

	if len(dropped) > 0 {
		cols := make([]string, len(dropped))
		for i, f := range dropped {
			cols[i] = f.Column
			observability.DroppedFilterRules.WithLabelValues(f.Column).Inc()
		}
		logging.WithFields(ctx, "dataset_id", in.DatasetID).Warn("filters without external column left out of download request",
			"columns", cols,
		)
	}
	observability.DownloadRequestsTotal.WithLabelValues(string(req.DownloadLevel)).Inc()

	entry := audit.Entry{
		Action:       audit.ActionDownloadRequest,
		DatasetID:    in.DatasetID,
		RowsAffected: len(accounts),
		Detail: fmt.Sprintf("level=%s rules=%d dropped=%d",
			req.DownloadLevel, len(req.FilterDetails.Rules), len(dropped)),
	}
	if ds != nil {
		entry.SchemaKey = ds.SchemaKey
		entry.ClientID = ds.ClientID
	}
	s.record(ctx, entry)

	return &DownloadResult{Request: req, Dropped: dropped}, nil
}

func cleanAccountIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// ============================================================================
// Housekeeping
// ============================================================================

// StartJanitor evicts datasets idle longer than the TTL every interval until
// ctx is done.
func (s *Service) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("dataset janitor stopped")
			return
		case <-ticker.C:
			s.EvictExpired(ctx)
		}
	}
}

// EvictExpired removes datasets idle longer than the TTL and returns how many
// were removed.
func (s *Service) EvictExpired(ctx context.Context) int {
	expired := s.datasets.expire(s.now().Add(-s.cfg.DatasetTTL))
	observability.DatasetsStored.Set(float64(s.datasets.len()))
	for _, ds := range expired {
		s.recordEviction(ctx, ds, "ttl")
	}
	if len(expired) > 0 {
		slog.Info("evicted idle datasets", "count", len(expired))
	}
	return len(expired)
}

// DeleteDataset drops a dataset before its TTL.
func (s *Service) DeleteDataset(ctx context.Context, id string) error {
	ds, err := s.datasets.get(id, s.now())
	if err != nil {
		return err
	}
	if s.datasets.remove(id) {
		observability.DatasetsStored.Set(float64(s.datasets.len()))
		s.recordEviction(ctx, ds, "deleted")
	}
	return nil
}

func (s *Service) recordEviction(ctx context.Context, ds *Dataset, reason string) {
	s.record(ctx, audit.Entry{
		Action:       audit.ActionDatasetEvict,
		SchemaKey:    ds.SchemaKey,
		DatasetID:    ds.ID,
		ClientID:     ds.ClientID,
		FileName:     ds.FileName,
		RowsAffected: len(ds.Records),
		Detail:       "reason=" + reason,
	})
}

// record stores an audit entry. Audit failures never fail the operation.
func (s *Service) record(ctx context.Context, e audit.Entry) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.Log(ctx, e); err != nil {
		observability.AuditFailures.Inc()
		logging.FromContext(ctx).Error("audit write failed", "action", e.Action, "error", err)
	}
}
