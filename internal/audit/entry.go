// Package audit records user activity on datasets: uploads, exports and
// download requests. Entries go to Postgres when a database is configured and
// to memory otherwise.
package audit

import (
	"net"
	"net/netip"
	"time"
)

// Action is the kind of activity being audited.
type Action string

const (
	ActionUploadValidate  Action = "upload_validate"
	ActionDatasetExport   Action = "dataset_export"
	ActionDownloadRequest Action = "download_request"
	ActionDatasetEvict    Action = "dataset_evict"
)

// Severity ranks entries for review.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityFor returns the severity of an action.
func SeverityFor(action Action) Severity {
	switch action {
	case ActionDownloadRequest:
		return SeverityHigh
	case ActionDatasetEvict:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Entry is a single audit log entry.
type Entry struct {
	ID           string    `json:"id"`
	Action       Action    `json:"action"`
	Severity     Severity  `json:"severity"`
	SchemaKey    string    `json:"schemaKey,omitempty"`
	DatasetID    string    `json:"datasetId,omitempty"`
	ClientID     string    `json:"clientId,omitempty"`
	FileName     string    `json:"fileName,omitempty"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	UserAgent    string    `json:"userAgent,omitempty"`
	RowsAffected int       `json:"rowsAffected"`
	Detail       string    `json:"detail,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// parseIP strips a port if present. Returns nil when s is not an address.
func parseIP(s string) *netip.Addr {
	if s == "" {
		return nil
	}
	host := s
	if h, _, err := net.SplitHostPort(s); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	return &addr
}
