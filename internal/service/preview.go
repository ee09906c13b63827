package service

import (
	"github.com/JonMunkholm/adparams/internal/core"
)

// Sample limits
const (
	maxPreviewRows  = 10
	maxErrorSamples = 20
	maxErrorsPerRow = 5
)

// Preview is what the upload page shows before the user starts filtering.
type Preview struct {
	Summary      PreviewSummary `json:"summary"`
	Rows         []core.Record  `json:"rows"`
	ErrorSamples []ErrorSample  `json:"errorSamples"`
}

// PreviewSummary contains the counts behind the preview.
type PreviewSummary struct {
	TotalRows  int                    `json:"totalRows"`
	BlankRows  int                    `json:"blankRows"`
	ErrorRows  int                    `json:"errorRows"`
	FileErrors int                    `json:"fileErrors"`
	ByKind     map[core.ErrorKind]int `json:"byKind"`
}

// ErrorSample is one record with the problems found in it. Errors carry no
// position of their own; LineNumber locates the record.
type ErrorSample struct {
	LineNumber int         `json:"lineNumber"`
	Values     core.Record `json:"values"`
	Errors     []string    `json:"errors"`
}

// buildPreview summarises records and report. lines holds the 1-based file
// line of each record, counting the header as line 1; when it does not cover
// a record the line is derived from the record index.
func buildPreview(records []core.Record, lines []int, blankRows int, report core.ValidationReport) Preview {
	p := Preview{
		Summary: PreviewSummary{
			TotalRows: len(records),
			BlankRows: blankRows,
			ByKind:    report.CountByKind(),
		},
		Rows:         make([]core.Record, 0, min(len(records), maxPreviewRows)),
		ErrorSamples: make([]ErrorSample, 0),
	}
	p.Rows = append(p.Rows, records[:min(len(records), maxPreviewRows)]...)

	byRow := make(map[int][]string)
	var order []int
	for _, e := range report.VisibleErrors() {
		if e.IsFileLevel() {
			p.Summary.FileErrors++
			continue
		}
		if _, seen := byRow[e.RowIndex]; !seen {
			order = append(order, e.RowIndex)
		}
		if len(byRow[e.RowIndex]) < maxErrorsPerRow {
			byRow[e.RowIndex] = append(byRow[e.RowIndex], e.Detail())
		}
	}
	p.Summary.ErrorRows = len(order)

	for _, idx := range order {
		if len(p.ErrorSamples) >= maxErrorSamples {
			break
		}
		sample := ErrorSample{LineNumber: idx + 2, Errors: byRow[idx]}
		if idx >= 0 && idx < len(lines) {
			sample.LineNumber = lines[idx]
		}
		if idx >= 0 && idx < len(records) {
			sample.Values = records[idx]
		}
		p.ErrorSamples = append(p.ErrorSamples, sample)
	}

	return p
}
