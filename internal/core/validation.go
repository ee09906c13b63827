package core

// validation.go checks parsed upload records against a column contract.
//
// Validation happens at three levels:
//  1. Schema: every required column must be in the header (first record's columns)
//  2. Cells: required-cell columns must be non-empty in every record
//  3. Cross-field: the CID prefix must equal the selected client's id
//
// Validate never fails. Every problem becomes a ValidationError in the report,
// and cell checks still run when the schema check fails so the caller always
// has the full list.

import (
	"fmt"
	"strings"
)

// DefaultCIDColumn is the composite identifier column checked against the client id.
const DefaultCIDColumn = "CID"

// ErrorKind identifies the kind of validation problem.
type ErrorKind string

const (
	MissingRequiredColumns  ErrorKind = "MissingRequiredColumns"
	EmptyCellNotAllowed     ErrorKind = "EmptyCellNotAllowed"
	CidDoesNotMatchClientID ErrorKind = "CidDoesNotMatchClientId"
	InvalidCidFormat        ErrorKind = "InvalidCidFormat"
	CsvParseError           ErrorKind = "CsvParseError"
)

// FileLevelRow is the RowIndex used for errors that are not tied to a record.
const FileLevelRow = -1

// ValidationError is a single problem found in an upload.
type ValidationError struct {
	RowIndex   int       `json:"rowIndex"`
	ColumnName string    `json:"columnName"`
	Kind       ErrorKind `json:"message"`
	Value      string    `json:"value,omitempty"`
	Expected   string    `json:"expected,omitempty"`
}

// Error prefixes row errors with the 1-based record number.
func (e ValidationError) Error() string {
	if e.IsFileLevel() {
		return e.Detail()
	}
	return fmt.Sprintf("row %d: %s", e.RowIndex+1, e.Detail())
}

// Detail describes the problem without its position.
func (e ValidationError) Detail() string {
	switch e.Kind {
	case MissingRequiredColumns:
		return fmt.Sprintf("missing required columns: %s", e.ColumnName)
	case EmptyCellNotAllowed:
		return fmt.Sprintf("required field %q is empty", e.ColumnName)
	case CidDoesNotMatchClientID:
		return fmt.Sprintf("cid %q does not match client id %q", e.Value, e.Expected)
	case InvalidCidFormat:
		return fmt.Sprintf("invalid cid format %q", e.Value)
	case CsvParseError:
		return fmt.Sprintf("invalid csv: %s", e.Value)
	}
	return string(e.Kind)
}

// IsFileLevel reports whether the error applies to the whole file.
func (e ValidationError) IsFileLevel() bool {
	return e.RowIndex == FileLevelRow
}

// ValidationReport is the outcome of validating one upload.
type ValidationReport struct {
	IsValid        bool              `json:"isValid"`
	Errors         []ValidationError `json:"errors"`
	HasSchemaError bool              `json:"hasSchemaError"`
}

// VisibleErrors returns what a presentation layer should show: only the
// schema errors when there are any, otherwise every error.
func (r ValidationReport) VisibleErrors() []ValidationError {
	if !r.HasSchemaError {
		return r.Errors
	}
	var out []ValidationError
	for _, e := range r.Errors {
		if e.Kind == MissingRequiredColumns {
			out = append(out, e)
		}
	}
	return out
}

// CountByKind tallies errors per kind.
func (r ValidationReport) CountByKind() map[ErrorKind]int {
	counts := make(map[ErrorKind]int)
	for _, e := range r.Errors {
		counts[e.Kind]++
	}
	return counts
}

// ValidationContract describes what an upload must contain.
type ValidationContract struct {
	RequiredColumns     []string
	RequiredCellColumns []string

	// ExternalEntityID is the selected client id. Empty skips the CID check.
	ExternalEntityID string

	// CIDColumn names the composite identifier column (default "CID").
	CIDColumn string
}

// Validate checks records against the contract and returns a report.
func Validate(records []Record, contract ValidationContract) ValidationReport {
	errs := make([]ValidationError, 0)
	hasSchemaError := false

	header := make(map[string]bool)
	if len(records) > 0 {
		for _, col := range records[0].columns {
			header[col] = true
		}
	}

	var missing []string
	for _, col := range contract.RequiredColumns {
		if !header[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		hasSchemaError = true
		errs = append(errs, ValidationError{
			RowIndex:   FileLevelRow,
			ColumnName: strings.Join(missing, ", "),
			Kind:       MissingRequiredColumns,
		})
	}

	cidColumn := contract.CIDColumn
	if cidColumn == "" {
		cidColumn = DefaultCIDColumn
	}
	checkCID := contract.ExternalEntityID != "" && header[cidColumn]

	for i, rec := range records {
		for _, col := range contract.RequiredCellColumns {
			if !header[col] {
				continue
			}
			if cellEmpty(rec, col) {
				errs = append(errs, ValidationError{
					RowIndex:   i,
					ColumnName: col,
					Kind:       EmptyCellNotAllowed,
				})
			}
		}

		if !checkCID {
			continue
		}
		cid, _ := rec.Text(cidColumn)
		if cid == "" {
			continue
		}
		prefix, _, _ := strings.Cut(cid, "-")
		switch {
		case prefix == "":
			errs = append(errs, ValidationError{
				RowIndex:   i,
				ColumnName: cidColumn,
				Kind:       InvalidCidFormat,
				Value:      cid,
			})
		case prefix != contract.ExternalEntityID:
			errs = append(errs, ValidationError{
				RowIndex:   i,
				ColumnName: cidColumn,
				Kind:       CidDoesNotMatchClientID,
				Value:      cid,
				Expected:   contract.ExternalEntityID,
			})
		}
	}

	return ValidationReport{
		IsValid:        len(errs) == 0,
		Errors:         errs,
		HasSchemaError: hasSchemaError,
	}
}

// cellEmpty reports whether a required cell is absent or blank.
// Non-string values count as present.
func cellEmpty(rec Record, col string) bool {
	v, ok := rec.Get(col)
	if !ok || v == nil {
		return true
	}
	s, isText := v.(string)
	return isText && s == ""
}

// ParseFailureReport wraps a CSV parser failure in the report shape.
func ParseFailureReport(err error) ValidationReport {
	msg := "unreadable file"
	if err != nil {
		msg = err.Error()
	}
	return ValidationReport{
		IsValid: false,
		Errors: []ValidationError{{
			RowIndex: FileLevelRow,
			Kind:     CsvParseError,
			Value:    msg,
		}},
	}
}

// MergeReports concatenates the errors of several reports and recomputes the flags.
func MergeReports(reports ...ValidationReport) ValidationReport {
	merged := ValidationReport{Errors: make([]ValidationError, 0)}
	for _, r := range reports {
		merged.Errors = append(merged.Errors, r.Errors...)
		merged.HasSchemaError = merged.HasSchemaError || r.HasSchemaError
	}
	merged.IsValid = len(merged.Errors) == 0
	return merged
}
