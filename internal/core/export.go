package core

// export.go projects a filtered subset of a dataset and serializes it as CSV.
//
// The output format is fixed: every field is quoted, embedded quotes are
// doubled, and rows are separated by a single "\n" with no trailing newline.
// encoding/csv only quotes fields that need it, so the writer is local.

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// exportTimestampLayout formats the timestamp in default export file names.
const exportTimestampLayout = "20060102_150405"

// Project returns the records that match filters and search, in original order.
func Project(records []Record, filters []ColumnFilter, search string) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if Matches(rec, filters, search) {
			out = append(out, rec)
		}
	}
	return out
}

// ExportCSV writes the filtered subset of records to w.
// The header is taken from the first record of the unfiltered dataset,
// so a filter that removes every row still yields the header line.
func ExportCSV(w io.Writer, records []Record, filters []ColumnFilter, search string) (int, error) {
	rows := Project(records, filters, search)
	if err := WriteCSVWithHeader(w, HeaderOf(records), rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// WriteCSV writes rows using the column order of the first row as header.
func WriteCSV(w io.Writer, rows []Record) error {
	return WriteCSVWithHeader(w, HeaderOf(rows), rows)
}

// WriteCSVWithHeader writes header and rows with every field quoted.
// Absent cells are written as empty strings and non-string cells with fmt.Sprint.
func WriteCSVWithHeader(w io.Writer, header []string, rows []Record) error {
	bw := bufio.NewWriter(w)

	writeLine(bw, header)
	for _, rec := range rows {
		fields := make([]string, len(header))
		for i, col := range header {
			fields[i] = cellString(rec, col)
		}
		bw.WriteByte('\n')
		writeLine(bw, fields)
	}

	return bw.Flush()
}

// writeLine writes one quoted CSV line without a terminator.
// Errors surface from the final Flush.
func writeLine(bw *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString(quoteField(f))
	}
}

func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func cellString(rec Record, col string) string {
	v, ok := rec.Get(col)
	if !ok || v == nil {
		return ""
	}
	if s, isText := v.(string); isText {
		return s
	}
	return fmt.Sprint(v)
}

// ExportFileName returns name, or csv_export_<YYYYMMDD_HHMMSS>.csv when name is blank.
func ExportFileName(name string, now time.Time) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return fmt.Sprintf("csv_export_%s.csv", now.Format(exportTimestampLayout))
}
