// Package csvio decodes uploaded CSV files into core records.
//
// Input bytes pass through three stages before parsing:
//
//   - a size limit, so oversized uploads fail early instead of filling memory
//   - character decoding (UTF-8 or Shift_JIS) with BOM detection
//   - encoding/csv with variable field counts, so short rows become absent cells
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/adparams/internal/core"
)

var (
	ErrEmptyFile    = errors.New("empty file")
	ErrFileTooLarge = errors.New("file too large")
)

// Encoding names a supported input character set.
type Encoding string

const (
	UTF8     Encoding = "utf-8"
	ShiftJIS Encoding = "shift_jis"
)

// ParseEncoding accepts the common spellings of the supported encodings.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return UTF8, nil
	case "shift_jis", "shift-jis", "sjis", "cp932":
		return ShiftJIS, nil
	}
	return "", fmt.Errorf("encoding error: unsupported encoding %q", name)
}

func (e Encoding) decoder() *encoding.Decoder {
	if e == ShiftJIS {
		return japanese.ShiftJIS.NewDecoder()
	}
	return unicode.UTF8.NewDecoder()
}

// NewDecodingReader returns a reader that yields UTF-8 text from r.
// A leading BOM always wins over enc and is stripped. Invalid UTF-8 input is
// replaced with U+FFFD rather than rejected.
func NewDecodingReader(r io.Reader, enc Encoding) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(enc.decoder()))
}

// Options controls ReadRecords.
type Options struct {
	Encoding Encoding
	// MaxBytes caps the raw input size. Zero means no limit.
	MaxBytes int64
}

// Result is a parsed upload.
type Result struct {
	Header  []string
	Records []core.Record
	// Lines holds the 1-based file line each record starts on, parallel to
	// Records. Blank rows and quoted line breaks make it differ from the index.
	Lines []int
	// BlankRows counts data rows skipped because every cell was blank.
	BlankRows int
	// BytesRead is the raw (pre-decoding) size of the input.
	BytesRead int64
}

// ReadRecords parses r into records keyed by the header row.
// Parser failures are returned wrapped as "invalid csv" so callers can turn
// them into a CsvParseError report.
func ReadRecords(r io.Reader, opts Options) (*Result, error) {
	counter := &countingReader{reader: r, limit: opts.MaxBytes}

	cr := csv.NewReader(NewDecodingReader(counter, opts.Encoding))
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, wrapReadError(err)
	}
	for i := range header {
		header[i] = cleanHeaderCell(header[i])
	}

	result := &Result{Header: header}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapReadError(err)
		}
		if isBlankRow(row) {
			result.BlankRows++
			continue
		}
		line, _ := cr.FieldPos(0)
		result.Records = append(result.Records, core.RecordFromRow(header, row))
		result.Lines = append(result.Lines, line)
	}
	result.BytesRead = counter.n

	return result, nil
}

func wrapReadError(err error) error {
	if errors.Is(err, ErrFileTooLarge) {
		return err
	}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return fmt.Errorf("invalid csv: %w", err)
	}
	return fmt.Errorf("read upload: %w", err)
}

// IsParseError reports whether err came from the CSV parser rather than
// from reading or decoding the input.
func IsParseError(err error) bool {
	var pe *csv.ParseError
	return errors.As(err, &pe)
}

// cleanHeaderCell trims whitespace and stray quotes some spreadsheet exports
// leave around header names.
func cleanHeaderCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// countingReader tracks raw bytes read and fails once limit is exceeded.
type countingReader struct {
	reader io.Reader
	limit  int64
	n      int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.n += int64(n)
	if c.limit > 0 && c.n > c.limit {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, c.limit)
	}
	return n, err
}
