// Package csvimport reads and validates spreadsheet exports for bulk imports.
package csvimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	defaultMaxBytes = 4 << 20
	defaultMaxRows  = 5000
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Reader parses a CSV file with a header row into Rows keyed by column
type Reader struct {
	csv      *csv.Reader
	header   []string
	index    map[string]int
	line     int
	rows     int
	maxRows  int
	maxBytes int64
	comma    rune
}

// Option configures a Reader
type Option func(*Reader)

// WithDelimiter sets the field separator. Excel in many locales writes ';'.
func WithDelimiter(d rune) Option {
	return func(r *Reader) { r.comma = d }
}

// WithMaxRows caps the number of data rows
func WithMaxRows(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxRows = n
		}
	}
}

// WithMaxBytes caps the size of the input
func WithMaxBytes(n int64) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxBytes = n
		}
	}
}

// NewReader buffers src, normalizes its encoding and reads the header.
// Input that is not valid UTF-8 is decoded as Windows-1252, which is what
// spreadsheet tools on Windows export by default.
func NewReader(src io.Reader, opts ...Option) (*Reader, error) {
	r := &Reader{maxRows: defaultMaxRows, maxBytes: defaultMaxBytes, comma: ','}
	for _, opt := range opts {
		opt(r)
	}

	data, err := io.ReadAll(io.LimitReader(src, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, ErrFileTooLarge
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(data) {
		if data, err = charmap.Windows1252.NewDecoder().Bytes(data); err != nil {
			return nil, fmt.Errorf("decode csv: %w", err)
		}
	}

	r.csv = csv.NewReader(bytes.NewReader(data))
	r.csv.Comma = r.comma
	r.csv.LazyQuotes = true
	r.csv.TrimLeadingSpace = true
	r.csv.FieldsPerRecord = -1
	r.csv.ReuseRecord = false

	if err := r.readHeader(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) readHeader() error {
	record, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	r.line = 1

	r.header = make([]string, len(record))
	r.index = make(map[string]int, len(record))
	for i, name := range record {
		key := NormalizeColumn(name)
		r.header[i] = key
		if key == "" {
			continue
		}
		if _, dup := r.index[key]; !dup {
			r.index[key] = i
		}
	}
	if len(r.index) == 0 {
		return ErrMissingHeader
	}
	return nil
}

// NormalizeColumn lowercases a header and joins its words with underscores,
// so "Compare At Price" and "compare_at_price" name the same column.
func NormalizeColumn(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(name, "_", " "))), "_")
}

// Header returns the normalized column names in file order
func (r *Reader) Header() []string { return r.header }

// Has reports whether the file has the column
func (r *Reader) Has(column string) bool {
	_, ok := r.index[column]
	return ok
}

// Missing lists the columns of want that the file lacks
func (r *Reader) Missing(want []string) []string {
	var missing []string
	for _, col := range want {
		if !r.Has(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// Row is one data line
type Row struct {
	Line   int
	values map[string]string
}

// NewRow builds a row from column values, mostly for tests
func NewRow(line int, values map[string]string) *Row {
	return &Row{Line: line, values: values}
}

// Get returns the trimmed cell for a column, or "" if absent
func (r *Row) Get(column string) string { return r.values[column] }

// Blank reports whether every cell is empty
func (r *Row) Blank() bool {
	for _, v := range r.values {
		if v != "" {
			return false
		}
	}
	return true
}

// Next returns the next non-blank row or io.EOF. A malformed line is
// returned as a RowError so the caller can record it and keep going.
func (r *Reader) Next() (*Row, error) {
	for {
		record, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				r.line = parseErr.StartLine
				return nil, RowError{Row: parseErr.StartLine, Code: CodeMalformedRow, Message: parseErr.Err.Error()}
			}
			return nil, fmt.Errorf("read csv: %w", err)
		}
		r.line, _ = r.csv.FieldPos(0)

		row := &Row{Line: r.line, values: make(map[string]string, len(r.index))}
		for col, i := range r.index {
			if i < len(record) {
				row.values[col] = strings.TrimSpace(record[i])
			}
		}
		if row.Blank() {
			continue
		}

		r.rows++
		if r.rows > r.maxRows {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, r.maxRows)
		}
		return row, nil
	}
}

// Rows counts the data rows returned so far
func (r *Reader) Rows() int { return r.rows }
