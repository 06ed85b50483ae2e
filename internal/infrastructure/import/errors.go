package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Row error codes
const (
	CodeRequired      = "REQUIRED"
	CodeInvalidType   = "INVALID_TYPE"
	CodeInvalidLength = "INVALID_LENGTH"
	CodeOutOfRange    = "OUT_OF_RANGE"
	CodeInvalidFormat = "INVALID_FORMAT"
	CodeDuplicate     = "DUPLICATE_IN_FILE"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeMalformedRow  = "MALFORMED_ROW"
	CodeRejected      = "REJECTED"
)

var (
	ErrEmptyFile      = errors.New("CSV file is empty")
	ErrMissingHeader  = errors.New("CSV file has no header row")
	ErrNoDataRows     = errors.New("CSV file contains no data rows")
	ErrTooManyRows    = errors.New("CSV file has too many rows")
	ErrFileTooLarge   = errors.New("CSV file is too large")
	ErrMissingColumns = errors.New("CSV file is missing required columns")
)

// RowError describes a problem with one cell or row. Row is the 1-based
// line number in the file, so the header is row 1.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column %q: %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// Collector gathers row errors up to a limit. Rows keep being marked as
// failed after the limit so callers can still skip them.
type Collector struct {
	limit  int
	items  []RowError
	total  int
	failed map[int]bool
}

// NewCollector creates a collector that keeps at most limit errors
func NewCollector(limit int) *Collector {
	if limit <= 0 {
		limit = 100
	}
	return &Collector{limit: limit, failed: make(map[int]bool)}
}

// Add records an error against its row
func (c *Collector) Add(err RowError) {
	c.total++
	c.failed[err.Row] = true
	if len(c.items) < c.limit {
		c.items = append(c.items, err)
	}
}

// Addf records an error built from its parts
func (c *Collector) Addf(row int, column, code, format string, args ...any) {
	c.Add(RowError{Row: row, Column: column, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Items returns the kept errors, never nil
func (c *Collector) Items() []RowError {
	if c.items == nil {
		return []RowError{}
	}
	return c.items
}

// Total counts every error, including those past the limit
func (c *Collector) Total() int { return c.total }

// Truncated reports whether errors were dropped
func (c *Collector) Truncated() bool { return c.total > len(c.items) }

// Failed reports whether the row has at least one error
func (c *Collector) Failed(row int) bool { return c.failed[row] }

// FailedRows counts rows with at least one error
func (c *Collector) FailedRows() int { return len(c.failed) }

// String summarizes the errors by code, e.g. "REQUIRED=2, INVALID_TYPE=1"
func (c *Collector) String() string {
	if c.total == 0 {
		return "no errors"
	}
	counts := make(map[string]int)
	var order []string
	for _, e := range c.items {
		if counts[e.Code] == 0 {
			order = append(order, e.Code)
		}
		counts[e.Code]++
	}
	parts := make([]string, 0, len(order))
	for _, code := range order {
		parts = append(parts, fmt.Sprintf("%s=%d", code, counts[code]))
	}
	return strings.Join(parts, ", ")
}
