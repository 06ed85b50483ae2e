package csvimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Batch is a parsed file. Rows holds every readable row in file order,
// Valid the subset that passed the schema.
type Batch struct {
	Header    []string
	Rows      []*Row
	Valid     []*Row
	TotalRows int
	Errors    *Collector
}

// Load reads the whole file and validates each row against schema.
// File-level problems (empty, no header, missing columns, too large) are
// returned as errors; row-level problems end up in Batch.Errors.
func Load(ctx context.Context, src io.Reader, schema *Schema, maxErrors int, opts ...Option) (*Batch, error) {
	reader, err := NewReader(src, opts...)
	if err != nil {
		return nil, err
	}
	if missing := reader.Missing(schema.RequiredColumns()); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	batch := &Batch{Header: reader.Header(), Errors: NewCollector(maxErrors)}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var rowErr RowError
		if errors.As(err, &rowErr) {
			batch.TotalRows++
			batch.Errors.Add(rowErr)
			continue
		}
		if err != nil {
			return nil, err
		}

		batch.TotalRows++
		batch.Rows = append(batch.Rows, row)
		if schema.Validate(row, batch.Errors) {
			batch.Valid = append(batch.Valid, row)
		}
	}

	if batch.TotalRows == 0 {
		return nil, ErrNoDataRows
	}
	return batch, nil
}

// Reject marks an already valid row as failed and drops it from Valid
func (b *Batch) Reject(err RowError) {
	b.Errors.Add(err)
	kept := b.Valid[:0]
	for _, row := range b.Valid {
		if row.Line != err.Row {
			kept = append(kept, row)
		}
	}
	b.Valid = kept
}
