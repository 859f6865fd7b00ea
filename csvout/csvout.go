// Package csvout writes finished output rows as CSV: a header row naming
// every output (and, for a pivot query, every discovered pivot) column
// unless disabled, standard RFC 4180 quoting, and every scalar rendered
// through rowql.Value.AsString so Real/DateTime/Boolean formatting
// stays centralized in the value package.
package csvout

import (
	"encoding/csv"
	"io"

	"github.com/rowql/rowql"
	"github.com/rowql/rowql/query"
)

// Writer wraps a csv.Writer configured for the query's declared output
// header and column order.
type Writer struct {
	w         *csv.Writer
	headerOn  bool
	headerHit bool
}

// New builds a Writer over w, using delimiter as the field separator when
// it is non-zero. For a pivot query, the caller must resolve the
// final column set (including discovered pivot names) before the first
// call to WriteRow, since pivot column discovery only completes at the
// end of the main pass.
func New(w io.Writer, delimiter rune) *Writer {
	cw := csv.NewWriter(w)
	if delimiter != 0 {
		cw.Comma = delimiter
	}
	return &Writer{w: cw}
}

// WriteHeader emits names as the header row. Safe to skip entirely for
// outheader[false] queries.
func (w *Writer) WriteHeader(names []string) error {
	w.headerHit = true
	return w.w.Write(names)
}

// WriteRow renders one finished row's values as a CSV record.
func (w *Writer) WriteRow(values []rowql.Value) error {
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = v.AsString()
	}
	return w.w.Write(fields)
}

// Flush must be called once after the last WriteRow to push any
// buffered output through to the underlying writer.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// ColumnNames returns the header names for spec's output columns, in
// output order. A pivot query's synthesized pivot columns (appended to
// spec.Columns by rowengine once discovery finishes) are included
// automatically since OutputColumns walks the live column slice.
func ColumnNames(spec *query.QuerySpec) []string {
	cols := spec.OutputColumns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
