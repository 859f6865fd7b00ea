package cli

import (
	"fmt"
	"io"

	"github.com/kr/pretty"
	"github.com/kr/text"

	"github.com/rowql/rowql/query"
)

// WriteDebugAST pretty-prints the parsed, type-inferred expression forest
// of a query, one tree per column: kr/pretty renders the Go value
// structure, kr/text indents each column's block under a header line
// naming it.
func WriteDebugAST(w io.Writer, spec *query.QuerySpec) {
	for _, c := range spec.Columns {
		fmt.Fprintf(w, "column %q (slot %d):\n", c.Name, c.Slot)
		body := pretty.Sprint(c.Root)
		fmt.Fprint(w, text.Indent(body, "  "))
		fmt.Fprintln(w)
	}
}
