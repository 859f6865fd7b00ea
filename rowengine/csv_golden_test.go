package rowengine

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/require"

	"github.com/rowql/rowql"
	"github.com/rowql/rowql/csvout"
	"github.com/rowql/rowql/input"
	"github.com/rowql/rowql/query"
)

// assertEqualCSV fails t with a unified diff of want vs got, the way a
// large fixture-driven table test typically reports a mismatch, rather
// than dumping both full strings.
func assertEqualCSV(t *testing.T, want, got string) {
	t.Helper()
	if want == got {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		FromFile: "want",
		B:        difflib.SplitLines(got),
		ToFile:   "got",
		Context:  2,
	})
	require.NoError(t, err)
	t.Fatalf("csv output mismatch:\n%s", diff)
}

// runCSV drives args over doc end to end, through the same rowengine ->
// csvout path cmd/rowql uses, and returns the rendered CSV text.
func runCSV(t *testing.T, args []string, doc string) string {
	t.Helper()
	spec, err := query.Parse(args)
	require.NoError(t, err)

	drive, err := input.Open(strings.NewReader(doc), input.Options{})
	require.NoError(t, err)

	eng := New(spec)
	var buf bytes.Buffer
	w := csvout.New(&buf, 0)
	require.NoError(t, w.WriteHeader(csvout.ColumnNames(spec)))
	eng.Emit = func(row []rowql.Value) {
		require.NoError(t, w.WriteRow(row))
	}
	require.NoError(t, eng.Run(drive))
	require.NoError(t, w.Flush())
	return buf.String()
}

func TestCSVGoldenBasicColumns(t *testing.T) {
	got := runCSV(t, []string{"id", "customer", "amount"}, ordersDoc)
	want := "id,customer,amount\n1,Alice,10.5\n2,Bob,20\n3,Alice,5\n"
	assertEqualCSV(t, want, got)
}

func TestCSVGoldenGroupedSum(t *testing.T) {
	got := runCSV(t, []string{"customer", "total:sum[amount]"}, ordersDoc)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	require.Len(t, lines, 3)
	assertEqualCSV(t, "customer,total", lines[0])
	require.ElementsMatch(t, []string{"Alice,15.5", "Bob,20.0"}, lines[1:])
}
