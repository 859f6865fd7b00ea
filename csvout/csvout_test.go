package csvout

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowql/rowql"
	"github.com/rowql/rowql/query"
)

func buildTestSpec(t *testing.T) *query.QuerySpec {
	t.Helper()
	spec := query.NewQuerySpec()
	spec.Columns = append(spec.Columns, &query.Column{
		Name: "customer", Flags: query.ColOutput, Slot: 0,
	})
	return spec
}

func pivotColumn(name string) *query.Column {
	return &query.Column{Name: name, Flags: query.ColOutput | query.ColPivotResult, Slot: 1}
}

func TestWriteHeaderAndRow(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, 0)
	require.NoError(t, w.WriteHeader([]string{"id", "customer", "amount"}))
	require.NoError(t, w.WriteRow([]rowql.Value{
		rowql.NewInteger(1),
		rowql.NewString("Alice"),
		rowql.NewReal(10.5),
	}))
	require.NoError(t, w.Flush())
	assert.Equal(t, "id,customer,amount\n1,Alice,10.5\n", buf.String())
}

func TestWriteRowQuotesEmbeddedComma(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, 0)
	require.NoError(t, w.WriteRow([]rowql.Value{rowql.NewString("Doe, Jane")}))
	require.NoError(t, w.Flush())
	assert.Equal(t, "\"Doe, Jane\"\n", buf.String())
}

func TestWriteRowCustomDelimiter(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, '\t')
	require.NoError(t, w.WriteRow([]rowql.Value{rowql.NewString("a"), rowql.NewString("b")}))
	require.NoError(t, w.Flush())
	assert.Equal(t, "a\tb\n", buf.String())
}

func TestColumnNamesReflectsPivotAppends(t *testing.T) {
	spec := buildTestSpec(t)
	names := ColumnNames(spec)
	require.Len(t, names, 1)
	assert.Equal(t, "customer", names[0])

	// simulate rowengine's pivot column discovery appending a column
	// after the base spec was built.
	spec.Columns = append(spec.Columns, pivotColumn("region"))
	names = ColumnNames(spec)
	require.Len(t, names, 2)
	assert.Equal(t, "region", names[1])
}
