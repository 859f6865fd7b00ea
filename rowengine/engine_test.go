package rowengine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowql/rowql"
	"github.com/rowql/rowql/input"
	"github.com/rowql/rowql/query"
)

// runQuery parses args, opens xmlDoc as an XML source, drives the engine
// to completion, and returns every emitted row.
func runQuery(t *testing.T, args []string, xmlDoc string) [][]rowql.Value {
	t.Helper()
	spec, err := query.Parse(args)
	require.NoError(t, err)

	drive, err := input.Open(strings.NewReader(xmlDoc), input.Options{})
	require.NoError(t, err)

	eng := New(spec)
	var rows [][]rowql.Value
	eng.Emit = func(row []rowql.Value) {
		cp := make([]rowql.Value, len(row))
		copy(cp, row)
		rows = append(rows, cp)
	}
	require.NoError(t, eng.Run(drive))
	return rows
}

const ordersDoc = `<orders>
<order><id>1</id><customer>Alice</customer><amount>10.5</amount></order>
<order><id>2</id><customer>Bob</customer><amount>20</amount></order>
<order><id>3</id><customer>Alice</customer><amount>5</amount></order>
</orders>`

func TestEngineBasicColumns(t *testing.T) {
	rows := runQuery(t, []string{"id", "customer", "amount"}, ordersDoc)
	require.Len(t, rows, 3)
	assert.Equal(t, "1", rows[0][0].AsString())
	assert.Equal(t, "Alice", rows[0][1].AsString())
	assert.Equal(t, "2", rows[1][0].AsString())
	assert.Equal(t, "Bob", rows[1][1].AsString())
}

func TestEngineWhereFilter(t *testing.T) {
	rows := runQuery(t, []string{"id", "customer", "where[customer==\"Alice\"]"}, ordersDoc)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0][0].AsString())
	assert.Equal(t, "3", rows[1][0].AsString())
}

func TestEngineFirstN(t *testing.T) {
	rows := runQuery(t, []string{"id", "first[2]"}, ordersDoc)
	require.Len(t, rows, 2)
}

// sort orders by the evaluated column's natural type; a bareword path
// column is always String-typed, so a numeric sort needs an explicit
// real[] cast, as it does here.
func TestEngineSortDescending(t *testing.T) {
	rows := runQuery(t, []string{"id", "amt:real[amount]", "sort[-amt]"}, ordersDoc)
	require.Len(t, rows, 3)
	assert.Equal(t, "2", rows[0][0].AsString())
	assert.Equal(t, "1", rows[1][0].AsString())
	assert.Equal(t, "3", rows[2][0].AsString())
}

func TestEngineTopN(t *testing.T) {
	rows := runQuery(t, []string{"id", "amt:real[amount]", "sort[-amt]", "top[1]"}, ordersDoc)
	require.Len(t, rows, 1)
	assert.Equal(t, "2", rows[0][0].AsString())
}

// with no sort/distinct/aggregate stage, storeOneCandidate emits rows
// straight through; top(n) still has to cap that streaming path.
func TestEngineTopNWithoutSortCapsStreamingOutput(t *testing.T) {
	rows := runQuery(t, []string{"id", "top[2]"}, ordersDoc)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0][0].AsString())
	assert.Equal(t, "2", rows[1][0].AsString())
}

func TestEngineDistinct(t *testing.T) {
	rows := runQuery(t, []string{"customer", "--distinct"}, ordersDoc)
	require.Len(t, rows, 2)
}

func TestEngineAggregateSum(t *testing.T) {
	rows := runQuery(t, []string{"customer", "total:sum[amount]"}, ordersDoc)
	require.Len(t, rows, 2)
	total := map[string]string{}
	for _, r := range rows {
		total[r[0].AsString()] = r[1].AsString()
	}
	assert.Equal(t, "15.5", total["Alice"])
	assert.Equal(t, "20.0", total["Bob"])
}

func TestEngineCountAggregate(t *testing.T) {
	rows := runQuery(t, []string{"customer", "n:count[]"}, ordersDoc)
	require.Len(t, rows, 2)
	for _, r := range rows {
		if r[0].AsString() == "Alice" {
			assert.Equal(t, "2", r[1].AsString())
		}
	}
}
