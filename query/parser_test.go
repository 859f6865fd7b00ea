package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleBarewordColumns(t *testing.T) {
	q, err := Parse([]string{"--in=orders.csv", `Order Date`, `Customer Name`, "first[5]"})
	require.NoError(t, err)
	assert.Equal(t, "orders.csv", q.InPath)
	assert.Equal(t, 5, q.FirstN)
	out := q.OutputColumns()
	require.Len(t, out, 2)
	assert.Equal(t, "Order Date", out[0].Name)
}

func TestDistinctDirective(t *testing.T) {
	q, err := Parse([]string{`name:customer name`, "--distinct"})
	require.NoError(t, err)
	assert.True(t, q.Distinct)
	out := q.OutputColumns()
	require.Len(t, out, 1)
	assert.Equal(t, "name", out[0].Name)
}

func TestSortWithNegation(t *testing.T) {
	q, err := Parse([]string{"Customer:Customer Name", "Orders:count[OrderID]", "sort[-Orders,Customer]", "top[10]"})
	require.NoError(t, err)
	require.Len(t, q.SortKeys, 2)
	assert.True(t, q.SortKeys[0].Descending)
	assert.False(t, q.SortKeys[1].Descending)
	assert.Equal(t, 10, q.TopN)
}

func TestDuplicateColumnNameFails(t *testing.T) {
	_, err := Parse([]string{"A:foo", "A:bar"})
	require.Error(t, err)
}

func TestUnknownFunctionSuggestion(t *testing.T) {
	_, err := Parse([]string{"suum[foo]"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum")
}

func TestJoinScopeReference(t *testing.T) {
	q, err := Parse([]string{"join[returns.csv]", "where[orderid==right::orderid]", "Reason:right::Reason"})
	require.NoError(t, err)
	assert.Equal(t, "returns.csv", q.JoinPath)
	require.Len(t, q.JoinRefs.All(), 2)
}
