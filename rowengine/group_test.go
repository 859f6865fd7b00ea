package rowengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupMultipleAggregatesPerColumn(t *testing.T) {
	rows := runQuery(t, []string{
		"customer",
		"avg_amount:avg[amount]",
		"n:count[]",
	}, ordersDoc)
	require.Len(t, rows, 2)

	byCustomer := map[string][]string{}
	for _, r := range rows {
		strs := make([]string, len(r))
		for i, v := range r {
			strs[i] = v.AsString()
		}
		byCustomer[strs[0]] = strs
	}

	alice := byCustomer["Alice"]
	require.NotNil(t, alice)
	assert.Equal(t, "7.75", alice[1]) // avg(10.5, 5)
	assert.Equal(t, "2", alice[2])

	bob := byCustomer["Bob"]
	require.NotNil(t, bob)
	assert.Equal(t, "20.0", bob[1])
	assert.Equal(t, "1", bob[2])
}
