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

const mainOrdersDoc = `<orders>
<order><orderid>100</orderid><customer>Alice</customer></order>
<order><orderid>101</orderid><customer>Bob</customer></order>
<order><orderid>102</orderid><customer>Carol</customer></order>
</orders>`

const returnsDoc = `<returns>
<return><orderid>100</orderid><reason>defective</reason></return>
<return><orderid>102</orderid><reason>wrong size</reason></return>
</returns>`

func runJoinQuery(t *testing.T, args []string, mainDoc, joinDoc string) [][]rowql.Value {
	t.Helper()
	spec, err := query.Parse(args)
	require.NoError(t, err)

	eng := New(spec)

	if spec.JoinPath != "" {
		joinDrive, err := input.Open(strings.NewReader(joinDoc), input.Options{})
		require.NoError(t, err)
		require.NoError(t, eng.BuildJoinIndex(joinDrive))
	}

	mainDrive, err := input.Open(strings.NewReader(mainDoc), input.Options{})
	require.NoError(t, err)

	var rows [][]rowql.Value
	eng.Emit = func(row []rowql.Value) {
		cp := make([]rowql.Value, len(row))
		copy(cp, row)
		rows = append(rows, cp)
	}
	require.NoError(t, eng.Run(mainDrive))
	return rows
}

func TestJoinInnerMatchesOnly(t *testing.T) {
	rows := runJoinQuery(t, []string{
		"join[returns.xml]",
		"orderid", "customer",
		"reason:right::reason",
		"where[orderid==right::orderid]",
	}, mainOrdersDoc, returnsDoc)

	require.Len(t, rows, 2)
	got := map[string]string{}
	for _, r := range rows {
		got[r[0].AsString()] = r[2].AsString()
	}
	assert.Equal(t, "defective", got["100"])
	assert.Equal(t, "wrong size", got["102"])
}

func TestJoinOuterKeepsUnmatchedRows(t *testing.T) {
	rows := runJoinQuery(t, []string{
		"join[returns.xml,outer]",
		"orderid", "customer",
		"reason:right::reason",
		"where[orderid==right::orderid]",
	}, mainOrdersDoc, returnsDoc)

	require.Len(t, rows, 3)
	got := map[string]string{}
	for _, r := range rows {
		got[r[0].AsString()] = r[2].AsString()
	}
	assert.Equal(t, "defective", got["100"])
	assert.Equal(t, "", got["101"])
	assert.Equal(t, "wrong size", got["102"])
}
