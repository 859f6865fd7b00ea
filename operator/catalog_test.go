package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCaseInsensitive(t *testing.T) {
	m, ok := Lookup("SUM")
	require.True(t, ok)
	assert.Equal(t, OpSum, m.Opcode)
	assert.True(t, m.Flags.Has(FlagAggregate))
}

func TestDirectivesAreTopLevelOnly(t *testing.T) {
	for _, name := range []string{"in", "join", "first", "top", "distinct", "sort", "pivot", "where", "sync"} {
		m, ok := Lookup(name)
		require.True(t, ok, name)
		assert.True(t, m.Flags.Has(FlagDirective), name)
		assert.True(t, m.Flags.Has(FlagTopLevelOnly), name)
	}
}

func TestAggregatesCarryKind(t *testing.T) {
	for name, kind := range map[string]AggKind{
		"sum": AggSum, "avg": AggAvg, "var": AggVar, "stdev": AggStdev,
		"cov": AggCov, "corr": AggCorr, "count": AggCount, "any": AggAny,
	} {
		m, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, kind, m.AggKind, name)
	}
}

func TestUnknownOperator(t *testing.T) {
	_, ok := Lookup("frobnicate")
	assert.False(t, ok)
}
