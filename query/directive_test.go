package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInDirectiveRejectsSecondUse(t *testing.T) {
	_, err := Parse([]string{"--in=orders.csv", "--in=other.csv", "customer"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "once")
}

func TestFirstDirectiveRejectsSecondUse(t *testing.T) {
	_, err := Parse([]string{"customer", "first[5]", "first[10]"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "once")
}

func TestTopLevelOnlyDirectiveRejectedWhenNested(t *testing.T) {
	_, err := Parse([]string{"amt:real[first[5]]"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top-level")
}

func TestPivotRequiresTwoArguments(t *testing.T) {
	_, err := Parse([]string{"pivot[name]"})
	require.Error(t, err)
}

func TestPivotJaggedFlagParsedAsThirdArgument(t *testing.T) {
	q, err := Parse([]string{"id", "pivot[name,value,jagged]"})
	require.NoError(t, err)
	require.NotNil(t, q.Pivot)
	assert.True(t, q.Pivot.Jagged)
}

func TestPivotWithoutJaggedDefaultsFalse(t *testing.T) {
	q, err := Parse([]string{"id", "pivot[name,value]"})
	require.NoError(t, err)
	require.NotNil(t, q.Pivot)
	assert.False(t, q.Pivot.Jagged)
}
