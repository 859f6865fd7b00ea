package rowql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueConversions(t *testing.T) {
	assert.Equal(t, int64(42), NewString("42").AsInteger())
	assert.Equal(t, 42.5, NewString("42.5").AsReal())
	assert.Equal(t, "3", formatReal(3.0001, 0))
	assert.Equal(t, "3.0", formatReal(3.0, 10))
	assert.Equal(t, "3.14", formatReal(3.14, 10))
}

func TestBooleanFromString(t *testing.T) {
	assert.True(t, NewString("yes").AsBoolean())
	assert.False(t, NewString("false").AsBoolean())
	assert.False(t, NewString("FALSE").AsBoolean())
	assert.False(t, NewString("0abc").AsBoolean())
	assert.False(t, NewString("").AsBoolean())
	assert.True(t, NewString("1abc").AsBoolean())
}

func TestTypeOrdering(t *testing.T) {
	s := NewString("z")
	r := NewReal(0)
	require.True(t, s.Compare(r) < 0)
	require.True(t, r.Compare(NewInteger(0)) < 0)
	require.True(t, NewInteger(0).Compare(NewBoolean(false)) < 0)
}

func TestDivModByZero(t *testing.T) {
	assert.Equal(t, int64(0), DivInteger(10, 0))
	assert.Equal(t, int64(-1), ModInteger(10, 0))
	assert.True(t, DivReal(1, 0) != DivReal(1, 0)) // NaN
}

func TestRoundAwayFromZero(t *testing.T) {
	assert.Equal(t, 1.23, RoundAwayFromZero(1.225, 2))
	assert.Equal(t, -1.23, RoundAwayFromZero(-1.225, 2))
}

func TestDateTimeTwoDigitYear(t *testing.T) {
	d := DateTimeFromString("07-10-23")
	require.False(t, d.Error)
	assert.Equal(t, 2007, d.Year)

	d2 := DateTimeFromString("75-01-01")
	require.False(t, d2.Error)
	assert.Equal(t, 1975, d2.Year)
}

func TestDateTimeErrorAlwaysUnequal(t *testing.T) {
	a := NewDateTime(DateTime{Error: true})
	b := NewDateTime(DateTime{Error: true})
	assert.False(t, a.Equal(b))
}
