package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowql/rowql"
	"github.com/rowql/rowql/operator"
)

type fakeCtx struct{}

func (fakeCtx) CurrentPath() string        { return "/a/b" }
func (fakeCtx) CurrentDepth() int          { return 2 }
func (fakeCtx) CurrentNodeNum() int        { return 5 }
func (fakeCtx) CurrentNodeName() string    { return "b" }
func (fakeCtx) IsNodeStart() bool          { return true }
func (fakeCtx) IsNodeEnd() bool            { return false }
func (fakeCtx) CurrentLineNum() int        { return 3 }
func (fakeCtx) CurrentRowNum() int         { return 1 }
func (fakeCtx) CurrentPivotPath() string   { return "" }
func (fakeCtx) Attribute(string) (string, bool) { return "", false }

func mustOp(t *testing.T, name string) operator.Meta {
	t.Helper()
	m, ok := operator.Lookup(name)
	require.True(t, ok)
	return m
}

func TestArithmeticIntegerPreservesType(t *testing.T) {
	add := NewOperator(mustOp(t, "+"), NewLiteral(rowql.NewInteger(2)), NewLiteral(rowql.NewInteger(3)))
	v, err := Eval(add, nil, fakeCtx{})
	require.NoError(t, err)
	assert.Equal(t, rowql.Integer, v.Type())
	assert.Equal(t, int64(5), v.AsInteger())
}

func TestArithmeticMixedIsReal(t *testing.T) {
	add := NewOperator(mustOp(t, "+"), NewLiteral(rowql.NewInteger(2)), NewLiteral(rowql.NewReal(0.5)))
	v, err := Eval(add, nil, fakeCtx{})
	require.NoError(t, err)
	assert.Equal(t, rowql.Real, v.Type())
	assert.Equal(t, 2.5, v.AsReal())
}

func TestConcatAlwaysString(t *testing.T) {
	cc := NewOperator(mustOp(t, "&"), NewLiteral(rowql.NewString("x=")), NewLiteral(rowql.NewInteger(5)))
	v, err := Eval(cc, nil, fakeCtx{})
	require.NoError(t, err)
	assert.Equal(t, "x=5", v.AsString())
}

func TestImmediateDepth(t *testing.T) {
	depth := NewOperator(mustOp(t, "depth"))
	v, err := Eval(depth, nil, fakeCtx{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.AsInteger())
}

func TestColumnRef(t *testing.T) {
	ref := NewColumnRef(1, rowql.String)
	row := Row{rowql.NewString("a"), rowql.NewString("b")}
	v, err := Eval(ref, row, fakeCtx{})
	require.NoError(t, err)
	assert.Equal(t, "b", v.AsString())
}

func TestVarAggFormula(t *testing.T) {
	a := NewAggregator(operator.AggVar)
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		a.Consume(rowql.NewReal(x))
	}
	v := a.Result()
	assert.InDelta(t, 4.571, v.AsReal(), 0.01)
}

func TestStdevIsSqrtOfVar(t *testing.T) {
	v := NewAggregator(operator.AggVar)
	s := NewAggregator(operator.AggStdev)
	for _, x := range []float64{1, 2, 3, 4} {
		v.Consume(rowql.NewReal(x))
		s.Consume(rowql.NewReal(x))
	}
	variance := v.Result().AsReal()
	stdev := s.Result().AsReal()
	assert.InDelta(t, variance, stdev*stdev, 1e-9)
}
