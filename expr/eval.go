package expr

import (
	"fmt"
	"math"
	"strings"

	"github.com/rowql/rowql"
	"github.com/rowql/rowql/operator"
)

// Row is the slot vector an Expr's KindColumnRef nodes index into.
type Row []rowql.Value

// ImmediateContext supplies the match-time facts that immediate-evaluate
// operators (path, depth, nodenum, nodename, nodestart, nodeend,
// attribute, linenum, pivotpath) read. The matcher and the row engine's
// per-pass wrapper both implement it.
type ImmediateContext interface {
	CurrentPath() string
	CurrentDepth() int
	CurrentNodeNum() int
	CurrentNodeName() string
	IsNodeStart() bool
	IsNodeEnd() bool
	CurrentLineNum() int
	CurrentRowNum() int
	CurrentPivotPath() string
	Attribute(name string) (string, bool)
}

// Eval evaluates e against row and ic. Aggregates are read as their
// current accumulated result (callers update aggregate state separately
// via the rowengine package during the main pass).
func Eval(e *Expr, row Row, ic ImmediateContext) (rowql.Value, error) {
	switch e.Kind {
	case KindLiteral:
		return e.Literal, nil
	case KindColumnRef:
		if e.ColumnSlot < 0 || e.ColumnSlot >= len(row) {
			return rowql.UnknownValue, fmt.Errorf("expr: column slot %d out of range", e.ColumnSlot)
		}
		return row[e.ColumnSlot], nil
	case KindPathRef:
		return e.PathRef.Value(), nil
	case KindOperator:
		return evalOperator(e, row, ic)
	default:
		return rowql.UnknownValue, fmt.Errorf("expr: unknown node kind %d", e.Kind)
	}
}

func evalChildren(e *Expr, row Row, ic ImmediateContext) ([]rowql.Value, error) {
	vals := make([]rowql.Value, len(e.Children))
	for i, c := range e.Children {
		v, err := Eval(c, row, ic)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func evalOperator(e *Expr, row Row, ic ImmediateContext) (rowql.Value, error) {
	if e.Op.Flags.Has(operator.FlagImmediate) {
		return evalImmediate(e, ic)
	}
	if e.Op.Flags.Has(operator.FlagAggregate) {
		return e.cached, nil // aggregate state projection happens in rowengine
	}
	args, err := evalChildren(e, row, ic)
	if err != nil {
		return rowql.UnknownValue, err
	}
	switch e.Op.Opcode {
	case operator.OpAdd:
		if args[0].Type() == rowql.Integer && args[1].Type() == rowql.Integer {
			return rowql.NewInteger(args[0].AsInteger() + args[1].AsInteger()), nil
		}
		return rowql.NewReal(args[0].AsReal() + args[1].AsReal()), nil
	case operator.OpSub:
		if len(args) == 1 {
			if args[0].Type() == rowql.Integer {
				return rowql.NewInteger(-args[0].AsInteger()), nil
			}
			return rowql.NewReal(-args[0].AsReal()), nil
		}
		if args[0].Type() == rowql.Integer && args[1].Type() == rowql.Integer {
			return rowql.NewInteger(args[0].AsInteger() - args[1].AsInteger()), nil
		}
		return rowql.NewReal(args[0].AsReal() - args[1].AsReal()), nil
	case operator.OpMul:
		if args[0].Type() == rowql.Integer && args[1].Type() == rowql.Integer {
			return rowql.NewInteger(args[0].AsInteger() * args[1].AsInteger()), nil
		}
		return rowql.NewReal(args[0].AsReal() * args[1].AsReal()), nil
	case operator.OpDiv:
		if args[0].Type() == rowql.Integer && args[1].Type() == rowql.Integer {
			return rowql.NewInteger(rowql.DivInteger(args[0].AsInteger(), args[1].AsInteger())), nil
		}
		return rowql.NewReal(rowql.DivReal(args[0].AsReal(), args[1].AsReal())), nil
	case operator.OpMod:
		return rowql.NewInteger(rowql.ModInteger(args[0].AsInteger(), args[1].AsInteger())), nil
	case operator.OpPow:
		return rowql.NewReal(math.Pow(args[0].AsReal(), args[1].AsReal())), nil

	case operator.OpEq:
		return rowql.NewBoolean(args[0].Compare(args[1]) == 0), nil
	case operator.OpNe:
		return rowql.NewBoolean(args[0].Compare(args[1]) != 0), nil
	case operator.OpLt:
		return rowql.NewBoolean(args[0].Compare(args[1]) < 0), nil
	case operator.OpLe:
		return rowql.NewBoolean(args[0].Compare(args[1]) <= 0), nil
	case operator.OpGt:
		return rowql.NewBoolean(args[0].Compare(args[1]) > 0), nil
	case operator.OpGe:
		return rowql.NewBoolean(args[0].Compare(args[1]) >= 0), nil

	case operator.OpAnd:
		return rowql.NewBoolean(args[0].AsBoolean() && args[1].AsBoolean()), nil
	case operator.OpOr:
		return rowql.NewBoolean(args[0].AsBoolean() || args[1].AsBoolean()), nil
	case operator.OpXor:
		return rowql.NewBoolean(args[0].AsBoolean() != args[1].AsBoolean()), nil
	case operator.OpNot:
		return rowql.NewBoolean(!args[0].AsBoolean()), nil

	case operator.OpConcat:
		var sb strings.Builder
		for _, a := range args {
			sb.WriteString(a.AsString())
		}
		return rowql.NewString(sb.String()), nil
	case operator.OpLen:
		return rowql.NewInteger(int64(len(args[0].AsString()))), nil
	case operator.OpLeft:
		s := args[0].AsString()
		n := int(args[1].AsInteger())
		if n < 0 {
			n = 0
		}
		if n > len(s) {
			n = len(s)
		}
		return rowql.NewString(s[:n]), nil
	case operator.OpRight:
		s := args[0].AsString()
		n := int(args[1].AsInteger())
		if n < 0 {
			n = 0
		}
		if n > len(s) {
			n = len(s)
		}
		return rowql.NewString(s[len(s)-n:]), nil
	case operator.OpUpper:
		return rowql.NewString(strings.ToUpper(args[0].AsString())), nil
	case operator.OpLower:
		return rowql.NewString(strings.ToLower(args[0].AsString())), nil
	case operator.OpContains:
		return rowql.NewBoolean(strings.Contains(args[0].AsString(), args[1].AsString())), nil

	case operator.OpMin:
		if args[0].Compare(args[1]) <= 0 {
			return args[0], nil
		}
		return args[1], nil
	case operator.OpMax:
		if args[0].Compare(args[1]) >= 0 {
			return args[0], nil
		}
		return args[1], nil
	case operator.OpSqrt:
		return rowql.NewReal(math.Sqrt(args[0].AsReal())), nil
	case operator.OpAbs:
		return rowql.NewReal(math.Abs(args[0].AsReal())), nil
	case operator.OpRound:
		d := 0
		if len(args) == 2 {
			d = int(args[1].AsInteger())
		}
		return rowql.NewReal(rowql.RoundAwayFromZero(args[0].AsReal(), d)), nil
	case operator.OpFloor:
		return rowql.NewReal(math.Floor(args[0].AsReal())), nil
	case operator.OpCeil:
		return rowql.NewReal(math.Ceil(args[0].AsReal())), nil
	case operator.OpLog:
		return rowql.NewReal(math.Log(args[0].AsReal())), nil
	case operator.OpExp:
		return rowql.NewReal(math.Exp(args[0].AsReal())), nil

	case operator.OpReal:
		return rowql.NewReal(args[0].AsReal()), nil
	case operator.OpInt:
		return rowql.NewInteger(args[0].AsInteger()), nil
	case operator.OpBool:
		return rowql.NewBoolean(args[0].AsBoolean()), nil
	case operator.OpStr:
		return rowql.NewString(args[0].AsString()), nil
	case operator.OpDateTime:
		if len(args) == 2 {
			return rowql.NewDateTime(rowql.DateTimeFromParts(args[0].AsString(), args[1].AsString())), nil
		}
		return rowql.NewDateTime(args[0].AsDateTime()), nil
	case operator.OpTypeOf:
		return rowql.NewString(args[0].Type().String()), nil
	case operator.OpRowNum:
		return rowql.NewInteger(int64(ic.CurrentRowNum())), nil

	default:
		return rowql.UnknownValue, fmt.Errorf("expr: operator %q not implemented in evaluator", e.Op.Name)
	}
}

func evalImmediate(e *Expr, ic ImmediateContext) (rowql.Value, error) {
	switch e.Op.Opcode {
	case operator.OpPath:
		return rowql.NewString(ic.CurrentPath()), nil
	case operator.OpDepth:
		return rowql.NewInteger(int64(ic.CurrentDepth())), nil
	case operator.OpNodeNum:
		return rowql.NewInteger(int64(ic.CurrentNodeNum())), nil
	case operator.OpNodeName:
		return rowql.NewString(ic.CurrentNodeName()), nil
	case operator.OpNodeStart:
		return rowql.NewBoolean(ic.IsNodeStart()), nil
	case operator.OpNodeEnd:
		return rowql.NewBoolean(ic.IsNodeEnd()), nil
	case operator.OpLineNum:
		return rowql.NewInteger(int64(ic.CurrentLineNum())), nil
	case operator.OpPivotPath:
		return rowql.NewString(ic.CurrentPivotPath()), nil
	case operator.OpAttribute:
		name := ""
		if len(e.UnquotedArgs) > 0 {
			name = e.UnquotedArgs[0]
		}
		if v, ok := ic.Attribute(name); ok {
			return rowql.NewString(v), nil
		}
		return rowql.NewString(""), nil
	default:
		return rowql.UnknownValue, fmt.Errorf("expr: immediate operator %q not implemented", e.Op.Name)
	}
}
