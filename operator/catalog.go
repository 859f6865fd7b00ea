// Package operator holds the static registry of named operators: their
// arity, nominal result type, and the semantic flags that drive the parser
// and the expression evaluator.
package operator

import (
	"golang.org/x/text/cases"

	"github.com/rowql/rowql"
)

var foldCaser = cases.Fold()

// Opcode identifies an operator uniquely; the catalog is a closed tagged
// variant over these.
type Opcode int

const (
	OpInvalid Opcode = iota

	// arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpNeg

	// comparison
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// boolean
	OpAnd
	OpOr
	OpXor
	OpNot

	// string
	OpConcat
	OpLen
	OpLeft
	OpRight
	OpUpper
	OpLower
	OpContains

	// math
	OpMin
	OpMax
	OpSqrt
	OpAbs
	OpRound
	OpFloor
	OpCeil
	OpLog
	OpExp

	// typing
	OpReal
	OpInt
	OpBool
	OpStr
	OpDateTime
	OpTypeOf

	// immediate (match-time) functions
	OpPath
	OpDepth
	OpAttribute
	OpNodeNum
	OpNodeName
	OpNodeStart
	OpNodeEnd
	OpLineNum
	OpRowNum
	OpPivotPath

	// aggregates
	OpAny
	OpSum
	OpAvgAgg
	OpVar
	OpStdev
	OpCov
	OpCorr
	OpCount

	// directives
	OpIn
	OpJoin
	OpInHeader
	OpJoinHeader
	OpOutHeader
	OpRoot
	OpCase
	OpFirst
	OpTop
	OpDistinct
	OpSort
	OpPivot
	OpWhere
	OpSync
	OpHelp
)

// Flag is a bitset of semantic properties carried by an operator.
type Flag uint32

const (
	FlagDirective Flag = 1 << iota
	FlagAggregate
	FlagImmediate    // evaluated at match-event time, not during row evaluation
	FlagTopLevelOnly // only legal as the root of a column expression
	FlagOnceOnly     // may be used at most once per query
	FlagUnquotedArg  // first/second argument is a raw token, not a parsed expression
	FlagInfix        // binary infix operator, participates in precedence parsing
	FlagNoData       // path-ref arguments never need text content (directives)
)

func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// AggKind names the statistical accumulator an aggregate operator drives.
type AggKind int

const (
	AggNone AggKind = iota
	AggAny
	AggCount
	AggSum
	AggMin
	AggMax
	AggAvg
	AggStdev
	AggVar
	AggCov
	AggCorr
)

// Meta is the immutable metadata record for one operator.
type Meta struct {
	Name       string
	Opcode     Opcode
	MinArity   int
	MaxArity   int // -1 means unbounded
	ResultType rowql.Type
	Flags      Flag
	AggKind    AggKind
	// Precedence is meaningful only when Flags.Has(FlagInfix); higher
	// binds tighter.
	Precedence int
}

// catalog is keyed by every accepted spelling, including word synonyms
// (eq/ne/lt/le/gt/ge, and/or/xor/not).
var catalog = map[string]Meta{
	"+": {Name: "+", Opcode: OpAdd, MinArity: 2, MaxArity: 2, ResultType: rowql.Real, Flags: FlagInfix, Precedence: 4},
	"-": {Name: "-", Opcode: OpSub, MinArity: 1, MaxArity: 2, ResultType: rowql.Real, Flags: FlagInfix, Precedence: 4},
	"*": {Name: "*", Opcode: OpMul, MinArity: 2, MaxArity: 2, ResultType: rowql.Real, Flags: FlagInfix, Precedence: 5},
	"/": {Name: "/", Opcode: OpDiv, MinArity: 2, MaxArity: 2, ResultType: rowql.Real, Flags: FlagInfix, Precedence: 5},
	"%": {Name: "%", Opcode: OpMod, MinArity: 2, MaxArity: 2, ResultType: rowql.Integer, Flags: FlagInfix, Precedence: 5},
	"^": {Name: "^", Opcode: OpPow, MinArity: 2, MaxArity: 2, ResultType: rowql.Real, Flags: FlagInfix, Precedence: 6},

	"==": {Name: "==", Opcode: OpEq, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean, Flags: FlagInfix, Precedence: 2},
	"eq": {Name: "eq", Opcode: OpEq, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean},
	"!=": {Name: "!=", Opcode: OpNe, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean, Flags: FlagInfix, Precedence: 2},
	"ne": {Name: "ne", Opcode: OpNe, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean},
	"<":  {Name: "<", Opcode: OpLt, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean, Flags: FlagInfix, Precedence: 3},
	"lt": {Name: "lt", Opcode: OpLt, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean},
	"<=": {Name: "<=", Opcode: OpLe, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean, Flags: FlagInfix, Precedence: 3},
	"le": {Name: "le", Opcode: OpLe, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean},
	">":  {Name: ">", Opcode: OpGt, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean, Flags: FlagInfix, Precedence: 3},
	"gt": {Name: "gt", Opcode: OpGt, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean},
	">=": {Name: ">=", Opcode: OpGe, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean, Flags: FlagInfix, Precedence: 3},
	"ge": {Name: "ge", Opcode: OpGe, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean},

	"&&":  {Name: "&&", Opcode: OpAnd, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean, Flags: FlagInfix, Precedence: 1},
	"and": {Name: "and", Opcode: OpAnd, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean},
	"||":  {Name: "||", Opcode: OpOr, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean, Flags: FlagInfix, Precedence: 0},
	"or":  {Name: "or", Opcode: OpOr, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean},
	"xor": {Name: "xor", Opcode: OpXor, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean},
	"not": {Name: "not", Opcode: OpNot, MinArity: 1, MaxArity: 1, ResultType: rowql.Boolean},
	"!":   {Name: "!", Opcode: OpNot, MinArity: 1, MaxArity: 1, ResultType: rowql.Boolean},

	"&":        {Name: "&", Opcode: OpConcat, MinArity: 2, MaxArity: -1, ResultType: rowql.String, Flags: FlagInfix, Precedence: 4},
	"concat":   {Name: "concat", Opcode: OpConcat, MinArity: 1, MaxArity: -1, ResultType: rowql.String},
	"len":      {Name: "len", Opcode: OpLen, MinArity: 1, MaxArity: 1, ResultType: rowql.Integer},
	"left":     {Name: "left", Opcode: OpLeft, MinArity: 2, MaxArity: 2, ResultType: rowql.String},
	"right":    {Name: "right", Opcode: OpRight, MinArity: 2, MaxArity: 2, ResultType: rowql.String},
	"upper":    {Name: "upper", Opcode: OpUpper, MinArity: 1, MaxArity: 1, ResultType: rowql.String},
	"lower":    {Name: "lower", Opcode: OpLower, MinArity: 1, MaxArity: 1, ResultType: rowql.String},
	"contains": {Name: "contains", Opcode: OpContains, MinArity: 2, MaxArity: 2, ResultType: rowql.Boolean},

	"min":   {Name: "min", Opcode: OpMin, MinArity: 2, MaxArity: 2, ResultType: rowql.Real},
	"max":   {Name: "max", Opcode: OpMax, MinArity: 2, MaxArity: 2, ResultType: rowql.Real},
	"sqrt":  {Name: "sqrt", Opcode: OpSqrt, MinArity: 1, MaxArity: 1, ResultType: rowql.Real},
	"abs":   {Name: "abs", Opcode: OpAbs, MinArity: 1, MaxArity: 1, ResultType: rowql.Real},
	"round": {Name: "round", Opcode: OpRound, MinArity: 1, MaxArity: 2, ResultType: rowql.Real},
	"floor": {Name: "floor", Opcode: OpFloor, MinArity: 1, MaxArity: 1, ResultType: rowql.Real},
	"ceil":  {Name: "ceil", Opcode: OpCeil, MinArity: 1, MaxArity: 1, ResultType: rowql.Real},
	"log":   {Name: "log", Opcode: OpLog, MinArity: 1, MaxArity: 1, ResultType: rowql.Real},
	"exp":   {Name: "exp", Opcode: OpExp, MinArity: 1, MaxArity: 1, ResultType: rowql.Real},

	"real":     {Name: "real", Opcode: OpReal, MinArity: 1, MaxArity: 1, ResultType: rowql.Real},
	"int":      {Name: "int", Opcode: OpInt, MinArity: 1, MaxArity: 1, ResultType: rowql.Integer},
	"bool":     {Name: "bool", Opcode: OpBool, MinArity: 1, MaxArity: 1, ResultType: rowql.Boolean},
	"str":      {Name: "str", Opcode: OpStr, MinArity: 1, MaxArity: 1, ResultType: rowql.String},
	"datetime": {Name: "datetime", Opcode: OpDateTime, MinArity: 1, MaxArity: 2, ResultType: rowql.DateTimeType},
	"type":     {Name: "type", Opcode: OpTypeOf, MinArity: 1, MaxArity: 1, ResultType: rowql.String},

	"path":       {Name: "path", Opcode: OpPath, MinArity: 0, MaxArity: 0, ResultType: rowql.String, Flags: FlagImmediate},
	"depth":      {Name: "depth", Opcode: OpDepth, MinArity: 0, MaxArity: 0, ResultType: rowql.Integer, Flags: FlagImmediate},
	"attribute":  {Name: "attribute", Opcode: OpAttribute, MinArity: 1, MaxArity: 1, ResultType: rowql.String, Flags: FlagImmediate | FlagUnquotedArg},
	"nodenum":    {Name: "nodenum", Opcode: OpNodeNum, MinArity: 0, MaxArity: 0, ResultType: rowql.Integer, Flags: FlagImmediate},
	"nodename":   {Name: "nodename", Opcode: OpNodeName, MinArity: 0, MaxArity: 0, ResultType: rowql.String, Flags: FlagImmediate},
	"nodestart":  {Name: "nodestart", Opcode: OpNodeStart, MinArity: 0, MaxArity: 0, ResultType: rowql.Boolean, Flags: FlagImmediate},
	"nodeend":    {Name: "nodeend", Opcode: OpNodeEnd, MinArity: 0, MaxArity: 0, ResultType: rowql.Boolean, Flags: FlagImmediate},
	"linenum":    {Name: "linenum", Opcode: OpLineNum, MinArity: 0, MaxArity: 0, ResultType: rowql.Integer, Flags: FlagImmediate},
	"rownum":     {Name: "rownum", Opcode: OpRowNum, MinArity: 0, MaxArity: 0, ResultType: rowql.Integer},
	"pivotpath":  {Name: "pivotpath", Opcode: OpPivotPath, MinArity: 0, MaxArity: 0, ResultType: rowql.String, Flags: FlagImmediate},

	"any":   {Name: "any", Opcode: OpAny, MinArity: 1, MaxArity: 1, ResultType: rowql.Unknown, Flags: FlagAggregate, AggKind: AggAny},
	"sum":   {Name: "sum", Opcode: OpSum, MinArity: 1, MaxArity: 1, ResultType: rowql.Real, Flags: FlagAggregate, AggKind: AggSum},
	"avg":   {Name: "avg", Opcode: OpAvgAgg, MinArity: 1, MaxArity: 1, ResultType: rowql.Real, Flags: FlagAggregate, AggKind: AggAvg},
	"var":   {Name: "var", Opcode: OpVar, MinArity: 1, MaxArity: 1, ResultType: rowql.Real, Flags: FlagAggregate, AggKind: AggVar},
	"stdev": {Name: "stdev", Opcode: OpStdev, MinArity: 1, MaxArity: 1, ResultType: rowql.Real, Flags: FlagAggregate, AggKind: AggStdev},
	"cov":   {Name: "cov", Opcode: OpCov, MinArity: 2, MaxArity: 2, ResultType: rowql.Real, Flags: FlagAggregate, AggKind: AggCov},
	"corr":  {Name: "corr", Opcode: OpCorr, MinArity: 2, MaxArity: 2, ResultType: rowql.Real, Flags: FlagAggregate, AggKind: AggCorr},
	"count": {Name: "count", Opcode: OpCount, MinArity: 0, MaxArity: 1, ResultType: rowql.Integer, Flags: FlagAggregate, AggKind: AggCount},

	"in":          {Name: "in", Opcode: OpIn, MinArity: 1, MaxArity: 1, ResultType: rowql.Unknown, Flags: FlagDirective | FlagTopLevelOnly | FlagOnceOnly | FlagUnquotedArg | FlagNoData},
	"join":        {Name: "join", Opcode: OpJoin, MinArity: 1, MaxArity: 2, ResultType: rowql.Unknown, Flags: FlagDirective | FlagTopLevelOnly | FlagOnceOnly | FlagUnquotedArg | FlagNoData},
	"inheader":    {Name: "inheader", Opcode: OpInHeader, MinArity: 0, MaxArity: 1, ResultType: rowql.Unknown, Flags: FlagDirective | FlagTopLevelOnly | FlagOnceOnly | FlagNoData},
	"joinheader":  {Name: "joinheader", Opcode: OpJoinHeader, MinArity: 0, MaxArity: 1, ResultType: rowql.Unknown, Flags: FlagDirective | FlagTopLevelOnly | FlagOnceOnly | FlagNoData},
	"outheader":   {Name: "outheader", Opcode: OpOutHeader, MinArity: 0, MaxArity: 1, ResultType: rowql.Unknown, Flags: FlagDirective | FlagTopLevelOnly | FlagOnceOnly | FlagNoData},
	"root":        {Name: "root", Opcode: OpRoot, MinArity: 1, MaxArity: 1, ResultType: rowql.Unknown, Flags: FlagDirective | FlagTopLevelOnly | FlagOnceOnly | FlagNoData},
	"case":        {Name: "case", Opcode: OpCase, MinArity: 0, MaxArity: 1, ResultType: rowql.Unknown, Flags: FlagDirective | FlagTopLevelOnly | FlagOnceOnly | FlagNoData},
	"first":       {Name: "first", Opcode: OpFirst, MinArity: 1, MaxArity: 1, ResultType: rowql.Unknown, Flags: FlagDirective | FlagTopLevelOnly | FlagOnceOnly | FlagNoData},
	"top":         {Name: "top", Opcode: OpTop, MinArity: 1, MaxArity: 1, ResultType: rowql.Unknown, Flags: FlagDirective | FlagTopLevelOnly | FlagOnceOnly | FlagNoData},
	"distinct":    {Name: "distinct", Opcode: OpDistinct, MinArity: 0, MaxArity: 0, ResultType: rowql.Unknown, Flags: FlagDirective | FlagTopLevelOnly | FlagOnceOnly | FlagNoData},
	"sort":        {Name: "sort", Opcode: OpSort, MinArity: 1, MaxArity: -1, ResultType: rowql.Unknown, Flags: FlagDirective | FlagTopLevelOnly | FlagOnceOnly | FlagNoData},
	// pivot's names/values arguments are parsed expressions (typically
	// attribute[...] calls); only its optional trailing "jagged" flag
	// word is a raw token, handled as a special case in parseCallArgs
	// rather than via FlagUnquotedArg (which would swallow the whole
	// first argument as one token).
	"pivot":       {Name: "pivot", Opcode: OpPivot, MinArity: 2, MaxArity: 3, ResultType: rowql.Unknown, Flags: FlagDirective | FlagTopLevelOnly | FlagOnceOnly},
	"where":       {Name: "where", Opcode: OpWhere, MinArity: 1, MaxArity: 1, ResultType: rowql.Boolean, Flags: FlagDirective | FlagTopLevelOnly},
	"sync":        {Name: "sync", Opcode: OpSync, MinArity: 1, MaxArity: 1, ResultType: rowql.Unknown, Flags: FlagDirective | FlagTopLevelOnly | FlagUnquotedArg | FlagNoData},
	"help":        {Name: "help", Opcode: OpHelp, MinArity: 0, MaxArity: 0, ResultType: rowql.Unknown, Flags: FlagDirective | FlagTopLevelOnly | FlagOnceOnly | FlagNoData},
	"usage":       {Name: "usage", Opcode: OpHelp, MinArity: 0, MaxArity: 0, ResultType: rowql.Unknown, Flags: FlagDirective | FlagTopLevelOnly | FlagOnceOnly | FlagNoData},
}

// Lookup returns the metadata for name (case-insensitive), or ok=false.
func Lookup(name string) (Meta, bool) {
	m, ok := catalog[normalize(name)]
	return m, ok
}

func normalize(name string) string {
	return foldCaser.String(name)
}

// Names returns every catalog key, used by the Levenshtein-based
// "did you mean" suggestion on an unknown-function parse error.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	return names
}
