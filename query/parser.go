// Package query implements the expression-language parser: it turns the
// ordered argument-string list from the command line into a type-inferred
// QuerySpec bound to path references and columns.
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/rowql/rowql"
	"github.com/rowql/rowql/expr"
	"github.com/rowql/rowql/operator"
	"github.com/rowql/rowql/pathref"
)

// foldCaser applies Unicode case folding to column names and path atoms
// when a query doesn't request case[=true], since XML/JSON tag names
// aren't restricted to ASCII the way strings.ToLower assumes.
var foldCaser = cases.Fold()

func foldString(s string) string { return foldCaser.String(s) }

// Parser holds the cross-argument state the grammar needs: declared
// columns (for bareword resolution), the scope registries, and the
// in-progress QuerySpec.
type Parser struct {
	spec     *QuerySpec
	byName   map[string]*Column
	order    []string // declaration order, for forward-reference resolution
	curScope pathref.Scope
	aggCount int
	usedOnce map[operator.Opcode]bool

	// colRefs records every ColumnRef node created for a given column
	// key before that column's final slot is known, so assignSlots can
	// patch them once every column has been parsed.
	colRefs map[string][]*expr.Expr
}

func (p *Parser) nextAggIndex() int {
	idx := p.aggCount
	p.aggCount++
	return idx
}

func NewParser() *Parser {
	return &Parser{
		spec:     NewQuerySpec(),
		byName:   make(map[string]*Column),
		colRefs:  make(map[string][]*expr.Expr),
		usedOnce: make(map[operator.Opcode]bool),
	}
}

// Parse runs the full grammar over args (already @file-expanded by the
// caller) and returns the finished, post-processed QuerySpec.
func Parse(args []string) (*QuerySpec, error) {
	p := NewParser()
	for _, a := range args {
		if err := p.parseOneArgument(a); err != nil {
			return nil, err
		}
	}
	if err := p.postProcess(); err != nil {
		return nil, err
	}
	return p.spec, nil
}

// barewordPathRE matches an argument that is nothing but a dotted,
// space-tolerant tag path with no operators — the shape of quoted column
// headers like "Order Date" or "Customer Name" in the concrete examples.
var barewordPathRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_. ]*$`)

func (p *Parser) parseOneArgument(arg string) error {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil
	}

	names, rest, err := splitNameList(arg)
	if err != nil {
		return err
	}

	if barewordPathRE.MatchString(rest) && !isKnownDirectiveWord(rest) {
		return p.addBarewordColumn(names, rest)
	}

	l := newLexer(rest)
	ep := &exprParser{lex: l, parser: p}
	if err := ep.advance(); err != nil {
		return err
	}
	e, err := ep.parseExpr(0)
	if err != nil {
		return err
	}

	if e.Kind == expr.KindOperator && e.Op.Flags.Has(operator.FlagDirective) {
		return p.applyDirective(e)
	}
	return p.addExprColumn(names, e)
}

func isKnownDirectiveWord(s string) bool {
	m, ok := operator.Lookup(s)
	return ok && m.Flags.Has(operator.FlagDirective)
}

// splitNameList parses the optional "n1, n2, ...: " column-name-list
// prefix from the per-argument grammar.
func splitNameList(arg string) (names []string, rest string, err error) {
	colon := strings.IndexByte(arg, ':')
	if colon < 0 {
		return nil, arg, nil
	}
	// a bare "::" scope operator or a "a::b" column reference must not
	// be mistaken for a name-list separator.
	if colon+1 < len(arg) && arg[colon+1] == ':' {
		return nil, arg, nil
	}
	prefix := arg[:colon]
	if !isNameListCandidate(prefix) {
		return nil, arg, nil
	}
	for _, n := range strings.Split(prefix, ",") {
		names = append(names, strings.TrimSpace(n))
	}
	return names, strings.TrimSpace(arg[colon+1:]), nil
}

func isNameListCandidate(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || !identRE.MatchString(part) {
			return false
		}
	}
	return true
}

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (p *Parser) addBarewordColumn(names []string, pathSpec string) error {
	ref := p.spec.MainRefs.Resolve(pathSpec, pathref.Main)
	e := expr.NewPathRef(ref)
	return p.addExprColumn(names, e)
}

func (p *Parser) addExprColumn(names []string, e *expr.Expr) error {
	if e.Kind == expr.KindOperator && e.Op.Name == "..." {
		return errSpreadOutsidePivot()
	}
	if len(names) > 1 {
		return errMultiNameNonPivot()
	}
	name := defaultColumnName(e)
	if len(names) == 1 {
		name = names[0]
	}
	key := p.foldCase(name)
	if _, exists := p.byName[key]; exists {
		return errDuplicateColumn(name)
	}
	col := &Column{Name: name, Root: e, Flags: ColOutput, Index: len(p.spec.Columns)}
	if expr.ContainsAggregate(e) {
		col.Flags |= ColAggregate
	}
	p.spec.Columns = append(p.spec.Columns, col)
	p.byName[key] = col
	p.order = append(p.order, key)
	return nil
}

func (p *Parser) foldCase(s string) string {
	if p.spec.CaseSensitive {
		return s
	}
	return foldString(s)
}

func defaultColumnName(e *expr.Expr) string {
	if e.Kind == expr.KindPathRef {
		return e.PathRef.Spec
	}
	if e.Kind == expr.KindColumnRef {
		return fmt.Sprintf("col%d", e.ColumnSlot)
	}
	return e.Op.Name
}

// applyDirective routes a parsed directive-operator node into QuerySpec
// field mutations.
func (p *Parser) applyDirective(e *expr.Expr) error {
	op := e.Op
	if op.Flags.Has(operator.FlagOnceOnly) {
		if p.usedOnce[op.Opcode] {
			return errOnceOnly(op.Name)
		}
		p.usedOnce[op.Opcode] = true
	}
	switch op.Opcode {
	case operator.OpIn:
		p.spec.InPath = firstArgString(e)
	case operator.OpJoin:
		p.spec.JoinPath = firstArgString(e)
		if len(e.UnquotedArgs) > 1 && strings.EqualFold(strings.TrimSpace(e.UnquotedArgs[1]), "outer") {
			p.spec.JoinOuter = true
		}
		p.curScope = pathref.Join
	case operator.OpInHeader:
		p.spec.InHeader = boolArgOrTrue(e)
	case operator.OpJoinHeader:
		p.spec.JoinHeader = boolArgOrTrue(e)
	case operator.OpOutHeader:
		p.spec.OutHeader = boolArgOrTrue(e)
	case operator.OpRoot:
		n, _ := strconv.Atoi(firstArgString(e))
		p.spec.RootCutoff = n
	case operator.OpCase:
		p.spec.CaseSensitive = boolArgOrTrue(e)
	case operator.OpFirst:
		n, _ := strconv.Atoi(firstArgString(e))
		p.spec.FirstN = n
	case operator.OpTop:
		n, _ := strconv.Atoi(firstArgString(e))
		p.spec.TopN = n
	case operator.OpDistinct:
		p.spec.Distinct = true
	case operator.OpSort:
		for _, c := range e.Children {
			desc := false
			key := c
			if key.Kind == expr.KindOperator && key.Op.Opcode == operator.OpSub && len(key.Children) == 1 {
				desc = true
				key = key.Children[0]
			}
			p.spec.SortKeys = append(p.spec.SortKeys, SortKey{Expr: key, Descending: desc})
		}
		if len(p.spec.SortKeys) == 0 {
			return errRequiresPaths("sort")
		}
	case operator.OpPivot:
		if len(e.Children) < 2 {
			return errWrongArity("pivot", len(e.Children), 2, 3)
		}
		jagged := len(e.UnquotedArgs) > 0 && strings.EqualFold(strings.TrimSpace(e.UnquotedArgs[len(e.UnquotedArgs)-1]), "jagged")
		p.spec.Pivot = &PivotSpec{NamesExpr: e.Children[0], ValuesExpr: e.Children[1], Jagged: jagged}
	case operator.OpWhere:
		if len(e.Children) != 1 {
			return errWrongArity("where", len(e.Children), 1, 1)
		}
		p.spec.Where = append(p.spec.Where, e.Children[0])
	case operator.OpSync:
		if len(e.UnquotedArgs) > 0 {
			spec := e.UnquotedArgs[0]
			ref := p.spec.MainRefs.Resolve(spec, pathref.Main)
			ref.Flags |= pathref.Sync
			p.spec.SyncSpec = append(p.spec.SyncSpec, spec)
		}
	case operator.OpHelp:
		p.spec.Help = true
	default:
		return fmt.Errorf("query: unhandled directive %q", op.Name)
	}
	return nil
}

func firstArgString(e *expr.Expr) string {
	if len(e.UnquotedArgs) > 0 {
		return e.UnquotedArgs[0]
	}
	if len(e.Children) > 0 && e.Children[0].Kind == expr.KindLiteral {
		return e.Children[0].Literal.AsString()
	}
	return ""
}

func boolArgOrTrue(e *expr.Expr) bool {
	if len(e.UnquotedArgs) == 0 && len(e.Children) == 0 {
		return true
	}
	s := firstArgString(e)
	if s == "" {
		return true
	}
	return rowql.NewString(s).AsBoolean()
}
