package query

import (
	"strings"

	"github.com/rowql/rowql"
	"github.com/rowql/rowql/expr"
	"github.com/rowql/rowql/operator"
	"github.com/rowql/rowql/pathref"
)

// exprParser is a Pratt parser for one argument's expression grammar,
// after the optional name-list prefix has been stripped.
type exprParser struct {
	lex    *lexer
	parser *Parser

	cur  token
	next *token // one token of lookahead, used to spot "name::" scoping

	// argDepth counts nested argument-list/parenthesis levels; a call
	// built while argDepth > 0 is not the root of the argument's
	// expression, so a FlagTopLevelOnly directive there is illegal.
	argDepth int
}

func (p *exprParser) advance() error {
	if p.next != nil {
		p.cur = *p.next
		p.next = nil
		return nil
	}
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *exprParser) peekNext() (token, error) {
	if p.next == nil {
		t, err := p.lex.Next()
		if err != nil {
			return token{}, err
		}
		p.next = &t
	}
	return *p.next, nil
}

func (p *exprParser) parseExpr(minPrec int) (*expr.Expr, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for {
		if p.cur.kind != tPunct {
			break
		}
		meta, ok := operator.Lookup(p.cur.text)
		if !ok || !meta.Flags.Has(operator.FlagInfix) || meta.Precedence < minPrec {
			break
		}
		opTok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseExpr(meta.Precedence + 1)
		if err != nil {
			return nil, err
		}
		m, _ := operator.Lookup(opTok.text)
		left = expr.NewOperator(m, left, right)
		left.Type = inferBinaryType(m, left.Children[0], left.Children[1])
	}
	return left, nil
}

// inferBinaryType applies bottom-up type inference: arithmetic
// picks Integer iff both operands are Integer else Real; comparison
// yields Boolean over the join of operand types; string ops coerce to
// String.
func inferBinaryType(m operator.Meta, a, b *expr.Expr) rowql.Type {
	switch m.Opcode {
	case operator.OpAdd, operator.OpSub, operator.OpMul, operator.OpDiv:
		if a.Type == rowql.Integer && b.Type == rowql.Integer {
			return rowql.Integer
		}
		return rowql.Real
	case operator.OpEq, operator.OpNe, operator.OpLt, operator.OpLe, operator.OpGt, operator.OpGe, operator.OpAnd, operator.OpOr, operator.OpXor:
		return rowql.Boolean
	case operator.OpConcat:
		return rowql.String
	default:
		return m.ResultType
	}
}

func (p *exprParser) parsePrefix() (*expr.Expr, error) {
	switch p.cur.kind {
	case tNumber:
		v := rowql.NewReal(p.cur.num)
		if p.cur.isInt {
			v = rowql.NewInteger(int64(p.cur.num))
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return expr.NewLiteral(v), nil

	case tString:
		s := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return expr.NewLiteral(rowql.NewString(s)), nil

	case tPathAtom:
		return p.parseBarewordOrCall()

	case tPunct:
		switch p.cur.text {
		case "(":
			if err := p.advance(); err != nil {
				return nil, err
			}
			p.argDepth++
			inner, err := p.parseExpr(0)
			p.argDepth--
			if err != nil {
				return nil, err
			}
			if p.cur.kind != tPunct || p.cur.text != ")" {
				return nil, errUnbalancedBraces
			}
			return inner, p.advance()
		case "-":
			if err := p.advance(); err != nil {
				return nil, err
			}
			operand, err := p.parsePrefix()
			if err != nil {
				return nil, err
			}
			m, _ := operator.Lookup("-")
			e := expr.NewOperator(m, operand)
			e.Type = operand.Type
			return e, nil
		case "!":
			if err := p.advance(); err != nil {
				return nil, err
			}
			operand, err := p.parsePrefix()
			if err != nil {
				return nil, err
			}
			m, _ := operator.Lookup("!")
			return expr.NewOperator(m, operand), nil
		case "--":
			return p.parseOptionForm()
		case "...":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &expr.Expr{Kind: expr.KindOperator, Op: operator.Meta{Name: "..."}}, nil
		}
	}
	return nil, errUnknownFunction(p.cur.text)
}

// parseOptionForm handles "--flag[=value,...]" as a function call whose
// name is "flag".
func (p *exprParser) parseOptionForm() (*expr.Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.kind != tPathAtom {
		return nil, errUnknownFunction("--")
	}
	name := p.cur.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	var args []string
	if p.cur.kind == tPunct && p.cur.text == "=" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		for {
			if p.cur.kind == tPathAtom || p.cur.kind == tString {
				args = append(args, p.cur.text)
			} else if p.cur.kind == tNumber {
				args = append(args, p.cur.text)
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.kind == tPunct && p.cur.text == "," {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	return p.buildCall(name, args)
}

// parseBarewordOrCall disambiguates a tPathAtom: a scope prefix
// ("right::col"), a function call ("name[args]" / "name(args)"), or a
// plain bareword resolved to a column or path reference.
func (p *exprParser) parseBarewordOrCall() (*expr.Expr, error) {
	name := p.cur.text
	nt, err := p.peekNext()
	if err != nil {
		return nil, err
	}

	if nt.kind == tPunct && nt.text == "::" {
		scope, err := scopeFromName(name)
		if err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil { // consume name
			return nil, err
		}
		if err := p.advance(); err != nil { // consume "::"
			return nil, err
		}
		if p.cur.kind != tPathAtom {
			return nil, errUnknownScope(name)
		}
		pathSpec := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		reg := p.parser.spec.MainRefs
		if scope == pathref.Join {
			reg = p.parser.spec.JoinRefs
		}
		ref := reg.Resolve(pathSpec, scope)
		return expr.NewPathRef(ref), nil
	}

	if nt.kind == tPunct && (nt.text == "[" || nt.text == "(") {
		if err := p.advance(); err != nil { // consume name
			return nil, err
		}
		return p.parseCallArgs(name)
	}

	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.resolveBareword(name)
}

func scopeFromName(name string) (pathref.Scope, error) {
	switch strings.ToLower(name) {
	case "right", "join":
		return pathref.Join, nil
	case "left", "main":
		return pathref.Main, nil
	default:
		return pathref.Main, errUnknownScope(name)
	}
}

// resolveBareword resolves a bare identifier: a column reference if the
// name matches a previously-declared column, else a path reference in
// the main scope; a join-side path needs a right:: or join:: prefix.
func (p *exprParser) resolveBareword(name string) (*expr.Expr, error) {
	key := p.parser.foldCase(name)
	if col, ok := p.parser.byName[key]; ok {
		ref := expr.NewColumnRef(col.Slot, col.Root.Type)
		p.parser.colRefs[key] = append(p.parser.colRefs[key], ref)
		return ref, nil
	}
	ref := p.parser.spec.MainRefs.Resolve(name, pathref.Main)
	return expr.NewPathRef(ref), nil
}

func (p *exprParser) parseCallArgs(name string) (*expr.Expr, error) {
	closer := "]"
	if p.cur.kind == tPunct && p.cur.text == "(" {
		closer = ")"
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	meta, ok := operator.Lookup(name)
	if !ok {
		return nil, errUnknownFunction(name)
	}

	var children []*expr.Expr
	var unquoted []string
	first := true
	p.argDepth++
	for {
		if p.cur.kind == tPunct && p.cur.text == closer {
			break
		}
		if !first {
			if p.cur.kind != tPunct || p.cur.text != "," {
				p.argDepth--
				return nil, errUnknownFunction(name)
			}
			if err := p.advance(); err != nil {
				p.argDepth--
				return nil, err
			}
		}
		first = false
		if meta.Flags.Has(operator.FlagUnquotedArg) && len(children) == 0 {
			unquoted = append(unquoted, p.cur.text)
			if err := p.advance(); err != nil {
				p.argDepth--
				return nil, err
			}
			continue
		}
		if meta.Opcode == operator.OpPivot && len(children) == 2 && p.cur.kind == tPathAtom &&
			strings.EqualFold(p.cur.text, "jagged") {
			unquoted = append(unquoted, p.cur.text)
			if err := p.advance(); err != nil {
				p.argDepth--
				return nil, err
			}
			continue
		}
		arg, err := p.parseExpr(0)
		if err != nil {
			p.argDepth--
			return nil, err
		}
		children = append(children, arg)
	}
	p.argDepth--
	if p.cur.kind != tPunct || p.cur.text != closer {
		return nil, errUnbalancedBraces
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.buildCallFromParts(meta, children, unquoted)
}

func (p *exprParser) buildCall(name string, unquoted []string) (*expr.Expr, error) {
	meta, ok := operator.Lookup(name)
	if !ok {
		return nil, errUnknownFunction(name)
	}
	return p.buildCallFromParts(meta, nil, unquoted)
}

func (p *exprParser) buildCallFromParts(meta operator.Meta, children []*expr.Expr, unquoted []string) (*expr.Expr, error) {
	argCount := len(children) + len(unquoted)
	if argCount < meta.MinArity || (meta.MaxArity >= 0 && argCount > meta.MaxArity) {
		return nil, errWrongArity(meta.Name, argCount, meta.MinArity, meta.MaxArity)
	}
	if meta.Flags.Has(operator.FlagTopLevelOnly) && p.argDepth > 0 {
		return nil, errTopLevelOnly(meta.Name)
	}
	e := expr.NewOperator(meta, children...)
	e.UnquotedArgs = unquoted
	if meta.Flags.Has(operator.FlagAggregate) {
		e.AggIndex = p.parser.nextAggIndex()
	}
	return e, nil
}
