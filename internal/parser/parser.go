// Package parser is the external S-expression reader. Its correctness
// is not part of the analysed core: no memory-management decision
// anywhere in the compiler depends on how parsing works, only on the
// AST it produces.
package parser

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/shapelang/shapec/internal/diag"
	"github.com/shapelang/shapec/internal/value"
)

// Grammar:
//   expr := int | sym | "(" expr* ")" | "'" expr
// integers are optionally signed decimal with saturating overflow;
// symbols are maximal runs of non-whitespace, non-paren characters;
// quotes desugar to (quote expr); whitespace is insignificant.

type Parser struct {
	src []rune
	pos int
}

func New(input string) *Parser {
	return &Parser{src: []rune(input)}
}

// Parse reads exactly one top-level expression, or (nil, nil) at EOF.
func (p *Parser) Parse() (*value.Value, error) {
	p.skipSpace()
	if p.atEOF() {
		return nil, nil
	}
	return p.parseExpr()
}

// ParseAll reads every top-level expression in the input.
func (p *Parser) ParseAll() ([]*value.Value, error) {
	var out []*value.Value
	for {
		p.skipSpace()
		if p.atEOF() {
			return out, nil
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func (p *Parser) atEOF() bool { return p.pos >= len(p.src) }

func (p *Parser) peek() rune {
	if p.atEOF() {
		return 0
	}
	return p.src[p.pos]
}

func (p *Parser) skipSpace() {
	for !p.atEOF() {
		c := p.src[p.pos]
		switch {
		case c == ';':
			for !p.atEOF() && p.src[p.pos] != '\n' {
				p.pos++
			}
		case unicode.IsSpace(c):
			p.pos++
		default:
			return
		}
	}
}

func (p *Parser) parseExpr() (*value.Value, error) {
	p.skipSpace()
	if p.atEOF() {
		return nil, diag.New(diag.KindParse, "unexpected end of input")
	}

	switch p.peek() {
	case '(':
		return p.parseList()
	case ')':
		return nil, diag.New(diag.KindParse, "unexpected ')'")
	case '\'':
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return value.List2(value.NewSym("quote"), inner), nil
	default:
		return p.parseAtom()
	}
}

func (p *Parser) parseList() (*value.Value, error) {
	p.pos++ // consume '('
	var items []*value.Value
	for {
		p.skipSpace()
		if p.atEOF() {
			return nil, diag.New(diag.KindParse, "unterminated list")
		}
		if p.peek() == ')' {
			p.pos++
			return value.SliceToList(items), nil
		}
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

func isDelim(c rune) bool {
	return unicode.IsSpace(c) || c == '(' || c == ')' || c == ';'
}

func (p *Parser) parseAtom() (*value.Value, error) {
	start := p.pos
	for !p.atEOF() && !isDelim(p.src[p.pos]) {
		p.pos++
	}
	tok := string(p.src[start:p.pos])
	if tok == "" {
		return nil, diag.New(diag.KindParse, "empty token")
	}
	if n, ok := parseSaturatingInt(tok); ok {
		return value.NewInt(n), nil
	}
	return value.NewSym(tok), nil
}

// parseSaturatingInt parses an optionally-signed decimal integer with
// saturating out-of-range handling: a value outside int64 range folds
// to 0 rather than erroring or aborting.
func parseSaturatingInt(tok string) (int64, bool) {
	if tok == "" {
		return 0, false
	}
	rest := tok
	neg := false
	if rest[0] == '+' || rest[0] == '-' {
		neg = rest[0] == '-'
		rest = rest[1:]
	}
	if rest == "" {
		return 0, false
	}
	for _, c := range rest {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return 0, true
		}
		return 0, false
	}
	_ = neg
	return n, true
}

// Unparse renders a Value back to source text; used by the round-trip
// test and the REPL. Only covers the literal/quote subset (Int, Sym,
// Cell, Nil, quote).
func Unparse(v *value.Value) string {
	if value.IsNil(v) {
		return "()"
	}
	switch v.Tag {
	case value.TInt:
		return strconv.FormatInt(v.Int, 10)
	case value.TSym:
		return v.Str
	case value.TCell:
		if value.SymEqStr(v.Car, "quote") && value.IsCell(v.Cdr) && value.IsNil(v.Cdr.Cdr) {
			return "'" + Unparse(v.Cdr.Car)
		}
		var sb strings.Builder
		sb.WriteByte('(')
		first := true
		cur := v
		for value.IsCell(cur) {
			if !first {
				sb.WriteByte(' ')
			}
			first = false
			sb.WriteString(Unparse(cur.Car))
			cur = cur.Cdr
		}
		if !value.IsNil(cur) {
			sb.WriteString(" . ")
			sb.WriteString(Unparse(cur))
		}
		sb.WriteByte(')')
		return sb.String()
	default:
		return v.String()
	}
}
