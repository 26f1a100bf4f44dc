// internal/parser/condition.go
package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// Conditional parameters carry a boolean expression over named variables:
// comparisons joined by && and ||, parentheses allowed, nothing else.
// The expression is parsed once at parse time and evaluated against a
// caller-supplied variable map — no code evaluation of any kind.

// CondExpr is a parsed conditional expression.
type CondExpr interface {
	Evaluate(vars map[string]string) (bool, error)
}

type binaryExpr struct {
	op          string // "&&" or "||"
	left, right CondExpr
}

func (e *binaryExpr) Evaluate(vars map[string]string) (bool, error) {
	l, err := e.left.Evaluate(vars)
	if err != nil {
		return false, err
	}
	// Short-circuit like the source grammar implies.
	if e.op == "&&" && !l {
		return false, nil
	}
	if e.op == "||" && l {
		return true, nil
	}
	return e.right.Evaluate(vars)
}

type comparisonExpr struct {
	ident   string
	op      string // ==, !=, >, >=, <, <=
	literal string
}

func (e *comparisonExpr) Evaluate(vars map[string]string) (bool, error) {
	val, ok := vars[e.ident]
	if !ok {
		return false, fmt.Errorf("unknown variable %q", e.ident)
	}

	lnum, lerr := strconv.ParseFloat(val, 64)
	rnum, rerr := strconv.ParseFloat(e.literal, 64)
	numeric := lerr == nil && rerr == nil

	switch e.op {
	case "==":
		if numeric {
			return lnum == rnum, nil
		}
		return val == e.literal, nil
	case "!=":
		if numeric {
			return lnum != rnum, nil
		}
		return val != e.literal, nil
	case ">":
		if !numeric {
			return false, fmt.Errorf("operator %s requires numeric operands", e.op)
		}
		return lnum > rnum, nil
	case ">=":
		if !numeric {
			return false, fmt.Errorf("operator %s requires numeric operands", e.op)
		}
		return lnum >= rnum, nil
	case "<":
		if !numeric {
			return false, fmt.Errorf("operator %s requires numeric operands", e.op)
		}
		return lnum < rnum, nil
	case "<=":
		if !numeric {
			return false, fmt.Errorf("operator %s requires numeric operands", e.op)
		}
		return lnum <= rnum, nil
	}
	return false, fmt.Errorf("unsupported operator %q", e.op)
}

// ParseCondition parses a conditional expression. Precedence: comparisons,
// then &&, then ||.
func ParseCondition(input string) (CondExpr, error) {
	toks, err := tokenizeCondition(input)
	if err != nil {
		return nil, err
	}
	p := &condParser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("unexpected token %q", p.toks[p.pos])
	}
	return expr, nil
}

type condParser struct {
	toks []string
	pos  int
}

func (p *condParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *condParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *condParser) parseOr() (CondExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek() == "||" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: "||", left: left, right: right}
	}
	return left, nil
}

func (p *condParser) parseAnd() (CondExpr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.peek() == "&&" {
		p.next()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: "&&", left: left, right: right}
	}
	return left, nil
}

var comparisonOps = map[string]bool{
	"==": true, "!=": true, ">": true, ">=": true, "<": true, "<=": true,
}

func (p *condParser) parseComparison() (CondExpr, error) {
	if p.peek() == "(" {
		p.next()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next() != ")" {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return expr, nil
	}

	ident := p.next()
	if ident == "" {
		return nil, fmt.Errorf("expected identifier")
	}
	op := p.next()
	if !comparisonOps[op] {
		return nil, fmt.Errorf("expected comparison operator, got %q", op)
	}
	literal := p.next()
	if literal == "" {
		return nil, fmt.Errorf("expected literal after %q", op)
	}
	return &comparisonExpr{ident: ident, op: op, literal: literal}, nil
}

// tokenizeCondition splits the expression into identifiers, literals,
// operators and parentheses. Quoted literals keep embedded spaces.
func tokenizeCondition(input string) ([]string, error) {
	var toks []string
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(' || c == ')':
			toks = append(toks, string(c))
			i++
		case strings.HasPrefix(input[i:], "&&") || strings.HasPrefix(input[i:], "||"):
			toks = append(toks, input[i:i+2])
			i += 2
		case strings.HasPrefix(input[i:], ">=") || strings.HasPrefix(input[i:], "<=") ||
			strings.HasPrefix(input[i:], "==") || strings.HasPrefix(input[i:], "!="):
			toks = append(toks, input[i:i+2])
			i += 2
		case c == '>' || c == '<':
			toks = append(toks, string(c))
			i++
		case c == '\'' || c == '"':
			end := strings.IndexByte(input[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("unterminated string literal")
			}
			toks = append(toks, input[i+1:i+1+end])
			i += end + 2
		case c == '&' || c == '|' || c == '=' || c == '!':
			return nil, fmt.Errorf("unexpected character %q", c)
		default:
			// The current byte is not a delimiter, so j always advances
			// past i; multi-byte UTF-8 sequences stay inside the token.
			j := i
			for j < len(input) && !isCondDelimiter(input[j]) {
				j++
			}
			toks = append(toks, input[i:j])
			i = j
		}
	}
	return toks, nil
}

// isCondDelimiter reports whether a byte ends an unquoted token. Only
// ASCII bytes qualify; every byte of a multi-byte UTF-8 character is
// identifier content.
func isCondDelimiter(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' ||
		c == '(' || c == ')' ||
		c == '&' || c == '|' || c == '>' || c == '<' || c == '=' || c == '!'
}
