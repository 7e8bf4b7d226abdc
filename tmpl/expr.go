package tmpl

import (
	"log/slog"
	"strconv"
	"strings"
)

// Operand is a literal or a path appearing in a condition, ternary, case
// label, or function argument.
type Operand struct {
	lit  Value
	path Path
	src  string
}

// ParseOperand parses a single operand: a quoted string, true, false, null,
// a numeric literal, or a path.
func ParseOperand(s string) Operand {
	s = strings.TrimSpace(s)

	switch {
	case s == "true":
		return Operand{lit: BoolValue(true), src: s}

	case s == "false":
		return Operand{lit: BoolValue(false), src: s}

	case s == "null":
		return Operand{lit: Null, src: s}

	case isQuoted(s):
		return Operand{lit: StringValue(unescape(s[1 : len(s)-1])), src: s}

	case IsNumericString(s):
		n, err := strconv.ParseFloat(s, 64)
		if err == nil {
			return Operand{lit: NumberValue(n), src: s}
		}
	}

	return Operand{path: ParsePath(s), src: s}
}

// IsPath reports whether the operand refers to the scope.
func (o Operand) IsPath() bool { return !o.path.IsZero() }

// Path returns the path of a path operand.
func (o Operand) Path() Path { return o.path }

// String returns the operand's source text.
func (o Operand) String() string { return o.src }

// Value returns the literal, or the path resolved against sc.
func (o Operand) Value(sc Scope) Value {
	if o.IsPath() {
		return o.path.Resolve(sc)
	}

	return o.lit
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}

	q := s[0]

	return (q == '\'' || q == '"') && s[len(s)-1] == q && closingQuote(s, 0) == len(s)-1
}

// closingQuote returns the index of the quote closing the string literal
// that starts at s[i], or -1.
func closingQuote(s string, i int) int {
	q := s[i]

	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++

		case q:
			return j
		}
	}

	return -1
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++

			switch s[i] {
			case 'n':
				b.WriteByte('\n')

			case 't':
				b.WriteByte('\t')

			default:
				b.WriteByte(s[i])
			}

			continue
		}

		b.WriteByte(s[i])
	}

	return b.String()
}

// Expr is a parsed condition:
//
//	expr     := andChain ('||' andChain)*
//	andChain := unary ('&&' unary)*
//	unary    := '!' unary | primary
//	primary  := '(' expr ')' | operand [op operand]
type Expr struct {
	src  string
	root cond
	err  error
}

// ParseExpr parses a condition. A malformed condition is still returned, and
// evaluates to false; its error is available from [Expr.Err].
func ParseExpr(src string) Expr {
	e := Expr{src: strings.TrimSpace(src)}

	toks, err := scanExpr(e.src)
	if err != nil {
		e.err = err

		return e
	}

	p := &exprParser{toks: toks}

	root, err := p.parseOr()
	if err == nil && p.pos < len(p.toks) {
		err = ErrMalformedTag.With(
			slog.String("condition", e.src),
			slog.String("unexpected", p.toks[p.pos].text),
		)
	}

	if err != nil {
		e.err = err

		return e
	}

	e.root = root

	return e
}

// String returns the condition's source text.
func (e Expr) String() string { return e.src }

// Err returns the parse error of a malformed condition.
func (e Expr) Err() error { return e.err }

// Eval evaluates the condition against sc. A malformed condition is false.
func (e Expr) Eval(sc Scope) bool {
	if e.root == nil {
		return false
	}

	return e.root.eval(sc)
}

// Value evaluates the expression as a switch subject: a lone operand yields
// its value, anything else the boolean result.
func (e Expr) Value(sc Scope) Value {
	if o, ok := e.root.(operandCond); ok {
		return o.Operand.Value(sc)
	}

	return BoolValue(e.Eval(sc))
}

type cond interface {
	eval(sc Scope) bool
}

type orCond []cond

func (c orCond) eval(sc Scope) bool {
	for _, x := range c {
		if x.eval(sc) {
			return true
		}
	}

	return false
}

type andCond []cond

func (c andCond) eval(sc Scope) bool {
	for _, x := range c {
		if !x.eval(sc) {
			return false
		}
	}

	return true
}

type notCond struct{ cond }

func (c notCond) eval(sc Scope) bool { return !c.cond.eval(sc) }

type operandCond struct{ Operand }

func (c operandCond) eval(sc Scope) bool { return c.Value(sc).Truthy() }

type compareCond struct {
	left, right Operand
	op          Operator
}

func (c compareCond) eval(sc Scope) bool {
	return Compare(c.left.Value(sc), c.op, c.right.Value(sc))
}

type exprTokenKind uint8

const (
	tokOperand exprTokenKind = iota
	tokOp
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type exprToken struct {
	text string
	kind exprTokenKind
	op   Operator
}

func scanExpr(s string) ([]exprToken, error) {
	var toks []exprToken

	for i := 0; i < len(s); {
		c := s[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

			continue

		case c == '(':
			toks = append(toks, exprToken{text: "(", kind: tokLParen})
			i++

			continue

		case c == ')':
			toks = append(toks, exprToken{text: ")", kind: tokRParen})
			i++

			continue

		case strings.HasPrefix(s[i:], "&&"):
			toks = append(toks, exprToken{text: "&&", kind: tokAnd})
			i += 2

			continue

		case strings.HasPrefix(s[i:], "||"):
			toks = append(toks, exprToken{text: "||", kind: tokOr})
			i += 2

			continue
		}

		if op, n := scanOperator(s[i:]); n > 0 {
			toks = append(toks, exprToken{text: s[i : i+n], kind: tokOp, op: op})
			i += n

			continue
		}

		if c == '!' {
			toks = append(toks, exprToken{text: "!", kind: tokNot})
			i++

			continue
		}

		n, err := scanOperandText(s[i:])
		if err == nil && n == 0 {
			err = errStrayCharacter
		}

		if err != nil {
			return nil, ErrMalformedTag.Wrap(err).
				With(slog.String("condition", s), slog.Int("offset", i))
		}

		toks = append(toks, exprToken{text: s[i : i+n], kind: tokOperand})
		i += n
	}

	return toks, nil
}

func scanOperator(s string) (Operator, int) {
	for _, o := range operators {
		if strings.HasPrefix(s, o.text) {
			return o.op, len(o.text)
		}
	}

	return OpNone, 0
}

var (
	errUnterminated   = NewError("unterminated string literal")
	errStrayCharacter = NewError("stray operator character")
)

// scanOperandText returns the length of the operand at the start of s. Quotes
// are honored both as whole literals and inside brackets.
func scanOperandText(s string) (int, error) {
	if s[0] == '\'' || s[0] == '"' {
		end := closingQuote(s, 0)
		if end < 0 {
			return 0, errUnterminated
		}

		return end + 1, nil
	}

	depth := 0

	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '[':
			depth++

		case c == ']':
			if depth > 0 {
				depth--
			}

		case (c == '\'' || c == '"') && depth > 0:
			end := closingQuote(s, i)
			if end < 0 {
				return 0, errUnterminated
			}

			i = end

		case depth > 0:

		case strings.IndexByte(" \t\r\n()!=<>&|", c) >= 0:
			return i, nil
		}
	}

	return len(s), nil
}

type exprParser struct {
	toks []exprToken
	pos  int
}

func (p *exprParser) peek() (exprToken, bool) {
	if p.pos >= len(p.toks) {
		return exprToken{}, false
	}

	return p.toks[p.pos], true
}

func (p *exprParser) errorf(issue string) error {
	attrs := []slog.Attr{slog.String("issue", issue)}
	if t, ok := p.peek(); ok {
		attrs = append(attrs, slog.String("near", t.text))
	}

	return ErrMalformedTag.With(attrs...)
}

func (p *exprParser) parseOr() (cond, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	chain := orCond{first}

	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOr {
			break
		}

		p.pos++

		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		chain = append(chain, next)
	}

	if len(chain) == 1 {
		return first, nil
	}

	return chain, nil
}

func (p *exprParser) parseAnd() (cond, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	chain := andCond{first}

	for {
		t, ok := p.peek()
		if !ok || t.kind != tokAnd {
			break
		}

		p.pos++

		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		chain = append(chain, next)
	}

	if len(chain) == 1 {
		return first, nil
	}

	return chain, nil
}

func (p *exprParser) parseUnary() (cond, error) {
	t, ok := p.peek()
	if ok && t.kind == tokNot {
		p.pos++

		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return notCond{inner}, nil
	}

	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (cond, error) {
	t, ok := p.peek()
	if !ok {
		return nil, p.errorf("missing operand")
	}

	switch t.kind {
	case tokLParen:
		p.pos++

		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}

		if t, ok := p.peek(); !ok || t.kind != tokRParen {
			return nil, p.errorf("missing closing parenthesis")
		}

		p.pos++

		return inner, nil

	case tokOperand:
		p.pos++
		left := ParseOperand(t.text)

		op, ok := p.peek()
		if !ok || op.kind != tokOp {
			return operandCond{left}, nil
		}

		p.pos++

		right, ok := p.peek()
		if !ok || right.kind != tokOperand {
			return nil, p.errorf("missing right operand")
		}

		p.pos++

		return compareCond{left: left, op: op.op, right: ParseOperand(right.text)}, nil

	default:
		return nil, p.errorf("unexpected token")
	}
}
