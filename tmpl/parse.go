package tmpl

import (
	"context"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ardnew/curly/log"
)

// Control keywords.
const (
	kwIf        = "if"
	kwElseIf    = "elseif"
	kwElse      = "else"
	kwEndIf     = "endif"
	kwFor       = "for"
	kwEndFor    = "endfor"
	kwSwitch    = "switch"
	kwCase      = "case"
	kwDefault   = "default"
	kwEndSwitch = "endswitch"
	kwInclude   = "include"
)

var keywords = map[string]struct{}{
	kwIf: {}, kwElseIf: {}, kwElse: {}, kwEndIf: {},
	kwFor: {}, kwEndFor: {},
	kwSwitch: {}, kwCase: {}, kwDefault: {}, kwEndSwitch: {},
	kwInclude: {},
}

// Keywords returns the control keywords in sorted order.
func Keywords() []string {
	return slices.Sorted(maps.Keys(keywords))
}

// closers maps the short closing form to its keyword.
var closers = map[string]string{
	"/" + kwIf:     kwEndIf,
	"/" + kwFor:    kwEndFor,
	"/" + kwSwitch: kwEndSwitch,
}

var (
	forPattern  = regexp.MustCompile(`^([A-Za-z_]\w*)(?:\s*,\s*([A-Za-z_]\w*))?\s+in\s+(\S.*)$`)
	callPattern = regexp.MustCompile(`^([A-Za-z_]\w*)\s*\(`)
)

type parser struct {
	ctx    context.Context
	logger log.Logger
	toks   []token
	pos    int
}

// parse builds the node tree of src. Malformed tags never fail the parse;
// they are recovered as literal text.
func parse(
	ctx context.Context,
	name, src, open, close string,
	logger log.Logger,
) *Template {
	p := &parser{
		ctx:    ctx,
		logger: logger,
		toks:   lex(src, open, close),
	}

	logger.TraceContext(ctx, "parse start",
		slog.String("template", name),
		slog.Int("source_bytes", len(src)),
		slog.Int("tokens", len(p.toks)),
	)

	nodes, _, _ := p.parseNodes(nil)

	logger.TraceContext(ctx, "parse complete",
		slog.String("template", name),
		slog.Int("nodes", len(nodes)),
	)

	return &Template{Name: name, Nodes: nodes}
}

// keyword splits a tag body into its control keyword and the remainder.
// Bodies that do not start with a keyword yield an empty keyword.
func keyword(body string) (string, string) {
	if kw, ok := closers[body]; ok {
		return kw, ""
	}

	end := strings.IndexFunc(body, func(r rune) bool { return !isIdentRune(r) })
	if end < 0 {
		end = len(body)
	}

	word := body[:end]
	if _, ok := keywords[word]; !ok {
		return "", body
	}

	rest := body[end:]
	if rest != "" {
		if r, _ := utf8.DecodeRuneInString(rest); !isSpace(r) {
			return "", body
		}
	}

	rest = strings.TrimSpace(rest)

	if word == kwElse {
		if next, cond := keyword(rest); next == kwIf {
			return kwElseIf, cond
		}
	}

	return word, rest
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (p *parser) recover(t token, issue string) *Text {
	p.logger.DebugContext(p.ctx, "malformed tag",
		slog.Any("error", ErrMalformedTag.With(
			slog.String("issue", issue),
			slog.String("tag", t.raw),
			slog.String("pos", t.pos.String()),
		)),
	)

	return literal(t)
}

// parseNodes parses until a tag whose keyword satisfies stop, or the end of
// input. It returns the parsed nodes along with the stopping tag and keyword;
// the tag is nil at end of input.
func (p *parser) parseNodes(stop func(string) bool) ([]Node, *token, string) {
	var nodes []Node

	for p.pos < len(p.toks) {
		t := p.toks[p.pos]
		p.pos++

		switch t.kind {
		case tokenText:
			nodes = append(nodes, &Text{base: newBase(t), Text: t.body})

			continue

		case tokenComment:
			nodes = append(nodes, &Comment{base: newBase(t), Text: t.body})

			continue
		}

		kw, rest := keyword(t.body)

		if kw != "" && stop != nil && stop(kw) {
			return nodes, &t, kw
		}

		switch kw {
		case kwIf:
			nodes = append(nodes, p.parseIf(t, rest)...)

		case kwFor:
			nodes = append(nodes, p.parseFor(t, rest)...)

		case kwSwitch:
			nodes = append(nodes, p.parseSwitch(t, rest)...)

		case kwInclude:
			if rest == "" {
				nodes = append(nodes, p.recover(t, "include without a name"))

				continue
			}

			nodes = append(nodes, &Include{base: newBase(t), Name: ParseOperand(rest)})

		case "":
			nodes = append(nodes, p.parseExprTag(t))

		default:
			nodes = append(nodes, p.recover(t, "unexpected "+kw))
		}
	}

	return nodes, nil, ""
}

func oneOf(kws ...string) func(string) bool {
	return func(kw string) bool {
		for _, k := range kws {
			if k == kw {
				return true
			}
		}

		return false
	}
}

// parseIf parses the remainder of an if block. An unterminated block is
// recovered: its tags become text and its bodies are kept in place.
func (p *parser) parseIf(open token, cond string) []Node {
	if cond == "" {
		return []Node{p.recover(open, "if without a condition")}
	}

	node := &If{base: newBase(open)}
	fallback := []Node{literal(open)}

	cur := ParseExpr(cond)

	for {
		stop := oneOf(kwElseIf, kwElse, kwEndIf)
		if node.HasElse {
			stop = oneOf(kwEndIf)
		}

		body, end, kw := p.parseNodes(stop)
		fallback = append(fallback, body...)

		if end == nil {
			return append([]Node{p.recover(open, "missing endif")}, fallback[1:]...)
		}

		fallback = append(fallback, literal(*end))

		if node.HasElse {
			node.Else = body
		} else {
			node.Branches = append(node.Branches, Branch{Cond: cur, Body: body})
		}

		switch kw {
		case kwEndIf:
			return []Node{node}

		case kwElse:
			node.HasElse = true

		case kwElseIf:
			_, rest := keyword(end.body)
			cur = ParseExpr(rest)
		}
	}
}

func (p *parser) parseFor(open token, rest string) []Node {
	match := forPattern.FindStringSubmatch(rest)
	if match == nil {
		return []Node{p.recover(open, "for without 'item in source'")}
	}

	node := &For{
		base:   newBase(open),
		Item:   match[1],
		Source: ParsePath(match[3]),
	}

	if match[2] != "" {
		node.Key, node.Item = match[1], match[2]
	}

	body, end, _ := p.parseNodes(oneOf(kwEndFor))
	if end == nil {
		return append([]Node{p.recover(open, "missing endfor")}, body...)
	}

	node.Body = body

	return []Node{node}
}

func (p *parser) parseSwitch(open token, subject string) []Node {
	if subject == "" {
		return []Node{p.recover(open, "switch without a subject")}
	}

	node := &Switch{base: newBase(open), Subject: ParseExpr(subject)}
	fallback := []Node{literal(open)}
	stop := oneOf(kwCase, kwDefault, kwEndSwitch)

	// Content ahead of the first case is never rendered.
	lead, end, kw := p.parseNodes(stop)
	fallback = append(fallback, lead...)

	for {
		if end == nil {
			return append([]Node{p.recover(open, "missing endswitch")}, fallback[1:]...)
		}

		fallback = append(fallback, literal(*end))

		if kw == kwEndSwitch {
			return []Node{node}
		}

		var (
			labels []Operand
			isCase = kw == kwCase
		)

		if isCase {
			_, rest := keyword(end.body)
			for _, part := range splitTopLevel(rest, ',') {
				if part = strings.TrimSpace(part); part != "" {
					labels = append(labels, ParseOperand(part))
				}
			}
		}

		var body []Node

		body, end, kw = p.parseNodes(stop)
		fallback = append(fallback, body...)

		if isCase {
			node.Cases = append(node.Cases, Case{Labels: labels, Body: body})
		} else {
			node.Default = body
			node.HasDefault = true
		}
	}
}

// parseExprTag parses a tag that is not a control tag: a ternary, a function
// call, or a variable. Anything else is literal text.
func (p *parser) parseExprTag(t token) Node {
	body := t.body

	if q := indexTopLevel(body, '?'); q >= 0 {
		return p.parseTernary(t, body[:q], body[q+1:])
	}

	if callPattern.MatchString(body) {
		if call, ok := parseCall(t, body); ok {
			return call
		}

		return p.recover(t, "malformed function call")
	}

	if isPathText(body) {
		return &Variable{base: newBase(t), Path: ParsePath(body)}
	}

	return literal(t)
}

func (p *parser) parseTernary(t token, cond, rest string) Node {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return p.recover(t, "ternary without a condition")
	}

	node := &Ternary{base: newBase(t), Cond: ParseExpr(cond)}

	then := rest
	if c := indexTopLevel(rest, ':'); c >= 0 {
		then = rest[:c]
		node.Else = ParseOperand(rest[c+1:])
		node.HasElse = true
	}

	if strings.TrimSpace(then) == "" {
		return p.recover(t, "ternary without a value")
	}

	node.Then = ParseOperand(then)

	return node
}

// maxCallNesting is the number of call levels a function tag may hold: the
// call itself plus one level of calls in its arguments.
const maxCallNesting = 2

// parseCall parses "name(arg, ...)". Arguments are operands or, one level
// deep, nested calls.
func parseCall(t token, src string) (*Call, bool) {
	return parseCallDepth(t, src, 1)
}

func parseCallDepth(t token, src string, depth int) (*Call, bool) {
	src = strings.TrimSpace(src)

	m := callPattern.FindStringSubmatch(src)
	if m == nil || !strings.HasSuffix(src, ")") {
		return nil, false
	}

	open := len(m[0]) - 1
	if matchParen(src, open) != len(src)-1 {
		return nil, false
	}

	call := &Call{base: newBase(t), Name: m[1]}

	inner := strings.TrimSpace(src[open+1 : len(src)-1])
	if inner == "" {
		return call, true
	}

	for _, part := range splitTopLevel(inner, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, false
		}

		if callPattern.MatchString(part) {
			if depth >= maxCallNesting {
				return nil, false
			}

			nested, ok := parseCallDepth(token{raw: part, pos: t.pos}, part, depth+1)
			if !ok {
				return nil, false
			}

			call.Args = append(call.Args, Arg{Call: nested})

			continue
		}

		call.Args = append(call.Args, Arg{Operand: ParseOperand(part)})
	}

	return call, true
}

// matchParen returns the index of the parenthesis closing s[open], or -1.
func matchParen(s string, open int) int {
	depth := 0

	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\'', '"':
			end := closingQuote(s, i)
			if end < 0 {
				return -1
			}

			i = end

		case '(':
			depth++

		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}

// indexTopLevel returns the index of the first c outside quotes, brackets,
// and parentheses, or -1.
func indexTopLevel(s string, c byte) int {
	depth := 0

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'', '"':
			end := closingQuote(s, i)
			if end < 0 {
				return -1
			}

			i = end

		case '(', '[':
			depth++

		case ')', ']':
			depth--

		case c:
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}

// splitTopLevel splits s at each sep outside quotes, brackets, and
// parentheses.
func splitTopLevel(s string, sep byte) []string {
	var parts []string

	for {
		i := indexTopLevel(s, sep)
		if i < 0 {
			return append(parts, s)
		}

		parts = append(parts, s[:i])
		s = s[i+1:]
	}
}

// isPathText reports whether s reads as a variable reference: an identifier
// followed by dotted or bracketed members, with no whitespace outside
// brackets.
func isPathText(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	if !(r == '_' || r == '$' || unicode.IsLetter(r)) {
		return false
	}

	depth := 0

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c == '[':
			depth++

		case c == ']':
			depth--

		case depth > 0 && (c == '\'' || c == '"'):
			end := closingQuote(s, i)
			if end < 0 {
				return false
			}

			i = end

		case depth > 0:

		case c == '.' || c == '_' || c == '-' || c == '$':

		case c < utf8.RuneSelf && !unicode.IsLetter(rune(c)) && !unicode.IsDigit(rune(c)):
			return false
		}
	}

	return true
}
