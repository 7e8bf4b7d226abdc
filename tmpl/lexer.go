package tmpl

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Default tag delimiters.
const (
	DefaultOpen  = "{"
	DefaultClose = "}"
)

// Pos is a 1-based line and column (in runes) within a template source.
type Pos struct {
	Line int
	Col  int
}

// String returns "line:col".
func (p Pos) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Col)
}

type tokenKind uint8

const (
	tokenText tokenKind = iota
	tokenTag
	tokenComment
)

// token is a lexical unit of template source. For tags, body holds the
// trimmed text between the delimiters and raw holds the full source text.
type token struct {
	raw  string
	body string
	pos  Pos
	kind tokenKind
}

// lexer splits a template source into text, tag, and comment tokens in a
// single pass.
type lexer struct {
	src   string
	open  string
	close string

	off  int // start of pending text
	line int
	col  int
	at   int // offset that line and col describe

	toks []token
}

func lex(src, open, close string) []token {
	l := &lexer{src: src, open: open, close: close, line: 1, col: 1}
	l.run()

	return l.toks
}

// position returns the position of offset off. Offsets must be requested in
// non-decreasing order.
func (l *lexer) position(off int) Pos {
	for l.at < off {
		r, n := utf8.DecodeRuneInString(l.src[l.at:])
		if r == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}

		l.at += n
	}

	return Pos{Line: l.line, Col: l.col}
}

func (l *lexer) emitText(end int) {
	if end <= l.off {
		return
	}

	text := l.src[l.off:end]

	if n := len(l.toks); n > 0 && l.toks[n-1].kind == tokenText {
		l.toks[n-1].raw += text
		l.toks[n-1].body += text
	} else {
		l.toks = append(l.toks, token{
			kind: tokenText,
			raw:  text,
			body: text,
			pos:  l.position(l.off),
		})
	}

	l.off = end
}

func (l *lexer) run() {
	i := 0

	for {
		rel := strings.Index(l.src[i:], l.open)
		if rel < 0 {
			break
		}

		start := i + rel
		inner := start + len(l.open)

		if end, ok := l.scanComment(inner); ok {
			l.emitText(start)
			l.toks = append(l.toks, token{
				kind: tokenComment,
				raw:  l.src[start:end],
				body: l.src[inner+1 : end-len(l.close)-1],
				pos:  l.position(start),
			})
			l.off = end
			i = end

			continue
		}

		end, ok := l.scanTag(inner)
		if !ok {
			i = inner

			continue
		}

		l.emitText(start)
		l.toks = append(l.toks, token{
			kind: tokenTag,
			raw:  l.src[start:end],
			body: strings.TrimSpace(l.src[inner : end-len(l.close)]),
			pos:  l.position(start),
		})
		l.off = end
		i = end
	}

	l.emitText(len(l.src))
}

// scanComment returns the end offset of a comment opening at inner.
func (l *lexer) scanComment(inner int) (int, bool) {
	if inner >= len(l.src) || l.src[inner] != '*' {
		return 0, false
	}

	stop := "*" + l.close

	rel := strings.Index(l.src[inner+1:], stop)
	if rel < 0 {
		return 0, false
	}

	return inner + 1 + rel + len(stop), true
}

// scanTag returns the end offset of a tag whose body starts at inner. A tag
// must close on the line it opens. A single-character delimiter followed by
// whitespace does not open a tag, so that braces in CSS and scripts pass
// through.
func (l *lexer) scanTag(inner int) (int, bool) {
	if inner >= len(l.src) {
		return 0, false
	}

	r, _ := utf8.DecodeRuneInString(l.src[inner:])
	if len(l.open) == 1 && isSpace(r) {
		return 0, false
	}

	if strings.HasPrefix(l.src[inner:], l.close) {
		return 0, false
	}

	for j := inner; j < len(l.src); j++ {
		switch c := l.src[j]; {
		case c == '\'' || c == '"':
			end := closingQuote(l.src, j)
			if end < 0 || strings.Contains(l.src[j:end], "\n") {
				return 0, false
			}

			j = end

		case c == '\n':
			return 0, false

		case strings.HasPrefix(l.src[j:], l.close):
			return j + len(l.close), true

		case strings.HasPrefix(l.src[j:], l.open):
			return 0, false
		}
	}

	return 0, false
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true

	default:
		return false
	}
}
