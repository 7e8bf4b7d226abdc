package tmpl

import (
	"strconv"
	"strings"
)

// lengthKey is the trailing path segment that yields a size.
const lengthKey = "length"

// Path is a parsed variable reference such as "user.name", "user['name']",
// or "items[0].title".
//
// The zero Path resolves to Null.
type Path struct {
	raw  string
	segs []string
}

// ParsePath parses a variable reference.
//
// Bracketed segments are equivalent to dotted segments, with surrounding
// quotes stripped. Unbalanced brackets are repaired first: while there are
// more "[" than "]" the path is truncated at the last "[", and while there
// are more "]" than "[" the last "]" is removed.
func ParsePath(s string) Path {
	s = repairBrackets(strings.TrimSpace(s))

	return Path{raw: s, segs: splitPath(s)}
}

// Resolve is a shorthand for ParsePath(path).Resolve(sc).
func Resolve(path string, sc Scope) Value {
	return ParsePath(path).Resolve(sc)
}

// String returns the repaired source text of the path.
func (p Path) String() string { return p.raw }

// Segments returns a copy of the normalized path segments.
func (p Path) Segments() []string { return append([]string(nil), p.segs...) }

// Dotted returns the normalized dotted form of the path.
func (p Path) Dotted() string { return strings.Join(p.segs, ".") }

// IsZero reports whether the path has no segments.
func (p Path) IsZero() bool { return len(p.segs) == 0 }

// Resolve looks the path up in sc. Any miss yields Null.
//
// A trailing "length" segment yields the element count of a container or the
// rune count of a String, even when a Mapping has a member named "length".
// On a loop frame it yields the frame's iteration count.
func (p Path) Resolve(sc Scope) Value {
	if len(p.segs) == 0 {
		return Null
	}

	cur, ok := sc.Lookup(p.segs[0])
	if !ok {
		return Null
	}

	last := len(p.segs) - 1

	for i := 1; i <= last; i++ {
		seg := p.segs[i]

		if i == last && seg == lengthKey {
			if m := cur.Mapping(); m != nil && m.frame {
				v, _ := m.Get(frameLength)

				return v
			}

			if n, ok := cur.Len(); ok {
				return NumberValue(float64(n))
			}

			return Null
		}

		cur = member(cur, seg)
		if cur.IsNull() {
			return Null
		}
	}

	return cur
}

// member returns the child of v named by seg.
func member(v Value, seg string) Value {
	switch v.kind {
	case KindMapping:
		return v.Get(seg)

	case KindSequence:
		i, err := strconv.Atoi(seg)
		if err != nil {
			return Null
		}

		return v.Index(i)

	default:
		return Null
	}
}

func repairBrackets(s string) string {
	for strings.Count(s, "[") > strings.Count(s, "]") {
		s = s[:strings.LastIndex(s, "[")]
	}

	for strings.Count(s, "]") > strings.Count(s, "[") {
		i := strings.LastIndex(s, "]")
		s = s[:i] + s[i+1:]
	}

	return s
}

func splitPath(s string) []string {
	var (
		segs []string
		cur  strings.Builder
	)

	flush := func() {
		if cur.Len() > 0 {
			segs = append(segs, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '.':
			flush()

		case '[':
			flush()

			end := strings.IndexByte(s[i+1:], ']')
			if end < 0 {
				end = len(s) - i - 1
			}

			if key := unquote(strings.TrimSpace(s[i+1 : i+1+end])); key != "" {
				segs = append(segs, key)
			}

			i += end + 1

		case ']':

		default:
			cur.WriteByte(c)
		}
	}

	flush()

	return segs
}

// unquote strips one pair of matching single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' || first == '"') && first == last {
			return s[1 : len(s)-1]
		}
	}

	return s
}
