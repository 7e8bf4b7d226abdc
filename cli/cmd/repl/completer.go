package repl

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/curly/tmpl"
)

// ctrlCommands are the available control-mode commands.
var ctrlCommands = []string{
	"help", "list", "funcs", "set", "edit", "clear", "quit",
}

// previewWidth bounds the rune length of a value preview.
const previewWidth = 40

// isWordBoundary reports whether r separates completion words. Tag
// delimiters, quotes, and call punctuation separate words. Hyphens do not,
// since data keys may contain them.
func isWordBoundary(r rune) bool {
	switch r {
	case '.', ' ', '\t',
		'{', '}', '\'', '"',
		'(', ')', '[', ']',
		'+', '*', '/', '%',
		'<', '>', '=', '!',
		'&', '|', ',', '?', ':', ';':
		return true
	}

	return false
}

// wordBounds returns the word at cursor and its byte offsets within input.
// The word is empty when the cursor sits on a boundary.
func wordBounds(input string, cursor int) (word string, start, end int) {
	cursor = min(max(cursor, 0), len(input))

	start = cursor

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor

	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// parentPath returns the dotted member chain leading up to the word at
// wordStart. For "{user.address.ci" with word "ci" it returns "user.address".
// It returns "" for a word that starts a chain.
func parentPath(input string, wordStart int) string {
	if wordStart <= 0 || input[wordStart-1] != '.' {
		return ""
	}

	prefix := strings.TrimRight(input[:wordStart], ".")
	pos := len(prefix)

	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix[:pos])
		if r != '.' && isWordBoundary(r) {
			break
		}

		pos -= size
	}

	return strings.Trim(prefix[pos:], ". ")
}

// childCandidates returns the completions valid after parent. At the top
// level these are the data keys, function names, keywords, and the loop
// binding. Below it they are the keys of the mapping parent resolves to.
func childCandidates(
	data *tmpl.Mapping,
	reg *tmpl.Registry,
	parent string,
) []string {
	if parent == "" {
		names := data.Keys()
		if reg != nil {
			names = append(names, reg.Names()...)
		}

		names = append(names, tmpl.Keywords()...)

		return append(names, tmpl.LoopName)
	}

	if isLoopFrame(parent) {
		return tmpl.LoopMembers()
	}

	v := tmpl.ParsePath(parent).Resolve(tmpl.NewScope(tmpl.MappingValue(data)))

	return v.Mapping().Keys()
}

// isLoopFrame reports whether parent names a loop frame, such as "loop" or
// "loop.parent.parent". Data never binds "loop" outside of a for block.
func isLoopFrame(parent string) bool {
	head, rest, _ := strings.Cut(parent, ".")
	if head != tmpl.LoopName {
		return false
	}

	for rest != "" {
		var seg string

		seg, rest, _ = strings.Cut(rest, ".")
		if seg != "parent" {
			return false
		}
	}

	return true
}

// computeMatches returns the fuzzy matches for the word at the cursor, best
// first, along with the candidate list and the word's byte offsets. An empty
// word matches nothing at the top level and every child after a dot.
func (m model) computeMatches() (
	matches fuzzy.Matches,
	candidates []string,
	wordStart, wordEnd int,
) {
	input := m.input.Value()

	word, wordStart, wordEnd := wordBounds(input, m.input.Position())

	if m.mode == modeCtrl {
		if word == "" || strings.TrimSpace(input[:wordStart]) != "" {
			return nil, nil, wordStart, wordEnd
		}

		return fuzzy.Find(word, ctrlCommands), ctrlCommands, wordStart, wordEnd
	}

	parent := parentPath(input, wordStart)
	candidates = childCandidates(m.data, m.funcs(), parent)

	if len(candidates) == 0 {
		return nil, nil, wordStart, wordEnd
	}

	if word == "" {
		if parent == "" {
			return nil, nil, wordStart, wordEnd
		}

		matches = make(fuzzy.Matches, len(candidates))
		for i, c := range candidates {
			matches[i] = fuzzy.Match{Str: c, Index: i}
		}

		return matches, candidates, wordStart, wordEnd
	}

	return fuzzy.Find(word, candidates), candidates, wordStart, wordEnd
}

// renderCandidateBar renders matches on one line, ellipsized to width. The
// selected candidate is highlighted while tab-cycling.
func renderCandidateBar(
	matches fuzzy.Matches,
	isFunc func(string) bool,
	suggIdx int,
	tabActive bool,
	width int,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range matches {
		rendered := renderCandidate(match, isFunc(match.Str), tabActive && i == suggIdx)

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if i > 0 && used+entryWidth+ellipsisWidth > width {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders one candidate with its matched runes emphasized.
// Functions get a "()" suffix that is not part of the completion.
func renderCandidate(match fuzzy.Match, function, selected bool) string {
	base, emph := suggestionStyle, matchStyle
	if selected {
		base, emph = selectedStyle, selectedMatchStyle
	}

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(emph.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}

	if function {
		b.WriteString(base.Render("()"))
	}

	return b.String()
}

// formatPreview returns a short one-line rendition of v.
func formatPreview(v tmpl.Value) string {
	switch v.Kind() {
	case tmpl.KindMapping:
		n, _ := v.Len()

		return "{ " + strconv.Itoa(n) + " keys }"

	case tmpl.KindSequence:
		n, _ := v.Len()

		return "[ " + strconv.Itoa(n) + " items ]"

	case tmpl.KindString:
		s, _ := v.Str()
		if utf8.RuneCountInString(s) > previewWidth {
			s = string([]rune(s)[:previewWidth-3]) + "..."
		}

		return strconv.Quote(s)

	case tmpl.KindNull:
		return "null"

	default:
		return v.String()
	}
}
