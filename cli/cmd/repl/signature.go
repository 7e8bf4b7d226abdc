package repl

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/curly/tmpl"
)

var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
	docStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

// functionCall describes the call whose argument list holds the cursor.
type functionCall struct {
	name     string
	argIndex int
	inCall   bool
}

// callFrame is an open parenthesis seen while scanning.
type callFrame struct {
	name   string
	commas int
}

// detectFunctionCall scans input up to cursor and reports the innermost call
// left open at the cursor. Quoted strings are skipped and tag delimiters
// reset the scan, so calls in an earlier tag are never reported.
func detectFunctionCall(input string, cursor int) functionCall {
	cursor = min(max(cursor, 0), len(input))

	var (
		stack []callFrame
		quote rune
	)

	for i, r := range input[:cursor] {
		if quote != 0 {
			if r == quote {
				quote = 0
			}

			continue
		}

		switch r {
		case '\'', '"':
			quote = r

		case '{', '}':
			stack = stack[:0]

		case '(':
			stack = append(stack, callFrame{name: calleeBefore(input, i)})

		case ')':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case ',':
			if len(stack) > 0 {
				stack[len(stack)-1].commas++
			}
		}
	}

	if len(stack) == 0 {
		return functionCall{}
	}

	top := stack[len(stack)-1]
	if top.name == "" {
		return functionCall{}
	}

	return functionCall{name: top.name, argIndex: top.commas, inCall: true}
}

// calleeBefore returns the identifier ending at byte offset paren.
func calleeBefore(input string, paren int) string {
	start := paren

	for start > 0 {
		c := input[start-1]
		if c != '_' && !('a' <= c && c <= 'z') && !('A' <= c && c <= 'Z') &&
			!('0' <= c && c <= '9') {
			break
		}

		start--
	}

	return input[start:paren]
}

// getSignature returns the call synopsis of the registered function name and
// its parameter names. Functions registered without a synopsis get numbered
// parameters derived from their arity. It returns "" when name is unknown.
func getSignature(
	reg *tmpl.Registry,
	name string,
) (signature string, params []string) {
	if reg == nil {
		return "", nil
	}

	f, ok := reg.Lookup(name)
	if !ok {
		return "", nil
	}

	lp, rp := strings.Index(f.Usage, "("), strings.LastIndex(f.Usage, ")")
	if lp >= 0 && rp > lp {
		for p := range strings.SplitSeq(f.Usage[lp+1:rp], ",") {
			if p = strings.TrimSpace(p); p != "" {
				params = append(params, p)
			}
		}

		return f.Usage, params
	}

	n := f.MaxArgs
	if n == tmpl.Variadic {
		n = f.MinArgs + 1
	}

	for i := range n {
		p := "arg" + strconv.Itoa(i+1)

		switch {
		case f.MaxArgs == tmpl.Variadic && i == n-1:
			p += "..."

		case i >= f.MinArgs:
			p += "?"
		}

		params = append(params, p)
	}

	return name + "(" + strings.Join(params, ", ") + ")", params
}

// isVariadicParam reports whether p absorbs all remaining arguments.
func isVariadicParam(p string) bool {
	return strings.HasPrefix(p, "...") || strings.HasSuffix(p, "...")
}

// renderSignatureHint renders signature with the parameter at argIdx
// highlighted. A variadic parameter stays highlighted for every argument
// past it.
func renderSignatureHint(signature string, params []string, argIdx int) string {
	lp := strings.Index(signature, "(")
	if lp < 0 {
		return signatureStyle.Render(signature)
	}

	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(signature[:lp]))
	b.WriteString(signatureStyle.Render("("))

	for i, p := range params {
		if i > 0 {
			b.WriteString(signatureStyle.Render(", "))
		}

		if i == argIdx || (argIdx > i && isVariadicParam(p)) {
			b.WriteString(currentParamStyle.Render(p))
		} else {
			b.WriteString(signatureStyle.Render(p))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	return b.String()
}
