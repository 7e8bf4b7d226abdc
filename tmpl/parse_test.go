package tmpl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ardnew/curly/log"
)

func mustParse(t *testing.T, src string) *Template {
	t.Helper()

	return parse(t.Context(), "test", src, DefaultOpen, DefaultClose, log.Logger{})
}

func types(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.Type().String()
	}

	return strings.Join(parts, " ")
}

func TestParse_NodeTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want string
	}{
		{"plain", "text"},
		{"{name}", "variable"},
		{"{user['name']}", "variable"},
		{"{a ? 'y' : 'n'}", "ternary"},
		{"{a ? 'y'}", "ternary"},
		{"{upper(name)}", "call"},
		{"{now()}", "call"},
		{"{include 'header'}", "include"},
		{"{include header}", "include"},
		{"{* note *}", "comment"},
		{"a{if x}b{endif}c", "text if text"},
		{"{for i in xs}{i}{endfor}", "for"},
		{"{switch x}{case 1}a{endswitch}", "switch"},
		{"{foo bar}", "text"},
		{"{1 + 2}", "text"},
		{"{endif}", "text"},
		{"{else}", "text"},
		{"{include}", "text"},
		{"{for x}", "text"},
		{"{if}", "text"},
		{"{upper(name}", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()

			if got := types(mustParse(t, tt.src).Nodes); got != tt.want {
				t.Errorf("parse(%q) = [%s], want [%s]", tt.src, got, tt.want)
			}
		})
	}
}

func TestParse_If(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		"{if a}A{elseif b}B{else}C{endif}",
		"{if a}A{else if b}B{else}C{/if}",
	} {
		nodes := mustParse(t, src).Nodes
		if len(nodes) != 1 {
			t.Fatalf("parse(%q) = %d nodes", src, len(nodes))
		}

		n, ok := nodes[0].(*If)
		if !ok {
			t.Fatalf("parse(%q) = %T", src, nodes[0])
		}

		if len(n.Branches) != 2 || !n.HasElse {
			t.Fatalf("branches = %d, else = %v", len(n.Branches), n.HasElse)
		}

		if n.Branches[0].Cond.String() != "a" || n.Branches[1].Cond.String() != "b" {
			t.Errorf("conds = %q %q", n.Branches[0].Cond, n.Branches[1].Cond)
		}
	}
}

func TestParse_For(t *testing.T) {
	t.Parallel()

	n, ok := mustParse(t, "{for key, item in user.tags}{item}{/for}").Nodes[0].(*For)
	if !ok {
		t.Fatal("not a for node")
	}

	if n.Key != "key" || n.Item != "item" || n.Source.Dotted() != "user.tags" || len(n.Body) != 1 {
		t.Errorf("for = %q %q %q %d", n.Key, n.Item, n.Source.Dotted(), len(n.Body))
	}
}

func TestParse_Switch(t *testing.T) {
	t.Parallel()

	n, ok := mustParse(t, "{switch kind}dropped{case 'a', \"b,c\"}AB{case 3}N{default}D{/switch}").Nodes[0].(*Switch)
	if !ok {
		t.Fatal("not a switch node")
	}

	if len(n.Cases) != 2 || !n.HasDefault {
		t.Fatalf("cases = %d, default = %v", len(n.Cases), n.HasDefault)
	}

	labels := n.Cases[0].Labels
	if len(labels) != 2 || labels[0].String() != "'a'" || labels[1].String() != `"b,c"` {
		t.Errorf("labels = %v", labels)
	}
}

func TestParse_Call(t *testing.T) {
	t.Parallel()

	n, ok := mustParse(t, "{truncate(upper(user.name), 3, ', ')}").Nodes[0].(*Call)
	if !ok {
		t.Fatal("not a call node")
	}

	if got := n.Source(); got != "truncate(upper(user.name), 3, ', ')" {
		t.Errorf("Source() = %q", got)
	}

	if len(n.Args) != 3 || n.Args[0].Call == nil || n.Args[0].Call.Name != "upper" {
		t.Errorf("args = %+v", n.Args)
	}
}

func TestParse_RecoversUnterminated(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want string
	}{
		{"{if a}never closed", "text text"},
		{"{for x in xs}{x}", "text variable"},
		{"{switch x}{case 1}one", "text text text"},
		{"{if a}{else}b", "text text text"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()

			if got := types(mustParse(t, tt.src).Nodes); got != tt.want {
				t.Errorf("parse(%q) = [%s], want [%s]", tt.src, got, tt.want)
			}
		})
	}
}

func TestKeyword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		body, kw, rest string
	}{
		{"if a == 1", kwIf, "a == 1"},
		{"else if b", kwElseIf, "b"},
		{"elseif b", kwElseIf, "b"},
		{"/if", kwEndIf, ""},
		{"/switch", kwEndSwitch, ""},
		{"iffy", "", "iffy"},
		{"if(a)", "", "if(a)"},
		{"else", kwElse, ""},
		{"name", "", "name"},
	}

	for _, tt := range tests {
		if kw, rest := keyword(tt.body); kw != tt.kw || rest != tt.rest {
			t.Errorf("keyword(%q) = %q %q, want %q %q", tt.body, kw, rest, tt.kw, tt.rest)
		}
	}
}

func TestKeywords(t *testing.T) {
	t.Parallel()

	got := strings.Join(Keywords(), " ")
	want := "case default else elseif endfor endif endswitch for if include switch"

	if got != want {
		t.Errorf("Keywords() = %q, want %q", got, want)
	}

	for _, kw := range Keywords() {
		if k, _ := keyword(kw); k != kw {
			t.Errorf("keyword(%q) = %q", kw, k)
		}
	}
}

func TestTemplate_Format(t *testing.T) {
	t.Parallel()

	tpl := mustParse(t, "Hi {name}{if a}!{endif}")

	var buf bytes.Buffer
	if err := tpl.Format(t.Context(), &buf, 2); err != nil {
		t.Fatal(err)
	}

	want := "text@1:1 \"Hi \"\nvariable@1:4 name\nif@1:10\n  when a\n    text@1:16 \"!\"\n"
	if buf.String() != want {
		t.Errorf("Format() =\n%s\nwant\n%s", buf.String(), want)
	}

	buf.Reset()

	if err := tpl.FormatJSON(t.Context(), &buf, 0); err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(buf.String(), `{"name":"test","nodes":[{"type":"text","pos":"1:1","text":"Hi "}`) {
		t.Errorf("FormatJSON() = %s", buf.String())
	}

	buf.Reset()

	if err := tpl.FormatYAML(t.Context(), &buf, 2); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(buf.String(), "type: variable") {
		t.Errorf("FormatYAML() = %s", buf.String())
	}
}
