package tmpl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/k14s/difflib"
)

func testData() map[string]any {
	return map[string]any{
		"user":  map[string]any{"name": "John", "admin": true},
		"items": []any{"a", "b"},
		"xs":    []any{1, 2, 3},
		"m":     map[string]any{"b": 2, "a": 1},
		"n":     4,
		"html":  "<B>",
		"quote": `"a's" & b`,
		"title": "T",
		"kind":  "b",
	}
}

func render(t *testing.T, text string, data any, opts ...Option) (string, error) {
	t.Helper()

	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return e.Render(t.Context(), text, data)
}

func TestEngine_Render(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"variable", "Hello {user.name}", "Hello John"},
		{"bracket variable", "{user['name']}", "John"},
		{"missing path", "[{x.y.z}]", "[]"},
		{"number", "{n}", "4"},
		{"bool", "{user.admin}", "true"},
		{"variable escapes", "{html}", "&lt;B&gt;"},
		{"variable escapes quotes", "{quote}", "&#34;a&#39;s&#34; &amp; b"},
		{"loop index", "{for item in items}[{loop.index}:{item}]{endfor}", "[1:a][2:b]"},
		{"short closers", "{for item in items}{item}{/for}", "ab"},
		{
			"loop frame",
			"{for i in xs}{loop.index0}{loop.first ? 'F'}{loop.last ? 'L'}{loop.length},{endfor}",
			"0F3,13,2L3,",
		},
		{
			"loop parent",
			"{for a in items}{for b in items}{loop.parent.index}{loop.index} {endfor}{endfor}",
			"11 12 21 22 ",
		},
		{"loop over mapping", "{for k, v in m}{k}={v};{endfor}", "a=1;b=2;"},
		{"loop with index key", "{for i, v in items}{i}:{v} {endfor}", "0:a 1:b "},
		{"loop over scalar", "{for c in title}{c}{endfor}", ""},
		{"loop binding does not leak", "{for title in items}{title}{endfor}{title}", "abT"},
		{"loop outside loop", "[{loop.index}]", "[]"},
		{"if", "{if user.admin}yes{endif}", "yes"},
		{"if false", "{if !user.admin}yes{endif}", ""},
		{"elseif", "{if n > 5}big{elseif n > 2}mid{else}small{endif}", "mid"},
		{"else", "{if n > 50}big{elseif n > 20}mid{else}small{endif}", "small"},
		{"else if", "{if n < 1}a{else if n == '4'}b{/if}", "b"},
		{"first branch wins", "{if n}1{elseif n}2{else}3{endif}", "1"},
		{"switch", "{switch kind}{case 'a', 'b'}AB{case 'c'}C{default}D{endswitch}", "AB"},
		{"switch loose", "{switch n}{case '4'}four{endswitch}", "four"},
		{"switch default", "{switch title}{case 'x'}X{default}D{/switch}", "D"},
		{"switch no match", "{switch title}{case 'x'}X{endswitch}", ""},
		{"switch drops lead", "{switch kind}lead{case 'b'}B{endswitch}", "B"},
		{"ternary", "{user.admin ? 'yes' : 'no'}", "yes"},
		{"ternary else", "{n > 10 ? 'big' : n}", "4"},
		{"ternary without else", "[{n > 10 ? 'big'}]", "[]"},
		{"ternary escapes", "{user.admin ? html : 'n'}", "&lt;B&gt;"},
		{"ternary else escapes", "{n > 10 ? 'big' : html}", "&lt;B&gt;"},
		{"comment", "a{* hidden {x} *}b", "ab"},
		{"call", "{upper(user.name)}", "JOHN"},
		{"call escapes", "{lower(html)}", "&lt;b&gt;"},
		{"raw", "{raw(html)}", "<B>"},
		{"nested call escapes", "{upper(raw(html))}", "&lt;B&gt;"},
		{"nested calls", "{truncate(upper(title), 0)}...", "......"},
		{"call nesting too deep", "{upper(lower(trim(title)))}", "{upper(lower(trim(title)))}"},
		{"split and join", "{join(split('a;b', ';'), '+')}", "a+b"},
		{"json", "{raw(json(user))}", `{"admin":true,"name":"John"}`},
		{"brace with space", "a { b } c", "a { b } c"},
		{"css", "p { color: red; }", "p { color: red; }"},
		{"unknown tag", "{foo bar}", "{foo bar}"},
		{"unterminated if", "{if n}never closed", "{if n}never closed"},
		{"unterminated for", "{for i in xs}{i}", "{for i in xs}"},
		{"stray endif", "a{endif}b", "a{endif}b"},
		{"multiline tag", "{n\n}", "{n\n}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := render(t, tt.text, testData())
			if err != nil {
				t.Fatalf("Render(%q) error: %v", tt.text, err)
			}

			if got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestEngine_Render_Idempotent(t *testing.T) {
	t.Parallel()

	const text = "{for i in xs}{i}{if loop.last}.{endif}{endfor} {user.name}"

	e, err := New()
	if err != nil {
		t.Fatal(err)
	}

	first, err := e.Render(t.Context(), text, testData())
	if err != nil {
		t.Fatal(err)
	}

	for range 3 {
		again, err := e.Render(t.Context(), text, testData())
		if err != nil || again != first {
			t.Fatalf("Render() = %q, %v; want %q", again, err, first)
		}
	}

	if first != "123. John" {
		t.Errorf("Render() = %q", first)
	}
}

func TestEngine_LoopRootData(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"loop":  "rootloop",
		"items": []any{"a", "b"},
		"box":   map[string]any{"length": 7, "width": 2},
	}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"parent is not root data", "{for x in items}[{loop.parent}]{endfor}", "[][]"},
		{"frame shadows root data", "{for x in items}{loop.index}{endfor}{loop}", "12rootloop"},
		{"length counts members", "{box.length}", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := render(t, tt.text, data)
			if err != nil || got != tt.want {
				t.Errorf("Render(%q) = %q, %v; want %q", tt.text, got, err, tt.want)
			}
		})
	}
}

func TestEngine_Golden(t *testing.T) {
	t.Parallel()

	const text = `{* header *}Report: {title}
{for i in items}- {loop.index}. {upper(i)}{if loop.last} (last){endif}
{endfor}Admin: {user.admin ? 'yes' : 'no'}
Total: {items.length}
`

	const want = `Report: T
- 1. A
- 2. B (last)
Admin: yes
Total: 2
`

	got, err := render(t, text, testData())
	if err != nil {
		t.Fatal(err)
	}

	if got != want {
		t.Errorf("Render() mismatch:\n%s", difflib.PPDiff(
			strings.Split(want, "\n"),
			strings.Split(got, "\n"),
		))
	}
}

func TestEngine_Policy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		policy Policy
		want   string
		err    error
	}{
		{"missing include comment", "{include 'nope'}", PolicyComment, "<!-- curly: template not found: nope -->", nil},
		{"missing include fail", "{include 'nope'}", PolicyFail, "", ErrNotFound},
		{"missing include silent", "a{include 'nope'}b", PolicySilent, "ab", nil},
		{"disallowed comment", "{system('ls')}", PolicyComment, "<!-- curly: function not allowed: system -->", nil},
		{"disallowed fail", "{system('ls')}", PolicyFail, "", ErrDisallowedFunction},
		{"disallowed silent", "[{system()}]", PolicySilent, "[]", nil},
		{"call failure comment", "{repeat('a', 'x')}", PolicyComment, "<!-- curly: function call failed: repeat -->", nil},
		{"call failure fail", "{repeat('a', 'x')}", PolicyFail, "", ErrFunctionCall},
		{"arity comment", "{upper()}", PolicyComment, "<!-- curly: function call failed: upper -->", nil},
		{"marker sanitized", "{include 'a--b'}", PolicyComment, "<!-- curly: template not found: a- -b -->", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := render(t, tt.text, testData(), WithPolicy(tt.policy), WithLoader(MapLoader{}))

			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("Render(%q) error = %v, want %v", tt.text, err, tt.err)
				}

				return
			}

			if err != nil {
				t.Fatalf("Render(%q) error: %v", tt.text, err)
			}

			if got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestEngine_DebugMarker(t *testing.T) {
	t.Parallel()

	got, err := render(t, "ab\n  {include 'nope'}", nil, WithDebug(true))
	if err != nil {
		t.Fatal(err)
	}

	if want := "ab\n  <!-- curly: template not found: nope at 2:3 -->"; got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestEngine_Include(t *testing.T) {
	t.Parallel()

	loader := MapLoader{
		"header":  "H:{title}",
		"row":     "{for i in items}<{i}>{endfor}",
		"outer":   "[{include 'header'}]",
		"partial": "{if user.admin}{include 'row'}{endif}",
	}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"quoted", "{include 'header'}", "H:T"},
		{"bare name", "{include header}", "H:T"},
		{"dynamic name", "{for t in names}{include t};{endfor}", "H:T;<a><b>;"},
		{"nested", "{include 'outer'}", "[H:T]"},
		{"shares scope", "{include 'partial'}", "<a><b>"},
		{"inside loop", "{for title in items}{include 'header'}{endfor}", "H:aH:b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := testData()
			data["names"] = []any{"header", "row"}

			got, err := render(t, tt.text, data, WithLoader(loader))
			if err != nil {
				t.Fatalf("Render(%q) error: %v", tt.text, err)
			}

			if got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestEngine_IncludeCycle(t *testing.T) {
	t.Parallel()

	loader := MapLoader{
		"a":    "{include 'b'}",
		"b":    "x{include 'a'}",
		"self": "{include 'self'}",
	}

	for _, policy := range []Policy{PolicyComment, PolicyFail, PolicySilent} {
		e, err := New(WithLoader(loader), WithPolicy(policy))
		if err != nil {
			t.Fatal(err)
		}

		_, err = e.Render(t.Context(), "{include 'a'}", nil)
		if !errors.Is(err, ErrIncludeCycle) || !errors.Is(err, ErrResourceLimit) {
			t.Errorf("policy %v: error = %v, want circular include", policy, err)
		}

		_, err = e.RenderFile(t.Context(), "self", nil)
		if !errors.Is(err, ErrIncludeCycle) {
			t.Errorf("policy %v: self include error = %v", policy, err)
		}
	}
}

func TestEngine_Limits(t *testing.T) {
	t.Parallel()

	chain := MapLoader{
		"p0": "{include 'p1'}",
		"p1": "{include 'p2'}",
		"p2": "{include 'p3'}",
		"p3": "{include 'p4'}",
		"p4": "end",
	}

	data := map[string]any{
		"a":  true,
		"xs": []any{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	}

	tests := []struct {
		name string
		text string
		opts []Option
		want string
		err  bool
	}{
		{"steps", "{for i in xs}{i}{endfor}", []Option{WithMaxSteps(5)}, "", true},
		{"steps within", "{for i in xs}{i}{endfor}", []Option{WithMaxSteps(11)}, "0123456789", false},
		{"memory", "{for i in xs}abcdef{endfor}", []Option{WithMemoryLimit(10)}, "", true},
		{"memory within", "{for i in xs}abcdef{endfor}", []Option{WithMemoryLimit(60)}, strings.Repeat("abcdef", 10), false},
		{"memory before repeat", "{repeat('aaaaaaaaaa', 50000000)}", []Option{WithMemoryLimit(1024)}, "", true},
		{"memory before nested repeat", "{upper(repeat('ab', 1000))}", []Option{WithMemoryLimit(100)}, "", true},
		{"memory before replace", "{replace(repeat('a', 50), 'a', 'bbbbbbbbbb')}", []Option{WithMemoryLimit(100)}, "", true},
		{"memory repeat within", "x{repeat('ab', 3)}", []Option{WithMemoryLimit(7)}, "xababab", false},
		{"depth", "{if a}{if a}{if a}x{endif}{endif}{endif}", []Option{WithMaxDepth(2)}, "", true},
		{"depth within", "{if a}{if a}{if a}x{endif}{endif}{endif}", []Option{WithMaxDepth(3)}, "x", false},
		{"include depth", "{include 'p0'}", []Option{WithLoader(chain), WithMaxIncludeDepth(3)}, "", true},
		{"include depth within", "{include 'p0'}", []Option{WithLoader(chain), WithMaxIncludeDepth(5)}, "end", false},
		{"includes disabled", "{include 'p4'}", []Option{WithLoader(chain), WithMaxIncludeDepth(0)}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := render(t, tt.text, data, append(tt.opts, WithPolicy(PolicySilent))...)
			if tt.err {
				if !errors.Is(err, ErrResourceLimit) {
					t.Fatalf("error = %v, want resource limit", err)
				}

				return
			}

			if err != nil || got != tt.want {
				t.Errorf("Render() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestEngine_Options(t *testing.T) {
	t.Parallel()

	invalid := [][]Option{
		{WithMaxDepth(0)},
		{WithMaxSteps(-1)},
		{WithMemoryLimit(0)},
		{WithMaxIncludeDepth(-1)},
		{WithDelimiters("{", "{")},
		{WithDelimiters("", "}")},
		{WithPolicy(Policy(9))},
		{WithClock(nil)},
	}

	for i, opts := range invalid {
		if _, err := New(opts...); !errors.Is(err, ErrInvalidOption) {
			t.Errorf("case %d: New() error = %v, want invalid option", i, err)
		}
	}

	_, err := New(WithFunctions(Func{Name: "upper", MinArgs: 1, MaxArgs: 1, Fn: func(a ...Value) (Value, error) { return a[0], nil }}))
	if !errors.Is(err, ErrInvalidRegistry) {
		t.Errorf("duplicate function error = %v", err)
	}
}

func TestEngine_CustomFunctionsAndClock(t *testing.T) {
	t.Parallel()

	greet := Func{
		Name: "greet", Usage: "greet(name)", MinArgs: 1, MaxArgs: 1,
		Fn: func(args ...Value) (Value, error) { return StringValue("hi " + args[0].String()), nil },
	}

	clock := func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	got, err := render(t, "{greet(user.name)} {date('Y-m-d H:i:s')} {date('D, d M Y', 0)}", testData(),
		WithFunctions(greet), WithClock(clock))
	if err != nil {
		t.Fatal(err)
	}

	if want := "hi John 2024-01-02 03:04:05 Thu, 01 Jan 1970"; got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestEngine_Delimiters(t *testing.T) {
	t.Parallel()

	got, err := render(t, "<% user.name %> {user.name} <%* note *%>", testData(), WithDelimiters("<%", "%>"))
	if err != nil {
		t.Fatal(err)
	}

	if want := "John {user.name} "; got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}

	e, err := New(WithDelimiters("<%", "%>"))
	if err != nil {
		t.Fatal(err)
	}

	if open, end := e.Delimiters(); open != "<%" || end != "%>" {
		t.Errorf("Delimiters() = %q %q", open, end)
	}
}

func TestEngine_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	e, err := New()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.Render(ctx, "{n}", testData()); !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
}

func TestEngine_RenderFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	write := func(name, text string) {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}

		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("page.tpl", "<h1>{include 'partials/head'}</h1>")
	write("partials/head.tpl", "{title}")

	e, err := New(WithLoader(DirLoader{Root: dir, Ext: DefaultExt}))
	if err != nil {
		t.Fatal(err)
	}

	got, err := e.RenderFile(t.Context(), "page", testData())
	if err != nil {
		t.Fatal(err)
	}

	if got != "<h1>T</h1>" {
		t.Errorf("RenderFile() = %q", got)
	}

	for _, name := range []string{"nope", "../page", "/etc/passwd"} {
		if _, err := e.RenderFile(t.Context(), name, nil); !errors.Is(err, ErrNotFound) {
			t.Errorf("RenderFile(%q) error = %v, want not found", name, err)
		}
	}
}

func TestRender_Package(t *testing.T) {
	t.Parallel()

	got, err := Render(t.Context(), "{title}!", map[string]string{"title": "ok"})
	if err != nil || got != "ok!" {
		t.Errorf("Render() = %q, %v", got, err)
	}

	if _, err := Render(t.Context(), "", nil, WithMaxSteps(0)); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("Render() error = %v, want invalid option", err)
	}
}

func BenchmarkEngine_Render(b *testing.B) {
	e, err := New()
	if err != nil {
		b.Fatal(err)
	}

	const text = `<ul>{for item in items}<li class="{loop.first ? 'first' : 'rest'}">{upper(item)}</li>{endfor}</ul>`

	data := testData()

	for b.Loop() {
		if _, err := e.Render(b.Context(), text, data); err != nil {
			b.Fatal(err)
		}
	}
}
