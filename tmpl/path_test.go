package tmpl

import (
	"slices"
	"testing"
)

func testScope() Scope {
	return NewScope(ValueOf(map[string]any{
		"user": map[string]any{
			"name":  "John",
			"tags":  []any{"a", "b", "c"},
			"admin": true,
		},
		"items": []any{
			map[string]any{"title": "first"},
			map[string]any{"title": "second"},
		},
		"box":   map[string]any{"length": 7, "width": 2},
		"empty": "",
		"zero":  0,
	}))
}

func TestPath_Resolve(t *testing.T) {
	t.Parallel()

	sc := testScope()

	tests := []struct {
		path string
		want string
		null bool
	}{
		{path: "user.name", want: "John"},
		{path: "user['name']", want: "John"},
		{path: `user["name"]`, want: "John"},
		{path: "user[name]", want: "John"},
		{path: "items[1].title", want: "second"},
		{path: "items.0.title", want: "first"},
		{path: "user.tags[2]", want: "c"},
		{path: "user.tags.length", want: "3"},
		{path: "user.name.length", want: "4"},
		{path: "items.length", want: "2"},
		{path: "box.length", want: "2"},
		{path: "box['length']", want: "2"},
		{path: "zero", want: "0"},
		{path: "user.admin", want: "true"},
		{path: "user.missing", null: true},
		{path: "user.name.first", null: true},
		{path: "items[9].title", null: true},
		{path: "items.x", null: true},
		{path: "zero.length", null: true},
		{path: "nobody", null: true},
		{path: "", null: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			got := Resolve(tt.path, sc)
			if got.IsNull() != tt.null || got.String() != tt.want {
				t.Errorf("Resolve(%q) = %v %q, want null=%v %q", tt.path, got.Kind(), got.String(), tt.null, tt.want)
			}
		})
	}
}

func TestParsePath_Notation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"a.b.c", []string{"a", "b", "c"}},
		{"a['b'].c", []string{"a", "b", "c"}},
		{`a["b"][0]`, []string{"a", "b", "0"}},
		{"a[ 'b c' ]", []string{"a", "b c"}},
		{"a.[b]", []string{"a", "b"}},
		{"a..b", []string{"a", "b"}},
		{"a['b'", []string{"a"}},
		{"a[b][c", []string{"a", "b"}},
		{"a.b]", []string{"a", "b"}},
		{"  a.b  ", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			if got := ParsePath(tt.in).Segments(); !slices.Equal(got, tt.want) {
				t.Errorf("ParsePath(%q).Segments() = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParsePath_Equivalence(t *testing.T) {
	t.Parallel()

	forms := []string{"user.tags.1", "user['tags'][1]", `user["tags"].1`, "user.tags[1]"}

	for _, f := range forms {
		if got := ParsePath(f).Dotted(); got != "user.tags.1" {
			t.Errorf("ParsePath(%q).Dotted() = %q", f, got)
		}

		if got := Resolve(f, testScope()).String(); got != "b" {
			t.Errorf("Resolve(%q) = %q, want b", f, got)
		}
	}
}

func TestScope_Bind(t *testing.T) {
	t.Parallel()

	outer := testScope()
	inner := outer.Bind("user", StringValue("shadow")).Bind("x", NumberValue(1))

	if got := Resolve("user", inner).String(); got != "shadow" {
		t.Errorf("inner user = %q", got)
	}

	if got := Resolve("user.name", outer).String(); got != "John" {
		t.Errorf("outer user.name = %q, binding leaked", got)
	}

	if _, ok := outer.Lookup("x"); ok {
		t.Error("outer scope sees inner binding")
	}

	names := inner.Names()
	if names[0] != "x" || names[1] != "user" || slices.Index(names, "items") < 0 {
		t.Errorf("Names() = %v", names)
	}

	if !outer.Loop().IsNull() {
		t.Error("Loop() outside a loop is not null")
	}

	rooted := NewScope(ValueOf(map[string]any{"loop": "data"}))
	if !rooted.Loop().IsNull() {
		t.Errorf("Loop() = %q, want null for root data", rooted.Loop().String())
	}

	frame := loopFrame(0, 3, Null)
	if got := Resolve("loop.length", rooted.Bind(LoopName, frame)).String(); got != "3" {
		t.Errorf("loop.length = %q, want iteration count", got)
	}
}
