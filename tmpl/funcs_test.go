package tmpl

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func echo(args ...Value) (Value, error) {
	if len(args) == 0 {
		return Null, nil
	}

	return args[0], nil
}

func TestNewRegistry_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		funcs []Func
		err   bool
	}{
		{"empty", nil, false},
		{"valid", []Func{{Name: "echo", MinArgs: 0, MaxArgs: 1, Fn: echo}}, false},
		{"variadic", []Func{{Name: "echo", MinArgs: 1, MaxArgs: Variadic, Fn: echo}}, false},
		{"bad identifier", []Func{{Name: "1echo", Fn: echo}}, true},
		{"dotted name", []Func{{Name: "str.upper", Fn: echo}}, true},
		{"missing implementation", []Func{{Name: "echo"}}, true},
		{"negative min", []Func{{Name: "echo", MinArgs: -1, Fn: echo}}, true},
		{"max below min", []Func{{Name: "echo", MinArgs: 2, MaxArgs: 1, Fn: echo}}, true},
		{
			"duplicate",
			[]Func{
				{Name: "echo", MaxArgs: 1, Fn: echo},
				{Name: "echo", MaxArgs: 1, Fn: echo},
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewRegistry(tt.funcs...)
			if tt.err != errors.Is(err, ErrInvalidRegistry) {
				t.Errorf("NewRegistry() error = %v, want error %v", err, tt.err)
			}
		})
	}
}

func TestRegistry_Call(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(
		Func{Name: "echo", MinArgs: 1, MaxArgs: 2, Fn: echo},
		Func{Name: "contains", MinArgs: 0, MaxArgs: 0, Fn: func(...Value) (Value, error) {
			return StringValue("mine"), nil
		}},
		Func{Name: "boom", MaxArgs: Variadic, Fn: func(...Value) (Value, error) {
			return Null, errors.New("boom")
		}},
	)
	if err != nil {
		t.Fatal(err)
	}

	ctx := t.Context()

	got, err := r.Call(ctx, "echo", StringValue("hi"))
	if err != nil || got.String() != "hi" {
		t.Errorf("Call(echo) = %v, %v", got, err)
	}

	// Same arity reuses the compiled program.
	got, err = r.Call(ctx, "echo", NumberValue(2))
	if err != nil || got.String() != "2" {
		t.Errorf("Call(echo) = %v, %v", got, err)
	}

	got, err = r.Call(ctx, "contains")
	if err != nil || got.String() != "mine" {
		t.Errorf("Call(contains) = %v, %v", got, err)
	}

	got, err = r.Call(ctx, "echo", SequenceValue(StringValue("a")))
	if err != nil || got.Kind() != KindSequence {
		t.Errorf("Call(echo) = %v, %v; want sequence", got, err)
	}

	errs := []struct {
		name string
		args []Value
		want error
	}{
		{"missing", nil, ErrDisallowedFunction},
		{"len", []Value{StringValue("x")}, ErrDisallowedFunction},
		{"os.Exit", nil, ErrDisallowedFunction},
		{"echo", nil, ErrFunctionCall},
		{"echo", []Value{Null, Null, Null}, ErrFunctionCall},
		{"boom", nil, ErrFunctionCall},
	}

	for _, tt := range errs {
		if _, err := r.Call(ctx, tt.name, tt.args...); !errors.Is(err, tt.want) {
			t.Errorf("Call(%s, %d args) error = %v, want %v", tt.name, len(tt.args), err, tt.want)
		}
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	if _, err := r.Call(canceled, "echo", Null); !errors.Is(err, context.Canceled) {
		t.Errorf("Call() error = %v, want context.Canceled", err)
	}
}

func TestRegistry_Extend(t *testing.T) {
	t.Parallel()

	base, err := NewRegistry(Func{Name: "b", MaxArgs: 1, Fn: echo})
	if err != nil {
		t.Fatal(err)
	}

	ext, err := base.Extend(Func{Name: "a", MaxArgs: 1, Fn: echo})
	if err != nil {
		t.Fatal(err)
	}

	if got := ext.Names(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Names() = %v", got)
	}

	if got := base.Names(); !slices.Equal(got, []string{"b"}) {
		t.Errorf("base Names() = %v, want unchanged", got)
	}

	if _, err := ext.Extend(Func{Name: "b", MaxArgs: 1, Fn: echo}); !errors.Is(err, ErrInvalidRegistry) {
		t.Errorf("Extend(duplicate) error = %v", err)
	}

	var names []string
	for f := range ext.All() {
		names = append(names, f.Name)
	}

	if !slices.Equal(names, []string{"a", "b"}) {
		t.Errorf("All() = %v", names)
	}

	if _, ok := ext.Lookup("a"); !ok {
		t.Error("Lookup(a) not found")
	}
}

func TestBuiltins_Registry(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(Builtins(nil)...)
	if err != nil {
		t.Fatalf("NewRegistry(Builtins) error: %v", err)
	}

	for f := range r.All() {
		if f.Usage == "" || f.Doc == "" {
			t.Errorf("%s: missing usage or doc", f.Name)
		}
	}

	raw, _ := r.Lookup("raw")
	if !raw.Safe {
		t.Error("raw is not safe")
	}

	upper, _ := r.Lookup("upper")
	if upper.Safe {
		t.Error("upper is safe")
	}
}

func BenchmarkRegistry_Call(b *testing.B) {
	r, err := NewRegistry(Builtins(nil)...)
	if err != nil {
		b.Fatal(err)
	}

	arg := StringValue("hello world")

	for b.Loop() {
		if _, err := r.Call(b.Context(), "upper", arg); err != nil {
			b.Fatal(err)
		}
	}
}
