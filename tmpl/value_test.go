package tmpl

import (
	"math"
	"slices"
	"testing"
)

func TestValue_Truthy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null, false},
		{"false", BoolValue(false), false},
		{"true", BoolValue(true), true},
		{"zero", NumberValue(0), false},
		{"negative", NumberValue(-1), true},
		{"empty string", StringValue(""), false},
		{"zero string", StringValue("0"), true},
		{"empty sequence", SequenceValue(), false},
		{"sequence", SequenceValue(Null), true},
		{"empty mapping", MappingValue(NewMapping()), false},
		{"mapping", MappingValue(NewMapping().Set("k", Null)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.v.Truthy(); got != tt.want {
				t.Errorf("Truthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValue_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null, ""},
		{"true", BoolValue(true), "true"},
		{"false", BoolValue(false), "false"},
		{"integer", NumberValue(42), "42"},
		{"negative", NumberValue(-7), "-7"},
		{"fraction", NumberValue(2.5), "2.5"},
		{"large", NumberValue(1e20), "1e+20"},
		{"nan", NumberValue(math.NaN()), "NaN"},
		{"inf", NumberValue(math.Inf(-1)), "-Inf"},
		{"string", StringValue("x"), "x"},
		{"sequence", SequenceValue(StringValue("x")), ""},
		{"mapping", MappingValue(NewMapping().Set("k", StringValue("v"))), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValue_Number(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v    Value
		want float64
		ok   bool
	}{
		{"number", NumberValue(3), 3, true},
		{"numeric string", StringValue("42"), 42, true},
		{"padded numeric string", StringValue(" 4.5 "), 4.5, true},
		{"exponent", StringValue("1e3"), 1000, true},
		{"signed", StringValue("-.5"), -0.5, true},
		{"word", StringValue("abc"), 0, false},
		{"trailing junk", StringValue("4x"), 0, false},
		{"hex", StringValue("0x10"), 0, false},
		{"bool", BoolValue(true), 0, false},
		{"null", Null, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := tt.v.Number()
			if ok != tt.ok || got != tt.want {
				t.Errorf("Number() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestValue_Len(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v    Value
		want int
		ok   bool
	}{
		{"runes", StringValue("héllo"), 5, true},
		{"sequence", SequenceValue(Null, Null), 2, true},
		{"mapping", MappingValue(NewMapping().Set("a", Null)), 1, true},
		{"number", NumberValue(10), 0, false},
		{"null", Null, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := tt.v.Len()
			if ok != tt.ok || got != tt.want {
				t.Errorf("Len() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestValue_Entries(t *testing.T) {
	t.Parallel()

	seq := SequenceValue(StringValue("a"), StringValue("b"))

	var keys, items []string
	for k, v := range seq.Entries() {
		keys = append(keys, k.String())
		items = append(items, v.String())
	}

	if !slices.Equal(keys, []string{"0", "1"}) || !slices.Equal(items, []string{"a", "b"}) {
		t.Errorf("sequence entries = %v %v", keys, items)
	}

	m := MappingValue(NewMapping().Set("z", NumberValue(1)).Set("a", NumberValue(2)))

	keys = keys[:0]
	for k := range m.Entries() {
		keys = append(keys, k.String())
	}

	if !slices.Equal(keys, []string{"z", "a"}) {
		t.Errorf("mapping entries = %v, want insertion order", keys)
	}

	for range NumberValue(1).Entries() {
		t.Error("scalar yielded an entry")
	}
}

func TestSequenceValue_Copies(t *testing.T) {
	t.Parallel()

	items := []Value{StringValue("a")}
	v := SequenceValue(items...)
	items[0] = StringValue("b")

	if got := v.Index(0).String(); got != "a" {
		t.Errorf("Index(0) = %q, sequence shares caller's slice", got)
	}

	if !v.Index(5).IsNull() || !v.Index(-1).IsNull() {
		t.Error("out of range index is not null")
	}
}

func TestMapping_SetKeepsPosition(t *testing.T) {
	t.Parallel()

	m := NewMapping().
		Set("b", NumberValue(1)).
		Set("a", NumberValue(2)).
		Set("b", NumberValue(3))

	if got := m.Keys(); !slices.Equal(got, []string{"b", "a"}) {
		t.Errorf("Keys() = %v", got)
	}

	if v, _ := m.Get("b"); v.String() != "3" {
		t.Errorf("Get(b) = %v, want 3", v)
	}
}

func TestMapping_Merge(t *testing.T) {
	t.Parallel()

	base := NewMapping().
		Set("site", MappingValue(NewMapping().
			Set("name", StringValue("old")).
			Set("lang", StringValue("en")))).
		Set("n", NumberValue(1))

	over := NewMapping().
		Set("site", MappingValue(NewMapping().Set("name", StringValue("new")))).
		Set("extra", BoolValue(true))

	got := base.Merge(over)

	site := MappingValue(got).Get("site")
	if site.Get("name").String() != "new" || site.Get("lang").String() != "en" {
		t.Errorf("site = %v %v", site.Get("name"), site.Get("lang"))
	}

	if !slices.Equal(got.Keys(), []string{"site", "n", "extra"}) {
		t.Errorf("Keys() = %v", got.Keys())
	}

	if v, _ := base.Get("site"); v.Get("name").String() != "old" {
		t.Error("Merge modified the receiver")
	}
}

func TestMapping_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Mapping

	if m.Len() != 0 || m.Keys() != nil {
		t.Error("nil mapping not empty")
	}

	if _, ok := m.Get("x"); ok {
		t.Error("nil mapping has a key")
	}

	if v := MappingValue(nil); v.Kind() != KindMapping || v.Truthy() {
		t.Errorf("MappingValue(nil) = %v, want an empty mapping", v.Kind())
	}
}
