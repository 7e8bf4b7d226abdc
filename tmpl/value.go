package tmpl

import (
	"iter"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind identifies the variant held by a [Value].
type Kind uint8

const (
	// KindNull is the absent value. Unresolved paths produce it.
	KindNull Kind = iota

	// KindBool is a boolean.
	KindBool

	// KindNumber is a 64-bit floating point number.
	KindNumber

	// KindString is a UTF-8 string.
	KindString

	// KindSequence is an ordered list of values.
	KindSequence

	// KindMapping is an insertion-ordered map with unique string keys.
	KindMapping
)

// String returns a string representation of the value kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"

	case KindBool:
		return "bool"

	case KindNumber:
		return "number"

	case KindString:
		return "string"

	case KindSequence:
		return "sequence"

	case KindMapping:
		return "mapping"

	default:
		return "unknown"
	}
}

// Value is an immutable tagged union of the data a template can see.
//
// The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	seq  []Value
	m    *Mapping
}

// Null is the Null value.
var Null = Value{}

// BoolValue returns a Bool value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// NumberValue returns a Number value.
func NumberValue(n float64) Value { return Value{kind: KindNumber, n: n} }

// StringValue returns a String value.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// SequenceValue returns a Sequence holding a copy of items.
func SequenceValue(items ...Value) Value {
	seq := make([]Value, len(items))
	copy(seq, items)

	return Value{kind: KindSequence, seq: seq}
}

// MappingValue returns a Mapping value backed by m.
// A nil m yields an empty Mapping.
//
// The Mapping must not be modified after it is wrapped.
func MappingValue(m *Mapping) Value {
	if m == nil {
		m = NewMapping()
	}

	return Value{kind: KindMapping, m: m}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsContainer reports whether v is a Sequence or Mapping.
func (v Value) IsContainer() bool {
	return v.kind == KindSequence || v.kind == KindMapping
}

// Bool returns the boolean held by v and whether v is a Bool.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Str returns the string held by v and whether v is a String.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Mapping returns the mapping held by v, or nil.
func (v Value) Mapping() *Mapping {
	if v.kind != KindMapping {
		return nil
	}

	return v.m
}

// Items returns a copy of the elements of a Sequence, or nil.
func (v Value) Items() []Value {
	if v.kind != KindSequence {
		return nil
	}

	return append([]Value(nil), v.seq...)
}

// numericPattern matches the numeric literals a String may coerce from.
var numericPattern = regexp.MustCompile(
	`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`,
)

// IsNumericString reports whether s is a numeric literal.
func IsNumericString(s string) bool {
	return numericPattern.MatchString(s)
}

// Number returns v coerced to a number and whether the coercion applies.
// Only Numbers and numeric Strings coerce; Bool never does.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.n, true

	case KindString:
		s := strings.TrimSpace(v.s)
		if !IsNumericString(s) {
			return 0, false
		}

		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}

		return n, true

	default:
		return 0, false
	}
}

// Truthy reports the truthiness of v as used by bare conditions.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b

	case KindNumber:
		return v.n != 0

	case KindString:
		return v.s != ""

	case KindSequence:
		return len(v.seq) > 0

	case KindMapping:
		return v.m.Len() > 0

	default:
		return false
	}
}

// Len returns the element count of a container, the rune count of a String,
// and false for every other kind.
func (v Value) Len() (int, bool) {
	switch v.kind {
	case KindString:
		return utf8.RuneCountInString(v.s), true

	case KindSequence:
		return len(v.seq), true

	case KindMapping:
		return v.m.Len(), true

	default:
		return 0, false
	}
}

// Index returns the i'th element of a Sequence, or Null.
func (v Value) Index(i int) Value {
	if v.kind != KindSequence || i < 0 || i >= len(v.seq) {
		return Null
	}

	return v.seq[i]
}

// Get returns the member of a Mapping, or Null.
func (v Value) Get(key string) Value {
	if v.kind != KindMapping {
		return Null
	}

	val, _ := v.m.Get(key)

	return val
}

// Entries iterates the elements of a container. Sequences yield their
// indices as keys.
func (v Value) Entries() iter.Seq2[Value, Value] {
	return func(yield func(Value, Value) bool) {
		switch v.kind {
		case KindSequence:
			for i, item := range v.seq {
				if !yield(NumberValue(float64(i)), item) {
					return
				}
			}

		case KindMapping:
			for k, item := range v.m.All() {
				if !yield(StringValue(k), item) {
					return
				}
			}
		}
	}
}

// String returns the text form of a scalar. Null and containers have no
// text form and yield "".
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)

	case KindNumber:
		return formatNumber(v.n)

	case KindString:
		return v.s

	default:
		return ""
	}
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"

	case math.IsInf(n, 1):
		return "Inf"

	case math.IsInf(n, -1):
		return "-Inf"

	case n == math.Trunc(n) && math.Abs(n) < 1e15:
		return strconv.FormatFloat(n, 'f', -1, 64)

	default:
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
}

// Mapping is an insertion-ordered string-keyed map.
//
// A Mapping is built with [Mapping.Set] and treated as immutable once wrapped
// in a [Value].
type Mapping struct {
	keys  []string
	vals  map[string]Value
	frame bool // loop frame: "length" is the iteration count
}

// NewMapping returns an empty Mapping.
func NewMapping() *Mapping {
	return &Mapping{vals: make(map[string]Value)}
}

// Set stores val under key. Re-setting a key keeps its original position.
func (m *Mapping) Set(key string, val Value) *Mapping {
	if m.vals == nil {
		m.vals = make(map[string]Value)
	}

	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}

	m.vals[key] = val

	return m
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Value, bool) {
	if m == nil {
		return Null, false
	}

	val, ok := m.vals[key]

	return val, ok
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}

	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}

	return append([]string(nil), m.keys...)
}

// All iterates the entries in insertion order.
func (m *Mapping) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if m == nil {
			return
		}

		for _, k := range m.keys {
			if !yield(k, m.vals[k]) {
				return
			}
		}
	}
}

// Clone returns a shallow copy of m that may be modified independently.
func (m *Mapping) Clone() *Mapping {
	c := NewMapping()

	for k, v := range m.All() {
		c.Set(k, v)
	}

	return c
}

// Merge returns a new Mapping with the entries of other laid over m.
// Nested mappings present on both sides are merged recursively.
func (m *Mapping) Merge(other *Mapping) *Mapping {
	out := m.Clone()

	for k, v := range other.All() {
		prev, ok := out.Get(k)
		if ok && prev.kind == KindMapping && v.kind == KindMapping {
			out.Set(k, MappingValue(prev.m.Merge(v.m)))

			continue
		}

		out.Set(k, v)
	}

	return out
}
