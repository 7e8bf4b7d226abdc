package tmpl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// ValueOf converts a Go value into a [Value].
//
// Maps with unordered keys are converted with their keys sorted so that
// iteration is deterministic. Structs become mappings of their exported
// fields in declaration order, honoring `json` tag names. Values with no
// natural mapping are converted to their fmt.Sprint form.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null

	case Value:
		return x

	case *Mapping:
		if x == nil {
			return Null
		}

		return MappingValue(x)

	case bool:
		return BoolValue(x)

	case string:
		return StringValue(x)

	case []byte:
		return StringValue(string(x))

	case int:
		return NumberValue(float64(x))

	case int64:
		return NumberValue(float64(x))

	case uint64:
		return NumberValue(float64(x))

	case float64:
		return NumberValue(x)

	case json.Number:
		if f, err := x.Float64(); err == nil {
			return NumberValue(f)
		}

		return StringValue(x.String())

	case time.Time:
		return StringValue(x.Format(time.RFC3339))

	case time.Duration:
		return StringValue(x.String())

	case yaml.MapSlice:
		m := NewMapping()
		for _, item := range x {
			m.Set(keyString(item.Key), ValueOf(item.Value))
		}

		return MappingValue(m)

	case []any:
		seq := make([]Value, len(x))
		for i, item := range x {
			seq[i] = ValueOf(item)
		}

		return Value{kind: KindSequence, seq: seq}

	case map[string]any:
		m := NewMapping()
		for _, k := range sortedKeys(x) {
			m.Set(k, ValueOf(x[k]))
		}

		return MappingValue(m)
	}

	return reflectValue(reflect.ValueOf(v))
}

func reflectValue(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Invalid:
		return Null

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null
		}

		return ValueOf(rv.Elem().Interface())

	case reflect.Bool:
		return BoolValue(rv.Bool())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NumberValue(float64(rv.Int()))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr:
		return NumberValue(float64(rv.Uint()))

	case reflect.Float32, reflect.Float64:
		return NumberValue(rv.Float())

	case reflect.String:
		return StringValue(rv.String())

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return SequenceValue()
		}

		seq := make([]Value, rv.Len())
		for i := range seq {
			seq[i] = ValueOf(rv.Index(i).Interface())
		}

		return Value{kind: KindSequence, seq: seq}

	case reflect.Map:
		type entry struct {
			key string
			val reflect.Value
		}

		entries := make([]entry, 0, rv.Len())

		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, entry{
				key: keyString(iter.Key().Interface()),
				val: iter.Value(),
			})
		}

		slices.SortFunc(entries, func(a, b entry) int {
			return strings.Compare(a.key, b.key)
		})

		m := NewMapping()
		for _, e := range entries {
			m.Set(e.key, ValueOf(e.val.Interface()))
		}

		return MappingValue(m)

	case reflect.Struct:
		return structValue(rv)

	default:
		if s, ok := rv.Interface().(fmt.Stringer); ok {
			return StringValue(s.String())
		}

		return StringValue(fmt.Sprint(rv.Interface()))
	}
}

func structValue(rv reflect.Value) Value {
	if s, ok := rv.Interface().(fmt.Stringer); ok {
		return StringValue(s.String())
	}

	m := NewMapping()
	rt := rv.Type()

	for i := range rt.NumField() {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Name

		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}

			if tagName != "" {
				name = tagName
			}
		}

		m.Set(name, ValueOf(rv.Field(i).Interface()))
	}

	return MappingValue(m)
}

func keyString(k any) string {
	switch x := k.(type) {
	case string:
		return x

	case nil:
		return "null"

	default:
		return ValueOf(x).String()
	}
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// Native converts v into plain Go values: nil, bool, float64, string, []any,
// and [yaml.MapSlice] for mappings so that key order survives.
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.b

	case KindNumber:
		if v.n == math.Trunc(v.n) && math.Abs(v.n) < 1<<53 {
			return int64(v.n)
		}

		return v.n

	case KindString:
		return v.s

	case KindSequence:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Native()
		}

		return out

	case KindMapping:
		out := make(yaml.MapSlice, 0, v.m.Len())
		for k, item := range v.m.All() {
			out = append(out, yaml.MapItem{Key: k, Value: item.Native()})
		}

		return out

	default:
		return nil
	}
}

// MarshalJSON encodes v as JSON, keeping mapping keys in insertion order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindSequence:
		buf.WriteByte('[')

		for i, item := range v.seq {
			if i > 0 {
				buf.WriteByte(',')
			}

			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}

		buf.WriteByte(']')

		return nil

	case KindMapping:
		buf.WriteByte('{')

		i := 0
		for k, item := range v.m.All() {
			if i > 0 {
				buf.WriteByte(',')
			}

			i++

			key, err := json.Marshal(k)
			if err != nil {
				return err
			}

			buf.Write(key)
			buf.WriteByte(':')

			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}

		buf.WriteByte('}')

		return nil

	case KindNumber:
		if v.n == float64(int64(v.n)) {
			buf.WriteString(formatNumber(v.n))

			return nil
		}

		b, err := json.Marshal(v.n)
		if err != nil {
			return err
		}

		buf.Write(b)

		return nil

	default:
		b, err := json.Marshal(v.Native())
		if err != nil {
			return err
		}

		buf.Write(b)

		return nil
	}
}

// MarshalYAML implements the goccy/go-yaml InterfaceMarshaler.
func (v Value) MarshalYAML() (any, error) {
	return v.Native(), nil
}
