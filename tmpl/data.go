package tmpl

import (
	"cmp"
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
)

// DataFormat identifies the encoding of a data file.
type DataFormat uint8

const (
	// FormatYAML is YAML. JSON documents are decoded as YAML.
	FormatYAML DataFormat = iota
	// FormatJSON is JSON.
	FormatJSON
	// FormatTOML is TOML.
	FormatTOML
)

// String returns the lowercase name of the format.
func (f DataFormat) String() string {
	switch f {
	case FormatYAML:
		return "yaml"

	case FormatJSON:
		return "json"

	case FormatTOML:
		return "toml"

	default:
		return "unknown"
	}
}

// FormatOf returns the data format of a file by its extension.
func FormatOf(path string) (DataFormat, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true

	case ".json":
		return FormatJSON, true

	case ".toml":
		return FormatTOML, true

	default:
		return FormatYAML, false
	}
}

// ReadData reads and decodes the data file at path, or stdin when path is
// "-" (decoded as YAML).
func ReadData(ctx context.Context, path string) (*Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		r      io.Reader
		format = FormatYAML
	)

	if path == "-" {
		r = os.Stdin
	} else {
		f, ok := FormatOf(path)
		if !ok {
			return nil, ErrUnsupportedFormat.With(slog.String("path", path))
		}

		file, err := os.Open(path)
		if err != nil {
			return nil, ErrReadInput.Wrap(err).With(slog.String("path", path))
		}
		defer file.Close()

		r, format = file, f
	}

	text, err := readAll(r, path)
	if err != nil {
		return nil, err
	}

	m, err := DecodeData(ctx, format, []byte(text))
	if err != nil {
		return nil, WrapError(err).With(slog.String("path", path))
	}

	return m, nil
}

// DecodeData decodes a document whose root is a mapping. Mapping keys keep
// their document order.
func DecodeData(ctx context.Context, format DataFormat, data []byte) (*Mapping, error) {
	var (
		root Value
		err  error
	)

	switch format {
	case FormatYAML, FormatJSON:
		root, err = decodeYAML(ctx, data)

	case FormatTOML:
		root, err = decodeTOML(data)

	default:
		return nil, ErrUnsupportedFormat.With(slog.String("format", format.String()))
	}

	if err != nil {
		return nil, ErrDecodeData.Wrap(err).With(slog.String("format", format.String()))
	}

	switch root.Kind() {
	case KindMapping:
		return root.Mapping(), nil

	case KindNull:
		return NewMapping(), nil

	default:
		return nil, ErrDecodeData.With(
			slog.String("format", format.String()),
			slog.String("issue", "document root is not a mapping"),
			slog.String("kind", root.Kind().String()),
		)
	}
}

func decodeYAML(ctx context.Context, data []byte) (Value, error) {
	var doc any

	if err := yaml.UnmarshalContext(ctx, data, &doc, yaml.UseOrderedMap()); err != nil {
		return Null, err
	}

	return ValueOf(doc), nil
}

func decodeTOML(data []byte) (Value, error) {
	var doc map[string]any

	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return Null, err
	}

	// Rank each key path by its first appearance in the document.
	rank := make(map[string]int)
	for i, key := range md.Keys() {
		if _, ok := rank[strings.Join(key, ".")]; !ok {
			rank[strings.Join(key, ".")] = i
		}
	}

	return tomlValue(doc, "", rank), nil
}

func tomlValue(v any, prefix string, rank map[string]int) Value {
	switch x := v.(type) {
	case map[string]any:
		keys := sortedKeys(x)

		pos := func(k string) int {
			if r, ok := rank[prefix+k]; ok {
				return r
			}

			return math.MaxInt
		}

		slices.SortStableFunc(keys, func(a, b string) int { return cmp.Compare(pos(a), pos(b)) })

		m := NewMapping()
		for _, k := range keys {
			m.Set(k, tomlValue(x[k], prefix+k+".", rank))
		}

		return MappingValue(m)

	case []map[string]any:
		seq := make([]Value, len(x))
		for i, item := range x {
			seq[i] = tomlValue(item, prefix, rank)
		}

		return SequenceValue(seq...)

	case []any:
		seq := make([]Value, len(x))
		for i, item := range x {
			seq[i] = tomlValue(item, prefix, rank)
		}

		return SequenceValue(seq...)

	default:
		return ValueOf(v)
	}
}

// ParseAssignment parses a "path=value" override. The value is typed as a
// boolean, integer, or float when it parses as one and a string otherwise.
func ParseAssignment(s string) (Path, Value, error) {
	lhs, rhs, ok := strings.Cut(s, "=")

	path := ParsePath(lhs)
	if !ok || path.IsZero() {
		return Path{}, Null, ErrDecodeData.With(
			slog.String("assignment", s),
			slog.String("issue", "expected path=value"),
		)
	}

	return path, parseScalar(rhs), nil
}

func parseScalar(s string) Value {
	switch s {
	case "true":
		return BoolValue(true)

	case "false":
		return BoolValue(false)
	}

	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return NumberValue(float64(i))
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return NumberValue(f)
	}

	return StringValue(s)
}

// SetPath returns a copy of m with v stored at path, creating intermediate
// mappings as needed. Intermediate values that are not mappings are
// replaced.
func (m *Mapping) SetPath(path Path, v Value) *Mapping {
	segs := path.Segments()
	out := m.Clone()

	if len(segs) == 0 {
		return out
	}

	head := segs[0]

	if len(segs) == 1 {
		return out.Set(head, v)
	}

	child := NewMapping()
	if prev, ok := out.Get(head); ok && prev.Kind() == KindMapping {
		child = prev.Mapping()
	}

	return out.Set(head, MappingValue(child.SetPath(Path{segs: segs[1:]}, v)))
}
