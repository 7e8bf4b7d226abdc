package cli

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/curly/log"
)

// resolve returns a [kong.ConfigurationLoader] that reads YAML config files.
//
// It can be used with [kong.Configuration] like this:
//
//	kong.Configuration(resolve(ctx), "/path/to/config.yaml")
//
// The document root must be a mapping from flag names to values:
//   - Flag names may be written with hyphens ("log-level") or underscores
//     ("log_level")
//   - Scalars are passed to kong as strings, so they decode like
//     command-line values
//   - Sequences are passed as lists, for repeatable flags like data
//
// Example config file:
//
//	log-level: debug
//	policy: fail
//	dir: ~/templates
//	data: [site.yaml, local.toml]
//
// Command-line flags override config file values. A config file that does
// not parse is ignored with a warning.
func resolve(ctx context.Context) func(r io.Reader) (kong.Resolver, error) {
	return func(r io.Reader) (kong.Resolver, error) {
		var doc yaml.MapSlice

		if err := yaml.NewDecoder(r).DecodeContext(ctx, &doc); err != nil && err != io.EOF {
			log.WarnContext(ctx, "ignoring config file",
				slog.Any("error", err),
			)

			return config{}, nil
		}

		return configOf(doc), nil
	}
}

// config implements [kong.Resolver] for YAML configs.
type config map[string]any

func configOf(doc yaml.MapSlice) config {
	c := make(config, len(doc))

	for _, item := range doc {
		key, ok := item.Key.(string)
		if !ok {
			continue
		}

		if v, ok := flagString(item.Value); ok {
			c[key] = v
		}
	}

	return c
}

// flagString converts a YAML value into the form kong parses for a flag.
func flagString(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false

	case string:
		return x, true

	case bool:
		return strconv.FormatBool(x), true

	case int:
		return strconv.Itoa(x), true

	case int64:
		return strconv.FormatInt(x, 10), true

	case uint64:
		return strconv.FormatUint(x, 10), true

	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true

	case []any:
		out := make([]any, 0, len(x))

		for _, item := range x {
			if s, ok := flagString(item); ok {
				out = append(out, s)
			}
		}

		return out, true

	default:
		return nil, false
	}
}

// Validate implements [kong.Resolver].
func (r config) Validate(*kong.Application) error {
	return nil
}

// Resolve implements [kong.Resolver].
func (r config) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	// Kong flags use hyphens (e.g., "log-level") but YAML keys may use
	// underscores. Try both forms.
	if value, ok := r[flag.Name]; ok {
		return value, nil
	}

	if value, ok := r[strings.ReplaceAll(flag.Name, "-", "_")]; ok {
		return value, nil
	}

	// Not found - return nil to let Kong use defaults
	return nil, nil
}
