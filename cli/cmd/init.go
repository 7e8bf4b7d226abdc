package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/curly/log"
	"github.com/ardnew/curly/profile"
)

// Init writes the effective value of every flag to the configuration file,
// which later runs read as their defaults.
type Init struct {
	Force bool `help:"Overwrite an existing configuration file." short:"f"`
}

// Flags with these name prefixes are never persisted.
var initSkipPrefix = []string{"help", "version", profile.Tag} //nolint:gochecknoglobals

// Run executes the init command.
func (i *Init) Run(ctx context.Context) error {
	path, ok := kongVar(ctx, ConfigIdentifier)
	if !ok {
		panic("internal error: config path undefined")
	}

	fail := func(err error) error {
		return ErrWriteConfig.With(slog.String("file", path)).Wrap(err)
	}

	switch _, err := os.Stat(path); {
	case err == nil && !i.Force:
		return fail(ErrFileExists)

	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fail(err)
	}

	data, err := yaml.MarshalContext(ctx, currentFlags(kongContextFrom(ctx)), yaml.Indent(2))
	if err != nil {
		return ErrYAMLMarshal.Wrap(err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fail(err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fail(err)
	}

	log.DebugContext(ctx, "configuration written",
		slog.String("file", path),
		slog.Int("bytes", len(data)),
	)

	return nil
}

// currentFlags returns the set flags of ktx in model order.
func currentFlags(ktx *kong.Context) yaml.MapSlice {
	var out yaml.MapSlice

	for _, flag := range ktx.Model.Flags {
		if flag.Hidden || skipFlag(flag.Name) {
			continue
		}

		if val, ok := flagValue(ktx.FlagValue(flag)); ok {
			out = append(out, yaml.MapItem{Key: flag.Name, Value: val})
		}
	}

	return out
}

func skipFlag(name string) bool {
	for _, prefix := range initSkipPrefix {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}

	return false
}

// flagValue converts a parsed flag value to something YAML can encode and
// kong can decode again. Empty strings and empty lists count as unset.
func flagValue(val any) (any, bool) {
	if val == nil {
		return nil, false
	}

	// Named types, such as enums, round-trip through their text form.
	if s, ok := val.(fmt.Stringer); ok {
		str := s.String()

		return str, str != ""
	}

	rv := reflect.ValueOf(val)

	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return val, true

	case reflect.String:
		return rv.String(), rv.Len() > 0

	case reflect.Slice, reflect.Array:
		return val, rv.Len() > 0

	default:
		str := fmt.Sprint(val)

		return str, str != ""
	}
}
