package tmpl

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/readahead"
)

// Loader provides template sources by name.
type Loader interface {
	// Exists reports whether a template named name can be loaded.
	Exists(name string) bool
	// Load returns the source of the template named name. A missing template
	// yields an error matching ErrNotFound.
	Load(ctx context.Context, name string) (string, error)
}

// DirLoader loads templates from files below Root. Names are slash-separated
// paths relative to Root; Ext is appended to names without an extension.
// Names that would escape Root are never found.
type DirLoader struct {
	Root string
	Ext  string
}

// DefaultExt is the file extension DirLoader appends by default in the CLI.
const DefaultExt = ".tpl"

func (d DirLoader) file(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}

	if d.Ext != "" && filepath.Ext(name) == "" {
		name += d.Ext
	}

	name = filepath.Clean(filepath.FromSlash(name))
	if !filepath.IsLocal(name) {
		return "", false
	}

	return name, true
}

func (d DirLoader) root() string {
	if d.Root == "" {
		return "."
	}

	return d.Root
}

// Exists implements Loader.
func (d DirLoader) Exists(name string) bool {
	file, ok := d.file(name)
	if !ok {
		return false
	}

	info, err := os.Stat(filepath.Join(d.root(), file))

	return err == nil && info.Mode().IsRegular()
}

// Load implements Loader.
func (d DirLoader) Load(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	file, ok := d.file(name)
	if !ok {
		return "", ErrNotFound.With(slog.String("template", name))
	}

	f, err := os.OpenInRoot(d.root(), file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound.Wrap(err).With(slog.String("template", name))
		}

		return "", ErrReadInput.Wrap(err).With(slog.String("template", name))
	}
	defer f.Close()

	return readAll(f, name)
}

// readAll reads r to the end through an asynchronous read-ahead buffer.
func readAll(r io.Reader, source string) (string, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return "", ErrReadInput.Wrap(err).With(slog.String("source", source))
	}

	return string(data), nil
}

// MapLoader serves templates from memory.
type MapLoader map[string]string

// Exists implements Loader.
func (m MapLoader) Exists(name string) bool {
	_, ok := m[name]

	return ok
}

// Load implements Loader.
func (m MapLoader) Load(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, ok := m[name]
	if !ok {
		return "", ErrNotFound.With(slog.String("template", name))
	}

	return src, nil
}
