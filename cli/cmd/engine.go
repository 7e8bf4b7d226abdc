package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/curly/log"
	"github.com/ardnew/curly/tmpl"
)

// EngineFlags configures the template engine shared by all commands.
type EngineFlags struct {
	Dir             string `default:"."                     help:"Directory holding named and included templates." short:"C"       type:"path"`
	Ext             string `default:"${templateExt}"        help:"Extension appended to template names."`
	Policy          string `default:"comment"               enum:"${policyEnum}"                                 help:"Handling of missing includes and failed calls."`
	Debug           bool   `default:"false"                 help:"Append source positions to diagnostic markers." negatable:""`
	MaxDepth        int    `default:"${maxDepth}"           help:"Maximum block nesting depth."`
	MaxSteps        int    `default:"${maxSteps}"           help:"Maximum nodes evaluated per render."`
	MemoryLimit     int    `default:"${memoryLimit}"        help:"Maximum output size in bytes."`
	MaxIncludeDepth int    `default:"${maxIncludeDepth}"    help:"Maximum include nesting (0 disables includes)."`
	Open            string `default:"{"                     help:"Opening tag delimiter."`
	Close           string `default:"}"                     help:"Closing tag delimiter."`
}

// DefaultEngineFlags returns the flag values used when none were parsed.
func DefaultEngineFlags() EngineFlags {
	return EngineFlags{
		Dir:             ".",
		Ext:             tmpl.DefaultExt,
		Policy:          tmpl.PolicyComment.String(),
		MaxDepth:        tmpl.DefaultMaxDepth,
		MaxSteps:        tmpl.DefaultMaxSteps,
		MemoryLimit:     tmpl.DefaultMemoryLimit,
		MaxIncludeDepth: tmpl.DefaultMaxIncludeDepth,
		Open:            "{",
		Close:           "}",
	}
}

// Vars returns the kong variables referenced by the engine flag tags.
func (EngineFlags) Vars() kong.Vars {
	return kong.Vars{
		"templateExt":     tmpl.DefaultExt,
		"policyEnum":      strings.Join(tmpl.Policies(), ","),
		"maxDepth":        strconv.Itoa(tmpl.DefaultMaxDepth),
		"maxSteps":        strconv.Itoa(tmpl.DefaultMaxSteps),
		"memoryLimit":     strconv.Itoa(tmpl.DefaultMemoryLimit),
		"maxIncludeDepth": strconv.Itoa(tmpl.DefaultMaxIncludeDepth),
	}
}

// Group returns the help group of the engine flags.
func (EngineFlags) Group() kong.Group {
	return kong.Group{Key: "engine", Title: "Engine options"}
}

// Options returns the engine options selected by f.
func (f EngineFlags) Options(logger log.Logger) ([]tmpl.Option, error) {
	policy, ok := tmpl.ParsePolicy(f.Policy)
	if !ok {
		return nil, tmpl.ErrInvalidOption.With(
			slog.String("option", "policy"),
			slog.String("value", f.Policy),
		)
	}

	return []tmpl.Option{
		tmpl.WithLoader(tmpl.DirLoader{Root: f.Dir, Ext: f.Ext}),
		tmpl.WithPolicy(policy),
		tmpl.WithDebug(f.Debug),
		tmpl.WithMaxDepth(f.MaxDepth),
		tmpl.WithMaxSteps(f.MaxSteps),
		tmpl.WithMemoryLimit(f.MemoryLimit),
		tmpl.WithMaxIncludeDepth(f.MaxIncludeDepth),
		tmpl.WithDelimiters(f.Open, f.Close),
		tmpl.WithLogger(logger),
	}, nil
}

// DataFlags selects the data a template is rendered against.
type DataFlags struct {
	Data []string `help:"Data file(s) (YAML, JSON, TOML) or '-' for stdin, merged in order." placeholder:"FILE"       short:"d" type:"existingfile"`
	Set  []string `help:"Override a data value."                                                  placeholder:"PATH=VALUE"`
}

// Group returns the help group of the data flags.
func (DataFlags) Group() kong.Group {
	return kong.Group{Key: "data", Title: "Data options"}
}

type (
	engineFlagsKey struct{}
	dataFlagsKey   struct{}
)

// WithEngineFlags returns a new context.Context carrying the engine flags
// used by commands.
func WithEngineFlags(ctx context.Context, f EngineFlags) context.Context {
	return context.WithValue(ctx, engineFlagsKey{}, f)
}

// WithDataFlags returns a new context.Context carrying the data flags used by
// commands.
func WithDataFlags(ctx context.Context, f DataFlags) context.Context {
	return context.WithValue(ctx, dataFlagsKey{}, f)
}

func engineFlagsFrom(ctx context.Context) EngineFlags {
	if f, ok := ctx.Value(engineFlagsKey{}).(EngineFlags); ok {
		return f
	}

	return DefaultEngineFlags()
}

func dataFlagsFrom(ctx context.Context) DataFlags {
	f, _ := ctx.Value(dataFlagsKey{}).(DataFlags)

	return f
}

// newEngine constructs the engine selected by the flags in ctx.
func newEngine(ctx context.Context) (*tmpl.Engine, error) {
	opts, err := engineFlagsFrom(ctx).Options(log.Default())
	if err != nil {
		return nil, err
	}

	return tmpl.New(opts...)
}

// loadData reads, merges, and overrides the data selected by the flags in
// ctx. Later files take precedence over earlier ones, and --set assignments
// over all files.
func loadData(ctx context.Context) (*tmpl.Mapping, error) {
	f := dataFlagsFrom(ctx)
	stdin, _ := stdioFrom(ctx)

	data := tmpl.NewMapping()

	for _, path := range uniqueSources(f.Data) {
		var (
			m   *tmpl.Mapping
			err error
		)

		if path == stdinSource {
			m, err = decodeStdin(ctx, stdin)
		} else {
			m, err = tmpl.ReadData(ctx, path)
		}

		if err != nil {
			return nil, err
		}

		log.TraceContext(ctx, "data loaded",
			slog.String("source", path),
			slog.Int("keys", m.Len()),
		)

		data = data.Merge(m)
	}

	for _, s := range f.Set {
		path, v, err := tmpl.ParseAssignment(s)
		if err != nil {
			return nil, err
		}

		data = data.SetPath(path, v)
	}

	return data, nil
}

func decodeStdin(ctx context.Context, r io.Reader) (*tmpl.Mapping, error) {
	if r == os.Stdin {
		return tmpl.ReadData(ctx, stdinSource)
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, tmpl.ErrReadInput.Wrap(err).With(slog.String("path", stdinSource))
	}

	return tmpl.DecodeData(ctx, tmpl.FormatYAML, b)
}

// usesStdin reports whether the data flags in ctx read stdin.
func usesStdin(ctx context.Context) bool {
	for _, path := range dataFlagsFrom(ctx).Data {
		if path == stdinSource {
			return true
		}
	}

	return false
}

// loadTemplate parses the template named by arg: stdin for "-", a file when
// arg names one on disk, and otherwise a template known to the engine's
// loader.
func loadTemplate(ctx context.Context, e *tmpl.Engine, arg string) (*tmpl.Template, error) {
	stdin, _ := stdioFrom(ctx)

	var name, text string

	switch info, err := os.Stat(arg); {
	case arg == stdinSource:
		if usesStdin(ctx) {
			return nil, ErrStdinConflict
		}

		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, ErrReadTemplate.Wrap(err).With(slog.String("template", arg))
		}

		text = string(b)

	case err == nil && info.Mode().IsRegular():
		b, err := os.ReadFile(arg)
		if err != nil {
			return nil, ErrReadTemplate.Wrap(err).With(slog.String("template", arg))
		}

		name, text = arg, string(b)

	default:
		l := e.Loader()
		if l == nil || !l.Exists(arg) {
			return nil, ErrReadTemplate.Wrap(tmpl.ErrNotFound).With(slog.String("template", arg))
		}

		s, err := l.Load(ctx, arg)
		if err != nil {
			return nil, ErrReadTemplate.Wrap(err).With(slog.String("template", arg))
		}

		name, text = arg, s
	}

	return e.Parse(ctx, name, text)
}

// renderTemplate renders the template named by arg against the data selected
// in ctx.
func renderTemplate(ctx context.Context, arg string) (string, error) {
	e, err := newEngine(ctx)
	if err != nil {
		return "", err
	}

	t, err := loadTemplate(ctx, e, arg)
	if err != nil {
		return "", err
	}

	data, err := loadData(ctx)
	if err != nil {
		return "", err
	}

	return e.Execute(ctx, t, data)
}
