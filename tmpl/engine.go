package tmpl

import (
	"context"
	"log/slog"
	"time"

	"github.com/ardnew/curly/log"
)

// Default resource ceilings.
const (
	DefaultMaxDepth        = 100
	DefaultMaxSteps        = 1_000_000
	DefaultMemoryLimit     = 32 << 20
	DefaultMaxIncludeDepth = 16
)

// Engine renders templates. Its configuration is fixed at construction and
// an Engine is safe for concurrent use.
type Engine struct {
	maxDepth        int
	maxSteps        int
	memoryLimit     int
	maxIncludeDepth int
	policy          Policy
	debug           bool
	open            string
	close           string
	loader          Loader
	extra           []Func
	clock           func() time.Time
	logger          log.Logger // outside the cache key, doesn't affect parsing
	funcs           *Registry
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxDepth bounds the nesting of block bodies and includes.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		e.maxDepth = depth
	}
}

// WithMaxSteps bounds the number of nodes evaluated by one render.
func WithMaxSteps(steps int) Option {
	return func(e *Engine) {
		e.maxSteps = steps
	}
}

// WithMemoryLimit bounds the size in bytes of one render's output.
func WithMemoryLimit(bytes int) Option {
	return func(e *Engine) {
		e.memoryLimit = bytes
	}
}

// WithMaxIncludeDepth bounds the nesting of includes.
func WithMaxIncludeDepth(depth int) Option {
	return func(e *Engine) {
		e.maxIncludeDepth = depth
	}
}

// WithPolicy selects how missing includes and failed function calls surface.
func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithDebug appends source positions to diagnostic markers.
func WithDebug(debug bool) Option {
	return func(e *Engine) {
		e.debug = debug
	}
}

// WithDelimiters sets the tag delimiters.
func WithDelimiters(open, close string) Option {
	return func(e *Engine) {
		e.open, e.close = open, close
	}
}

// WithLoader sets the source of included and named templates.
func WithLoader(l Loader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithFunctions registers functions in addition to the builtins.
func WithFunctions(funcs ...Func) Option {
	return func(e *Engine) {
		e.extra = append(e.extra, funcs...)
	}
}

// WithClock sets the time source of the date function.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithLogger sets the structured logger for trace-level debugging.
// If not provided, the logger is zero-valued and all logging is a no-op.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// applyDefaults sets default option values on an Engine.
func applyDefaults(e *Engine) {
	e.maxDepth = DefaultMaxDepth
	e.maxSteps = DefaultMaxSteps
	e.memoryLimit = DefaultMemoryLimit
	e.maxIncludeDepth = DefaultMaxIncludeDepth
	e.policy = PolicyComment
	e.open = DefaultOpen
	e.close = DefaultClose
	e.clock = time.Now
}

// New returns an Engine configured by opts. It fails if the function registry
// or any option value is invalid.
func New(opts ...Option) (*Engine, error) {
	e := new(Engine)

	applyDefaults(e)

	for _, opt := range opts {
		opt(e)
	}

	if err := e.validate(); err != nil {
		return nil, err
	}

	funcs, err := NewRegistry(append(Builtins(e.clock), e.extra...)...)
	if err != nil {
		return nil, err
	}

	e.funcs = funcs

	return e, nil
}

func (e *Engine) validate() error {
	invalid := func(name string, value any) error {
		return ErrInvalidOption.With(slog.Any(name, value))
	}

	switch {
	case e.maxDepth < 1:
		return invalid("max_depth", e.maxDepth)

	case e.maxSteps < 1:
		return invalid("max_steps", e.maxSteps)

	case e.memoryLimit < 1:
		return invalid("memory_limit", e.memoryLimit)

	case e.maxIncludeDepth < 0:
		return invalid("max_include_depth", e.maxIncludeDepth)

	case e.open == "" || e.close == "" || e.open == e.close:
		return invalid("delimiters", e.open+" "+e.close)

	case e.policy < PolicyComment || e.policy > PolicySilent:
		return invalid("policy", int(e.policy))

	case e.clock == nil:
		return invalid("clock", nil)
	}

	return nil
}

// Functions returns the engine's function registry.
func (e *Engine) Functions() *Registry { return e.funcs }

// Delimiters returns the engine's opening and closing tag delimiters.
func (e *Engine) Delimiters() (open, close string) { return e.open, e.close }

// Loader returns the engine's template loader, which may be nil.
func (e *Engine) Loader() Loader { return e.loader }

// Parse parses text into a template tree. Trees are cached by source, so
// parsing the same text again is cheap.
func (e *Engine) Parse(ctx context.Context, name, text string) (*Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return parseCached(ctx, name, text, e.open, e.close, e.logger), nil
}

// Render renders text against data.
func (e *Engine) Render(ctx context.Context, text string, data any) (string, error) {
	t, err := e.Parse(ctx, "", text)
	if err != nil {
		return "", err
	}

	return e.Execute(ctx, t, data)
}

// RenderFile loads the template name from the engine's loader and renders
// it against data. Unlike an include, a missing template is always an error.
func (e *Engine) RenderFile(ctx context.Context, name string, data any) (string, error) {
	if e.loader == nil || !e.loader.Exists(name) {
		return "", ErrNotFound.With(slog.String("template", name))
	}

	text, err := e.loader.Load(ctx, name)
	if err != nil {
		return "", err
	}

	t, err := e.Parse(ctx, name, text)
	if err != nil {
		return "", err
	}

	return e.Execute(ctx, t, data)
}

// Execute renders a parsed template against data.
func (e *Engine) Execute(ctx context.Context, t *Template, data any) (string, error) {
	s := newState(ctx, e)
	if t.Name != "" {
		s.includes = append(s.includes, t.Name)
	}

	e.logger.TraceContext(ctx, "render start",
		slog.String("template", t.Name),
		slog.Int("nodes", len(t.Nodes)),
	)

	if err := s.render(t.Nodes, NewScope(ValueOf(data))); err != nil {
		return "", err
	}

	e.logger.TraceContext(ctx, "render complete",
		slog.String("template", t.Name),
		slog.Int("output_bytes", s.out.Len()),
		slog.Int("steps", s.steps),
	)

	return s.out.String(), nil
}

// Render renders text against data with an Engine configured by opts.
func Render(ctx context.Context, text string, data any, opts ...Option) (string, error) {
	e, err := New(opts...)
	if err != nil {
		return "", err
	}

	return e.Render(ctx, text, data)
}
