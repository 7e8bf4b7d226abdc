package log

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// FormatTime renders a record timestamp. An empty result omits the time.
type FormatTime func(time.Time) string

const (
	// DefaultTimeLayout is the timestamp layout of a new [Logger].
	DefaultTimeLayout = time.RFC3339

	// DefaultCaller reports whether a new [Logger] adds source positions.
	DefaultCaller = false

	// DefaultPretty reports whether a new [Logger] styles its output.
	DefaultPretty = true
)

type config struct {
	mutex      *sync.RWMutex
	output     io.Writer
	formatTime FormatTime
	level      Level
	format     Format
	caller     bool
	pretty     bool
}

// Option changes one setting of a [Logger].
type Option func(config) config

func apply(cfg config, opts ...Option) config {
	for _, opt := range opts {
		cfg = opt(cfg)
	}

	return cfg
}

// update wraps fn as an [Option] that holds the config's write lock,
// allocating the lock on first use.
func update(fn func(*config)) Option {
	return func(c config) config {
		if c.mutex == nil {
			c.mutex = new(sync.RWMutex)
		}

		c.mutex.Lock()
		defer c.mutex.Unlock()

		fn(&c)

		return c
	}
}

func makeConfig(w io.Writer, opts ...Option) config {
	return apply(config{mutex: new(sync.RWMutex)}, append([]Option{WithDefaults(w)}, opts...)...)
}

// clone copies c under a fresh lock before applying opts.
func (c config) clone(opts ...Option) config {
	c.mutex = new(sync.RWMutex)

	return apply(c, opts...)
}

// replaceAttr applies the time layout and writes levels by their own names,
// so trace is "TRACE" and not "DEBUG-4".
func (c config) replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		t, ok := a.Value.Any().(time.Time)
		if !ok {
			return a
		}

		s := c.formatTime(t)
		if s == "" {
			return slog.Attr{}
		}

		return slog.String(a.Key, s)

	case slog.LevelKey:
		if l, ok := a.Value.Any().(slog.Level); ok {
			return slog.String(a.Key, strings.ToUpper(Level(l).String()))
		}
	}

	return a
}

func (c config) handler() slog.Handler {
	opts := &slog.HandlerOptions{
		AddSource:   c.caller,
		Level:       slog.Level(c.level),
		ReplaceAttr: c.replaceAttr,
	}

	if c.pretty {
		switch c.format {
		case FormatJSON:
			return newPrettyJSONHandler(c.output, opts)

		case FormatText:
			return newPrettyTextHandler(c.output, opts)
		}
	}

	switch c.format {
	case FormatJSON:
		return slog.NewJSONHandler(c.output, opts)

	case FormatText:
		return slog.NewTextHandler(c.output, opts)
	}

	return slog.DiscardHandler
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}

	return w
}

// WithDefaults resets every setting to its default and writes to w, or
// discards output if w is nil.
func WithDefaults(w io.Writer) Option {
	return update(func(c *config) {
		*c = config{
			mutex:      c.mutex,
			output:     orDiscard(w),
			formatTime: timeFormatter(DefaultTimeLayout),
			level:      DefaultLevel,
			format:     DefaultFormat,
			caller:     DefaultCaller,
			pretty:     DefaultPretty,
		}
	})
}

// WithOutput sets the destination of records. A nil w discards them.
func WithOutput(w io.Writer) Option {
	return update(func(c *config) { c.output = orDiscard(w) })
}

// WithLevel sets the least severe level that is written.
func WithLevel(level Level) Option {
	return update(func(c *config) { c.level = level })
}

// WithFormat sets the record encoding.
func WithFormat(format Format) Option {
	return update(func(c *config) { c.format = format })
}

// WithTimeLayout sets the timestamp layout. layout is either the name of a
// [time] package layout, matched ignoring case and punctuation ("RFC3339",
// "rfc-3339-nano", "kitchen"), or a layout string passed to
// [time.Time.Format] as is. A blank layout or "none" omits timestamps.
func WithTimeLayout(layout string) Option {
	format := timeFormatter(layout)

	return update(func(c *config) { c.formatTime = format })
}

// WithCaller adds the source position of each record when enable is set.
func WithCaller(enable bool) Option {
	return update(func(c *config) { c.caller = enable })
}

// WithPretty styles records for a terminal when enable is set.
func WithPretty(enable bool) Option {
	return update(func(c *config) { c.pretty = enable })
}

// namedLayouts lists the [time] layouts accepted by name, with aliases.
var namedLayouts = []struct { //nolint:gochecknoglobals
	layout string
	names  []string
}{
	{time.RFC3339, []string{"rfc3339"}},
	{time.RFC3339Nano, []string{"rfc3339nano"}},
	{time.RFC822, []string{"rfc822"}},
	{time.RFC822Z, []string{"rfc822z"}},
	{time.RFC850, []string{"rfc850"}},
	{time.ANSIC, []string{"ansic"}},
	{time.UnixDate, []string{"unixdate"}},
	{time.RubyDate, []string{"rubydate"}},
	{time.Kitchen, []string{"kitchen"}},
	{time.DateTime, []string{"datetime"}},
	{time.DateOnly, []string{"dateonly"}},
	{time.TimeOnly, []string{"timeonly"}},
	{time.Stamp, []string{"stamp"}},
	{time.StampMilli, []string{"stampmilli", "milli", "ms"}},
	{time.StampMicro, []string{"stampmicro", "micro", "us"}},
	{time.StampNano, []string{"stampnano", "nano", "ns"}},
	{"", []string{"none"}},
}

// layoutKey reduces a layout name to lowercase letters and digits.
func layoutKey(name string) string {
	var sb strings.Builder

	for _, r := range strings.ToLower(name) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

func timeFormatter(layout string) FormatTime {
	key := layoutKey(layout)

	for _, named := range namedLayouts {
		for _, name := range named.names {
			if name == key {
				layout = named.layout
			}
		}
	}

	if key == "" || layout == "" {
		return func(time.Time) string { return "" }
	}

	return func(t time.Time) string { return t.Format(layout) }
}
