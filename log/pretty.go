package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Styles for terminal output. lipgloss drops the colors when the output is
// not a terminal.
var (
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	stringStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	numberStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	trueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	falseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	spanStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	nullStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)

	levelStyle = map[Level]lipgloss.Style{
		LevelTrace: lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true),
		LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// styleLevel renders a level name in the style of the nearest named level at
// or below it.
func styleLevel(level slog.Level) string {
	l := Level(level)
	style := levelStyle[LevelTrace]

	for _, named := range levels {
		if l >= named {
			style = levelStyle[named]
		}
	}

	return style.Render(strings.ToUpper(l.String()))
}

// prettyBase holds what the text and JSON handlers share: options, output,
// and the attributes and groups accumulated by WithAttrs and WithGroup.
type prettyBase struct {
	opts   slog.HandlerOptions
	mu     *sync.Mutex
	w      io.Writer
	attrs  []slog.Attr
	groups []string
}

func newPrettyBase(w io.Writer, opts *slog.HandlerOptions) prettyBase {
	return prettyBase{opts: *opts, mu: &sync.Mutex{}, w: w}
}

func (b prettyBase) Enabled(_ context.Context, level slog.Level) bool {
	floor := slog.LevelInfo
	if b.opts.Level != nil {
		floor = b.opts.Level.Level()
	}

	return level >= floor
}

// withAttrs returns a copy of b carrying attrs, qualified by the open groups.
func (b prettyBase) withAttrs(attrs []slog.Attr) prettyBase {
	prefix := strings.Join(b.groups, ".")

	out := slices.Clone(b.attrs)
	for _, a := range attrs {
		out = flatten(out, prefix, a)
	}

	b.attrs = out

	return b
}

func (b prettyBase) withGroup(name string) prettyBase {
	b.groups = append(b.groups[:len(b.groups):len(b.groups)], name)

	return b
}

// fields returns the record as ordered key/value attributes: time, level,
// source, message, then attributes with nested groups flattened to dotted
// keys.
func (b prettyBase) fields(r slog.Record) []slog.Attr {
	var out []slog.Attr

	add := func(a slog.Attr) {
		if b.opts.ReplaceAttr != nil && a.Value.Kind() != slog.KindGroup {
			a = b.opts.ReplaceAttr(nil, a)
		}

		if !a.Equal(slog.Attr{}) {
			out = append(out, a)
		}
	}

	if !r.Time.IsZero() {
		add(slog.Time(slog.TimeKey, r.Time))
	}

	out = append(out, slog.Any(slog.LevelKey, r.Level))

	if b.opts.AddSource {
		if src := r.Source(); src != nil {
			add(slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", src.File, src.Line)))
		}
	}

	add(slog.String(slog.MessageKey, r.Message))

	out = append(out, b.attrs...)

	prefix := strings.Join(b.groups, ".")

	r.Attrs(func(a slog.Attr) bool {
		out = flatten(out, prefix, a)

		return true
	})

	return out
}

func flatten(out []slog.Attr, prefix string, a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()

	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}

	if a.Value.Kind() != slog.KindGroup {
		return append(out, slog.Attr{Key: key, Value: a.Value})
	}

	for _, g := range a.Value.Group() {
		out = flatten(out, key, g)
	}

	return out
}

func (b prettyBase) write(buf *bytes.Buffer) error {
	buf.WriteByte('\n')

	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.w.Write(buf.Bytes())

	return err
}

// prettyTextHandler writes one styled key=value line per record.
type prettyTextHandler struct {
	prettyBase
}

func newPrettyTextHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
) *prettyTextHandler {
	return &prettyTextHandler{newPrettyBase(w, opts)}
}

func (h *prettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)

	for _, a := range h.fields(r) {
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}

		buf.WriteString(keyStyle.Render(a.Key))
		buf.WriteByte('=')
		buf.WriteString(styleValue(a.Value, false))
	}

	return h.write(buf)
}

func (h *prettyTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prettyTextHandler{h.withAttrs(attrs)}
}

func (h *prettyTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	return &prettyTextHandler{h.withGroup(name)}
}

// prettyJSONHandler writes one styled, indented JSON object per record.
type prettyJSONHandler struct {
	prettyBase
}

func newPrettyJSONHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
) *prettyJSONHandler {
	return &prettyJSONHandler{newPrettyBase(w, opts)}
}

func (h *prettyJSONHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)

	buf.WriteString("{")

	for i, a := range h.fields(r) {
		if i > 0 {
			buf.WriteByte(',')
		}

		buf.WriteString("\n  ")
		buf.WriteString(keyStyle.Render(strconv.Quote(a.Key)))
		buf.WriteString(": ")
		buf.WriteString(styleValue(a.Value, true))
	}

	buf.WriteString("\n}")

	return h.write(buf)
}

func (h *prettyJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prettyJSONHandler{h.withAttrs(attrs)}
}

func (h *prettyJSONHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	return &prettyJSONHandler{h.withGroup(name)}
}

// styleValue renders v in the style of its kind. Strings are quoted when
// quote is set.
func styleValue(v slog.Value, quote bool) string {
	str := func(s string) string {
		if quote {
			s = strconv.Quote(s)
		}

		return stringStyle.Render(s)
	}

	switch v.Kind() {
	case slog.KindString:
		return str(v.String())

	case slog.KindInt64:
		return numberStyle.Render(strconv.FormatInt(v.Int64(), 10))

	case slog.KindUint64:
		return numberStyle.Render(strconv.FormatUint(v.Uint64(), 10))

	case slog.KindFloat64:
		return numberStyle.Render(strconv.FormatFloat(v.Float64(), 'g', -1, 64))

	case slog.KindBool:
		if v.Bool() {
			return trueStyle.Render("true")
		}

		return falseStyle.Render("false")

	case slog.KindDuration:
		return spanStyle.Render(v.Duration().String())

	case slog.KindTime:
		return timeStyle.Render(v.Time().String())

	case slog.KindAny:
		switch x := v.Any().(type) {
		case slog.Level:
			return styleLevel(x)

		case nil:
			return nullStyle.Render("null")

		case error:
			return str(x.Error())
		}

		return str(v.String())

	default:
		return str(v.String())
	}
}
