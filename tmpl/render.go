package tmpl

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"slices"
	"strings"
)

// state is the mutable bookkeeping of one render invocation.
type state struct {
	ctx      context.Context
	eng      *Engine
	out      strings.Builder
	steps    int
	depth    int
	included int
	includes []string
}

func newState(ctx context.Context, e *Engine) *state {
	return &state{ctx: ctx, eng: e}
}

// limit returns a resource limit error naming the exceeded ceiling.
func limit(name string, value int) error {
	return ErrResourceLimit.With(
		slog.String("limit", name),
		slog.Int("value", value),
	)
}

// write appends s to the output within the memory limit.
func (s *state) write(str string) error {
	if err := s.reserve(len(str)); err != nil {
		return err
	}

	s.out.WriteString(str)

	return nil
}

// reserve checks that n more bytes fit within the memory limit.
func (s *state) reserve(n int) error {
	if s.out.Len()+n > s.eng.memoryLimit {
		return limit("memory", s.eng.memoryLimit)
	}

	return nil
}

// budget returns the bytes of output still allowed by the memory limit.
func (s *state) budget() int {
	return max(s.eng.memoryLimit-s.out.Len(), 0)
}

// nested renders nodes one level deeper.
func (s *state) nested(nodes []Node, sc Scope) error {
	if s.depth >= s.eng.maxDepth {
		return limit("depth", s.eng.maxDepth)
	}

	s.depth++
	defer func() { s.depth-- }()

	return s.render(nodes, sc)
}

// render writes each node in source order.
func (s *state) render(nodes []Node, sc Scope) error {
	for _, n := range nodes {
		if err := s.ctx.Err(); err != nil {
			return err
		}

		s.steps++
		if s.steps > s.eng.maxSteps {
			return limit("steps", s.eng.maxSteps)
		}

		if err := s.node(n, sc); err != nil {
			return err
		}
	}

	return nil
}

func (s *state) node(n Node, sc Scope) error {
	switch x := n.(type) {
	case *Text:
		return s.write(x.Text)

	case *Comment:
		return nil

	case *Variable:
		return s.write(html.EscapeString(x.Path.Resolve(sc).String()))

	case *Ternary:
		return s.renderTernary(x, sc)

	case *If:
		return s.renderIf(x, sc)

	case *For:
		return s.renderFor(x, sc)

	case *Switch:
		return s.renderSwitch(x, sc)

	case *Include:
		return s.renderInclude(x, sc)

	case *Call:
		return s.renderCall(x, sc)

	default:
		return nil
	}
}

// diagnose surfaces a recoverable failure according to the engine policy.
func (s *state) diagnose(err *Error, n Node, subject string) error {
	err = err.With(
		slog.String("subject", subject),
		slog.String("pos", n.Pos().String()),
	)

	switch s.eng.policy {
	case PolicyFail:
		return err

	case PolicySilent:
		s.eng.logger.DebugContext(s.ctx, "diagnostic suppressed", slog.Any("error", err))

		return nil

	default:
		s.eng.logger.DebugContext(s.ctx, "diagnostic marker", slog.Any("error", err))

		return s.write(s.marker(err.origin().msg, subject, n.Pos()))
	}
}

// marker formats a diagnostic comment.
func (s *state) marker(msg, subject string, pos Pos) string {
	var b strings.Builder

	b.WriteString("<!-- curly: ")
	b.WriteString(msg)

	if subject != "" {
		b.WriteString(": ")
		b.WriteString(subject)
	}

	if s.eng.debug {
		b.WriteString(" at ")
		b.WriteString(pos.String())
	}

	b.WriteString(" -->")

	return sanitizeComment(b.String())
}

// sanitizeComment keeps a marker's message from closing the comment early.
func sanitizeComment(marker string) string {
	const open, close = "<!-- ", " -->"

	body := marker[len(open) : len(marker)-len(close)]

	return open + strings.ReplaceAll(body, "--", "- -") + close
}

func (s *state) renderInclude(n *Include, sc Scope) error {
	name := includeName(n.Name, sc)

	if slices.Contains(s.includes, name) {
		return ErrIncludeCycle.With(
			slog.String("template", name),
			slog.String("chain", strings.Join(slices.Concat(s.includes, []string{name}), " > ")),
			slog.String("pos", n.Pos().String()),
		)
	}

	if s.included >= s.eng.maxIncludeDepth {
		return limit("include_depth", s.eng.maxIncludeDepth)
	}

	loader := s.eng.loader
	if loader == nil || !loader.Exists(name) {
		return s.diagnose(ErrNotFound, n, name)
	}

	s.eng.logger.TraceContext(s.ctx, "include load", slog.String("template", name))

	text, err := loader.Load(s.ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.diagnose(ErrNotFound, n, name)
		}

		return WrapError(err).With(slog.String("template", name))
	}

	t := parseCached(s.ctx, name, text, s.eng.open, s.eng.close, s.eng.logger)

	s.includes = append(s.includes, name)
	s.included++

	defer func() {
		s.includes = s.includes[:len(s.includes)-1]
		s.included--
	}()

	return s.nested(t.Nodes, sc)
}

// includeName returns the template name of an include operand. A bare name
// that resolves to a non-empty String names that template; otherwise it is
// taken literally.
func includeName(o Operand, sc Scope) string {
	if !o.IsPath() {
		return o.Value(sc).String()
	}

	if v := o.Value(sc); v.Kind() == KindString && v.String() != "" {
		return v.String()
	}

	return o.String()
}

func (s *state) renderCall(n *Call, sc Scope) error {
	v, safe, err := s.call(n, sc)
	if err != nil {
		var e *Error
		if errors.As(err, &e) &&
			(errors.Is(err, ErrDisallowedFunction) || errors.Is(err, ErrFunctionCall)) {
			return s.diagnose(e, n, n.Name)
		}

		return err
	}

	out := v.String()
	if !safe {
		out = html.EscapeString(out)
	}

	return s.write(out)
}

// call evaluates a function call and reports whether its result is safe to
// emit unescaped.
func (s *state) call(n *Call, sc Scope) (Value, bool, error) {
	args := make([]Value, len(n.Args))

	for i, a := range n.Args {
		if a.Call == nil {
			args[i] = a.Operand.Value(sc)

			continue
		}

		v, _, err := s.call(a.Call, sc)
		if err != nil {
			return Null, false, err
		}

		args[i] = v
	}

	v, err := s.eng.funcs.call(s.ctx, s.budget(), n.Name, args)
	if err != nil {
		return Null, false, err
	}

	f, _ := s.eng.funcs.Lookup(n.Name)

	return v, f.Safe, nil
}
