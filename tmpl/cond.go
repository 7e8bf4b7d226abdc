package tmpl

import (
	"html"
	"log/slog"
)

// eval evaluates a condition, logging and rejecting a malformed one.
func (s *state) eval(e Expr, n Node, sc Scope) bool {
	if err := e.Err(); err != nil {
		s.eng.logger.DebugContext(s.ctx, "malformed condition",
			slog.Any("error", err),
			slog.String("pos", n.Pos().String()),
		)

		return false
	}

	return e.Eval(sc)
}

// renderIf renders the body of the first branch whose condition holds, or
// the else body.
func (s *state) renderIf(n *If, sc Scope) error {
	for _, br := range n.Branches {
		if s.eval(br.Cond, n, sc) {
			return s.nested(br.Body, sc)
		}
	}

	if n.HasElse {
		return s.nested(n.Else, sc)
	}

	return nil
}

// renderSwitch renders the first case with a label loosely equal to the
// subject. Without a match, only an explicit default renders.
func (s *state) renderSwitch(n *Switch, sc Scope) error {
	if err := n.Subject.Err(); err != nil {
		s.eng.logger.DebugContext(s.ctx, "malformed switch subject",
			slog.Any("error", err),
			slog.String("pos", n.Pos().String()),
		)
	}

	subject := n.Subject.Value(sc)

	for _, c := range n.Cases {
		for _, label := range c.Labels {
			if LooseEqual(subject, label.Value(sc)) {
				return s.nested(c.Body, sc)
			}
		}
	}

	if n.HasDefault {
		return s.nested(n.Default, sc)
	}

	return nil
}

// renderTernary writes the selected operand of an inline conditional.
func (s *state) renderTernary(n *Ternary, sc Scope) error {
	if s.eval(n.Cond, n, sc) {
		return s.write(html.EscapeString(n.Then.Value(sc).String()))
	}

	if n.HasElse {
		return s.write(html.EscapeString(n.Else.Value(sc).String()))
	}

	return nil
}
