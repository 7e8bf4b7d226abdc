package tmpl

import "log/slog"

// Loop frame members.
const (
	frameIndex  = "index"
	frameIndex0 = "index0"
	frameFirst  = "first"
	frameLast   = "last"
	frameLength = "length"
	frameParent = "parent"
)

// LoopMembers returns the names bound in a loop frame, in frame order.
func LoopMembers() []string {
	return []string{
		frameIndex, frameIndex0, frameFirst, frameLast, frameLength, frameParent,
	}
}

// loopFrame returns the metadata bound to "loop" for the i'th of n
// iterations. The parent frame is shared, not copied.
func loopFrame(i, n int, parent Value) Value {
	m := NewMapping().
		Set(frameIndex, NumberValue(float64(i+1))).
		Set(frameIndex0, NumberValue(float64(i))).
		Set(frameFirst, BoolValue(i == 0)).
		Set(frameLast, BoolValue(i == n-1)).
		Set(frameLength, NumberValue(float64(n))).
		Set(frameParent, parent)
	m.frame = true

	return MappingValue(m)
}

// renderFor renders the body once per element of the source container.
// Each iteration starts from sc; bindings never leak between iterations or
// past the loop.
func (s *state) renderFor(n *For, sc Scope) error {
	src := n.Source.Resolve(sc)

	if !src.IsContainer() {
		s.eng.logger.DebugContext(s.ctx, "loop over non-iterable",
			slog.String("source", n.Source.String()),
			slog.String("kind", src.Kind().String()),
			slog.String("pos", n.Pos().String()),
		)

		return nil
	}

	length, _ := src.Len()
	parent := sc.Loop()
	i := 0

	for key, item := range src.Entries() {
		if err := s.reserve(0); err != nil {
			return err
		}

		inner := sc.Bind(LoopName, loopFrame(i, length, parent))
		if n.Key != "" {
			inner = inner.Bind(n.Key, key)
		}

		inner = inner.Bind(n.Item, item)

		if err := s.nested(n.Body, inner); err != nil {
			return err
		}

		i++
	}

	return nil
}
