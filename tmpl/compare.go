package tmpl

// Operator is a binary comparison operator of the condition grammar.
type Operator uint8

const (
	OpNone Operator = iota
	OpStrictEq
	OpStrictNe
	OpEq
	OpNe
	OpGe
	OpLe
	OpGt
	OpLt
)

// operators lists operator spellings longest first so that scanning never
// mistakes "===" for "==".
var operators = []struct {
	text string
	op   Operator
}{
	{"===", OpStrictEq},
	{"!==", OpStrictNe},
	{"==", OpEq},
	{"!=", OpNe},
	{">=", OpGe},
	{"<=", OpLe},
	{">", OpGt},
	{"<", OpLt},
}

// String returns the source spelling of the operator.
func (op Operator) String() string {
	for _, o := range operators {
		if o.op == op {
			return o.text
		}
	}

	return ""
}

// Compare applies op to the pair (a, b).
func Compare(a Value, op Operator, b Value) bool {
	switch op {
	case OpStrictEq:
		return StrictEqual(a, b)

	case OpStrictNe:
		return !StrictEqual(a, b)

	case OpEq:
		return LooseEqual(a, b)

	case OpNe:
		return !LooseEqual(a, b)

	case OpGe, OpLe, OpGt, OpLt:
		x, okx := a.Number()
		y, oky := b.Number()

		if !okx || !oky {
			return false
		}

		switch op {
		case OpGe:
			return x >= y

		case OpLe:
			return x <= y

		case OpGt:
			return x > y

		default:
			return x < y
		}

	default:
		return false
	}
}

// LooseEqual compares numerically when both operands coerce to numbers and
// by string form otherwise. Containers compare by deep strict equality.
func LooseEqual(a, b Value) bool {
	if a.IsContainer() || b.IsContainer() {
		return StrictEqual(a, b)
	}

	if x, ok := a.Number(); ok {
		if y, ok := b.Number(); ok {
			return x == y
		}
	}

	return a.String() == b.String()
}

// StrictEqual reports whether a and b have the same kind and equal contents.
func StrictEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}

	switch a.kind {
	case KindNull:
		return true

	case KindBool:
		return a.b == b.b

	case KindNumber:
		return a.n == b.n

	case KindString:
		return a.s == b.s

	case KindSequence:
		if len(a.seq) != len(b.seq) {
			return false
		}

		for i := range a.seq {
			if !StrictEqual(a.seq[i], b.seq[i]) {
				return false
			}
		}

		return true

	case KindMapping:
		if a.m.Len() != b.m.Len() {
			return false
		}

		for k, av := range a.m.All() {
			bv, ok := b.m.Get(k)
			if !ok || !StrictEqual(av, bv) {
				return false
			}
		}

		return true

	default:
		return false
	}
}
