package tmpl

// LoopName is the reserved binding that holds the current loop frame.
const LoopName = "loop"

// Scope is an immutable chain of name bindings over a root value.
//
// Binding a name returns a new Scope and leaves the receiver untouched, so a
// caller restores an earlier scope by continuing to use it.
type Scope struct {
	head *binding
	root Value
}

type binding struct {
	name string
	val  Value
	next *binding
}

// NewScope returns a Scope whose unbound names resolve against the members
// of root.
func NewScope(root Value) Scope {
	return Scope{root: root}
}

// Bind returns a Scope in which name resolves to v.
func (s Scope) Bind(name string, v Value) Scope {
	return Scope{
		head: &binding{name: name, val: v, next: s.head},
		root: s.root,
	}
}

// Lookup returns the innermost binding of name, falling back to the root.
func (s Scope) Lookup(name string) (Value, bool) {
	for b := s.head; b != nil; b = b.next {
		if b.name == name {
			return b.val, true
		}
	}

	if m := s.root.Mapping(); m != nil {
		return m.Get(name)
	}

	return Null, false
}

// Root returns the value the scope was created with.
func (s Scope) Root() Value { return s.root }

// Names returns every visible name, innermost bindings first, each once.
func (s Scope) Names() []string {
	var (
		seen  = make(map[string]struct{})
		names []string
	)

	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	for b := s.head; b != nil; b = b.next {
		add(b.name)
	}

	if m := s.root.Mapping(); m != nil {
		for _, k := range m.Keys() {
			add(k)
		}
	}

	return names
}

// Loop returns the loop frame of the innermost enclosing loop, or Null.
// Root data named "loop" is never a frame.
func (s Scope) Loop() Value {
	for b := s.head; b != nil; b = b.next {
		if b.name == LoopName {
			return b.val
		}
	}

	return Null
}
