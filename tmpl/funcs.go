package tmpl

import (
	"context"
	"iter"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Variadic is the MaxArgs of a function that accepts any number of trailing
// arguments.
const Variadic = -1

// Func is a function callable from templates.
type Func struct {
	// Name is the identifier used in templates.
	Name string
	// Usage is a short call synopsis, such as "truncate(s, n, suffix?)".
	Usage string
	// Doc is a one-line description.
	Doc string
	// MinArgs and MaxArgs bound the argument count. MaxArgs may be Variadic.
	MinArgs int
	MaxArgs int
	// Safe results are emitted without HTML escaping.
	Safe bool
	// Size, if set, bounds the byte length of the result. A render checks it
	// against its remaining memory budget before Fn runs.
	Size func(args ...Value) int
	// Fn computes the result.
	Fn func(args ...Value) (Value, error)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (f Func) validate() error {
	switch {
	case !identPattern.MatchString(f.Name):
		return ErrInvalidRegistry.With(
			slog.String("name", f.Name),
			slog.String("issue", "invalid identifier"),
		)

	case f.Fn == nil:
		return ErrInvalidRegistry.With(
			slog.String("name", f.Name),
			slog.String("issue", "missing implementation"),
		)

	case f.MinArgs < 0, f.MaxArgs != Variadic && f.MaxArgs < f.MinArgs:
		return ErrInvalidRegistry.With(
			slog.String("name", f.Name),
			slog.String("issue", "invalid arity"),
			slog.Int("min_args", f.MinArgs),
			slog.Int("max_args", f.MaxArgs),
		)
	}

	return nil
}

func (f Func) accepts(n int) bool {
	return n >= f.MinArgs && (f.MaxArgs == Variadic || n <= f.MaxArgs)
}

// Registry is a closed set of functions. Calls are compiled through
// expr-lang with every builtin disabled, so a name outside the registry is
// rejected by the compiler.
//
// A Registry is safe for concurrent use.
type Registry struct {
	funcs    map[string]Func
	options  []expr.Option
	programs sync.Map // "name/arity" -> *vm.Program
}

// exprName returns the identifier a function is exposed under in expr-lang.
// The prefix keeps registry names clear of expr-lang operators such as
// contains and matches.
func exprName(name string) string { return "fn_" + name }

// NewRegistry validates funcs and returns a registry holding them. Names must
// be identifiers, unique, and have consistent arity bounds.
func NewRegistry(funcs ...Func) (*Registry, error) {
	r := &Registry{funcs: make(map[string]Func, len(funcs))}

	for _, f := range funcs {
		if err := f.validate(); err != nil {
			return nil, err
		}

		if _, ok := r.funcs[f.Name]; ok {
			return nil, ErrInvalidRegistry.With(
				slog.String("name", f.Name),
				slog.String("issue", "duplicate name"),
			)
		}

		r.funcs[f.Name] = f
	}

	r.options = make([]expr.Option, 0, len(r.funcs)+1)
	r.options = append(r.options, expr.DisableAllBuiltins())

	for _, name := range r.Names() {
		f := r.funcs[name]
		r.options = append(r.options, expr.Function(exprName(name), f.invoke))
	}

	return r, nil
}

// Extend returns a new registry holding the functions of r plus funcs.
func (r *Registry) Extend(funcs ...Func) (*Registry, error) {
	all := make([]Func, 0, len(r.funcs)+len(funcs))
	for _, name := range r.Names() {
		all = append(all, r.funcs[name])
	}

	return NewRegistry(append(all, funcs...)...)
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	f, ok := r.funcs[name]

	return f, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.funcs))
}

// All iterates the registered functions in name order.
func (r *Registry) All() iter.Seq[Func] {
	return func(yield func(Func) bool) {
		for _, name := range r.Names() {
			if !yield(r.funcs[name]) {
				return
			}
		}
	}
}

// invoke adapts Fn to the expr-lang function signature.
func (f Func) invoke(params ...any) (any, error) {
	if !f.accepts(len(params)) {
		return nil, ErrFunctionCall.With(
			slog.String("function", f.Name),
			slog.String("issue", "wrong number of arguments"),
			slog.Int("args", len(params)),
		)
	}

	args := make([]Value, len(params))
	for i, p := range params {
		args[i] = ValueOf(p)
	}

	return f.Fn(args...)
}

// program returns the compiled call of name with n arguments.
func (r *Registry) program(name string, n int) (*vm.Program, error) {
	key := name + "/" + strconv.Itoa(n)

	if p, ok := r.programs.Load(key); ok {
		if prog, ok := p.(*vm.Program); ok {
			return prog, nil
		}
	}

	params := make([]string, n)
	env := make(map[string]any, n)

	for i := range params {
		params[i] = "a" + strconv.Itoa(i)
		env[params[i]] = any(nil)
	}

	src := exprName(name) + "(" + strings.Join(params, ", ") + ")"

	opts := append(slices.Clone(r.options), expr.Env(env))

	prog, err := expr.Compile(src, opts...)
	if err != nil {
		return nil, ErrDisallowedFunction.Wrap(err).
			With(slog.String("function", name))
	}

	r.programs.Store(key, prog)

	return prog, nil
}

// Call invokes the function name with args.
func (r *Registry) Call(ctx context.Context, name string, args ...Value) (Value, error) {
	return r.call(ctx, unbounded, name, args)
}

// unbounded is the budget of a call made outside a render.
const unbounded = -1

// call invokes name with args, failing with ErrResourceLimit before Fn runs
// if the function's Size bound exceeds budget bytes.
func (r *Registry) call(
	ctx context.Context,
	budget int,
	name string,
	args []Value,
) (Value, error) {
	if err := ctx.Err(); err != nil {
		return Null, err
	}

	if !identPattern.MatchString(name) {
		return Null, ErrDisallowedFunction.With(slog.String("function", name))
	}

	prog, err := r.program(name, len(args))
	if err != nil {
		return Null, err
	}

	if f := r.funcs[name]; budget != unbounded && f.Size != nil && f.accepts(len(args)) {
		if size := f.Size(args...); size > budget {
			return Null, ErrResourceLimit.With(
				slog.String("limit", "memory"),
				slog.String("function", name),
				slog.Int("size", size),
				slog.Int("budget", budget),
			)
		}
	}

	env := make(map[string]any, len(args))
	for i, a := range args {
		env["a"+strconv.Itoa(i)] = a
	}

	out, err := vm.Run(prog, env)
	if err != nil {
		return Null, ErrFunctionCall.Wrap(err).With(slog.String("function", name))
	}

	return ValueOf(out), nil
}
