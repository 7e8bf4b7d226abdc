// Package tmpl renders brace-tag text templates against a tree of values.
//
// A template is plain text interleaved with tags. Tags are parsed once into a
// node tree (cached by source) and rendered by walking the tree with an
// immutable scope, so inner constructs are fully rendered before they are
// spliced into the enclosing output.
//
// # Tags
//
// With the default delimiters:
//
//	{user.name}                      variable (also {user['name']}, {items[0].title})
//	{items.length}                   element count, or rune count of a string
//	{user.admin ? 'yes' : 'no'}      inline conditional; the else part is optional
//	{if a}...{elseif b}...{else}...{endif}
//	{for item in items}...{endfor}   also {for key, item in items}
//	{switch kind}{case 'a', 'b'}...{default}...{endswitch}
//	{include 'partials/header'}
//	{* comment *}
//	{upper(user.name)}               function call
//
// A delimiter followed by whitespace is literal text, so braces in CSS and
// scripts pass through. Tags that do not parse are kept as literal text.
//
// # Conditions
//
// Conditions are OR-chains of AND-chains of comparisons or bare operands,
// with ! and parentheses:
//
//	expr     := andChain ('||' andChain)*
//	andChain := unary ('&&' unary)*
//	unary    := '!' unary | primary
//	primary  := '(' expr ')' | operand [op operand]
//	op       := '===' | '!==' | '==' | '!=' | '>=' | '<=' | '>' | '<'
//
// Loose equality compares numerically when both sides look numeric and by
// string form otherwise; strict equality also requires the same kind.
// Ordering applies only to numeric pairs.
//
// # Loops
//
// Inside a loop body, "loop" holds the frame {index, index0, first, last,
// length, parent}, where parent is the frame of the enclosing loop.
//
// # Functions
//
// Calls are checked against a closed [Registry] compiled through expr-lang;
// names outside it are rejected. Results are HTML-escaped unless the
// function is marked Safe, like raw.
//
// # Failures
//
// Unresolved paths render as the empty string. Missing includes and failed
// calls follow the engine [Policy]: a comment marker, a returned error, or
// nothing. Exceeding a resource ceiling and circular includes always fail
// with an error matching [ErrResourceLimit].
//
// # Example
//
//	e, err := tmpl.New(tmpl.WithLoader(tmpl.DirLoader{Root: "templates", Ext: ".tpl"}))
//	if err != nil {
//		return err
//	}
//
//	out, err := e.Render(ctx, "Hello {user.name}", map[string]any{
//		"user": map[string]any{"name": "John"},
//	})
package tmpl
