package tmpl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// NodeType identifies the kind of a parsed [Node].
type NodeType uint8

const (
	// NodeText is literal output.
	NodeText NodeType = iota

	// NodeVariable substitutes a resolved path.
	NodeVariable

	// NodeTernary selects one of two operands.
	NodeTernary

	// NodeIf selects the first branch whose condition holds.
	NodeIf

	// NodeFor repeats its body for each element of a container.
	NodeFor

	// NodeSwitch selects the first case matching its subject.
	NodeSwitch

	// NodeInclude renders another template in place.
	NodeInclude

	// NodeCall invokes a registered function.
	NodeCall

	// NodeComment produces no output.
	NodeComment
)

// String returns a string representation of the node type.
func (t NodeType) String() string {
	switch t {
	case NodeText:
		return "text"

	case NodeVariable:
		return "variable"

	case NodeTernary:
		return "ternary"

	case NodeIf:
		return "if"

	case NodeFor:
		return "for"

	case NodeSwitch:
		return "switch"

	case NodeInclude:
		return "include"

	case NodeCall:
		return "call"

	case NodeComment:
		return "comment"

	default:
		return "unknown"
	}
}

// Node is an element of a parsed template tree.
type Node interface {
	// Type returns the kind of node.
	Type() NodeType
	// Pos returns the position of the node's opening tag.
	Pos() Pos
	// Raw returns the node's opening tag as written in the source.
	Raw() string
}

type base struct {
	raw string
	pos Pos
}

func (b base) Pos() Pos { return b.pos }

func (b base) Raw() string { return b.raw }

func newBase(t token) base { return base{raw: t.raw, pos: t.pos} }

// literal recovers a token as text output.
func literal(t token) *Text { return &Text{base: newBase(t), Text: t.raw} }

// Text is literal template output.
type Text struct {
	base

	Text string
}

// Type implements Node.
func (*Text) Type() NodeType { return NodeText }

// Comment is a {* ... *} block.
type Comment struct {
	base

	Text string
}

// Type implements Node.
func (*Comment) Type() NodeType { return NodeComment }

// Variable is a {path} substitution.
type Variable struct {
	base

	Path Path
}

// Type implements Node.
func (*Variable) Type() NodeType { return NodeVariable }

// Ternary is a {cond ? then : else} selection. Else is optional.
type Ternary struct {
	base

	Cond    Expr
	Then    Operand
	Else    Operand
	HasElse bool
}

// Type implements Node.
func (*Ternary) Type() NodeType { return NodeTernary }

// Branch is a guarded body of an [If].
type Branch struct {
	Cond Expr
	Body []Node
}

// If is an {if}...{elseif}...{else}...{endif} block.
type If struct {
	base

	Branches []Branch
	Else     []Node
	HasElse  bool
}

// Type implements Node.
func (*If) Type() NodeType { return NodeIf }

// For is a {for item in path} or {for key, item in path} block.
type For struct {
	base

	Key    string
	Item   string
	Source Path
	Body   []Node
}

// Type implements Node.
func (*For) Type() NodeType { return NodeFor }

// Case is one {case a, b} section of a [Switch].
type Case struct {
	Labels []Operand
	Body   []Node
}

// Switch is a {switch subject}{case ...}...{default}...{endswitch} block.
type Switch struct {
	base

	Subject    Expr
	Cases      []Case
	Default    []Node
	HasDefault bool
}

// Type implements Node.
func (*Switch) Type() NodeType { return NodeSwitch }

// Include is an {include name} tag. A quoted name is literal; a bare name is
// resolved as a path first and used literally when it does not resolve to a
// String.
type Include struct {
	base

	Name Operand
}

// Type implements Node.
func (*Include) Type() NodeType { return NodeInclude }

// Arg is a function argument: an operand or a nested call.
type Arg struct {
	Operand Operand
	Call    *Call
}

// String returns the argument's source text.
func (a Arg) String() string {
	if a.Call != nil {
		return a.Call.Source()
	}

	return a.Operand.String()
}

// Call is a {name(args...)} function invocation.
type Call struct {
	base

	Name string
	Args []Arg
}

// Type implements Node.
func (*Call) Type() NodeType { return NodeCall }

// Source returns the call expression without delimiters.
func (c *Call) Source() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}

	return c.Name + "(" + strings.Join(args, ", ") + ")"
}

// Template is a parsed template.
type Template struct {
	Name  string
	Nodes []Node
}

// Format writes the template tree as indented text, one node per line.
func (t *Template) Format(_ context.Context, w io.Writer, indent int) error {
	var b strings.Builder

	formatNodes(&b, t.Nodes, indent, 0)

	_, err := io.WriteString(w, b.String())

	return err
}

// FormatJSON writes the template tree as JSON.
func (t *Template) FormatJSON(_ context.Context, w io.Writer, indent int) error {
	var (
		data []byte
		err  error
	)

	tree := ValueOf(t.ToMap())

	if indent > 0 {
		data, err = json.MarshalIndent(tree, "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(tree)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

// FormatYAML writes the template tree as YAML.
func (t *Template) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	data, err := yaml.MarshalContext(ctx, t.ToMap(), opts...)
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}

// ToMap returns the template tree as ordered YAML-compatible data.
func (t *Template) ToMap() yaml.MapSlice {
	return yaml.MapSlice{
		{Key: "name", Value: t.Name},
		{Key: "nodes", Value: nodesToMap(t.Nodes)},
	}
}

func nodesToMap(nodes []Node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = nodeToMap(n)
	}

	return out
}

func nodeToMap(n Node) yaml.MapSlice {
	m := yaml.MapSlice{
		{Key: "type", Value: n.Type().String()},
		{Key: "pos", Value: n.Pos().String()},
	}

	add := func(k string, v any) { m = append(m, yaml.MapItem{Key: k, Value: v}) }

	switch x := n.(type) {
	case *Text:
		add("text", x.Text)

	case *Comment:
		add("text", x.Text)

	case *Variable:
		add("path", x.Path.Dotted())

	case *Ternary:
		add("cond", x.Cond.String())
		add("then", x.Then.String())

		if x.HasElse {
			add("else", x.Else.String())
		}

	case *If:
		branches := make([]any, len(x.Branches))
		for i, br := range x.Branches {
			branches[i] = yaml.MapSlice{
				{Key: "cond", Value: br.Cond.String()},
				{Key: "body", Value: nodesToMap(br.Body)},
			}
		}

		add("branches", branches)

		if x.HasElse {
			add("else", nodesToMap(x.Else))
		}

	case *For:
		if x.Key != "" {
			add("key", x.Key)
		}

		add("item", x.Item)
		add("source", x.Source.Dotted())
		add("body", nodesToMap(x.Body))

	case *Switch:
		add("subject", x.Subject.String())

		cases := make([]any, len(x.Cases))
		for i, c := range x.Cases {
			labels := make([]any, len(c.Labels))
			for j, l := range c.Labels {
				labels[j] = l.String()
			}

			cases[i] = yaml.MapSlice{
				{Key: "labels", Value: labels},
				{Key: "body", Value: nodesToMap(c.Body)},
			}
		}

		add("cases", cases)

		if x.HasDefault {
			add("default", nodesToMap(x.Default))
		}

	case *Include:
		add("name", x.Name.String())

	case *Call:
		add("name", x.Name)

		args := make([]any, len(x.Args))
		for i, a := range x.Args {
			args[i] = a.String()
		}

		add("args", args)
	}

	return m
}

func formatNodes(b *strings.Builder, nodes []Node, indent, depth int) {
	for _, n := range nodes {
		formatNode(b, n, indent, depth)
	}
}

func formatLine(b *strings.Builder, indent, depth int, parts ...string) {
	b.WriteString(strings.Repeat(" ", indent*depth))
	b.WriteString(strings.Join(parts, " "))
	b.WriteByte('\n')
}

func formatNode(b *strings.Builder, n Node, indent, depth int) {
	head := n.Type().String() + "@" + n.Pos().String()

	switch x := n.(type) {
	case *Text:
		formatLine(b, indent, depth, head, strconv.Quote(x.Text))

	case *Comment:
		formatLine(b, indent, depth, head, strconv.Quote(x.Text))

	case *Variable:
		formatLine(b, indent, depth, head, x.Path.Dotted())

	case *Ternary:
		parts := []string{head, x.Cond.String(), "?", x.Then.String()}
		if x.HasElse {
			parts = append(parts, ":", x.Else.String())
		}

		formatLine(b, indent, depth, parts...)

	case *If:
		formatLine(b, indent, depth, head)

		for _, br := range x.Branches {
			formatLine(b, indent, depth+1, "when", br.Cond.String())
			formatNodes(b, br.Body, indent, depth+2)
		}

		if x.HasElse {
			formatLine(b, indent, depth+1, "else")
			formatNodes(b, x.Else, indent, depth+2)
		}

	case *For:
		binding := x.Item
		if x.Key != "" {
			binding = x.Key + ", " + x.Item
		}

		formatLine(b, indent, depth, head, binding, "in", x.Source.Dotted())
		formatNodes(b, x.Body, indent, depth+1)

	case *Switch:
		formatLine(b, indent, depth, head, x.Subject.String())

		for _, c := range x.Cases {
			labels := make([]string, len(c.Labels))
			for i, l := range c.Labels {
				labels[i] = l.String()
			}

			formatLine(b, indent, depth+1, "case", strings.Join(labels, ", "))
			formatNodes(b, c.Body, indent, depth+2)
		}

		if x.HasDefault {
			formatLine(b, indent, depth+1, "default")
			formatNodes(b, x.Default, indent, depth+2)
		}

	case *Include:
		formatLine(b, indent, depth, head, x.Name.String())

	case *Call:
		formatLine(b, indent, depth, head, x.Source())
	}
}
