package tmpl_test

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ardnew/curly/tmpl"
)

func ExampleRender() {
	out, err := tmpl.Render(context.Background(),
		"Hello {user.name}!{for t in user.tags} #{t}{endfor}",
		map[string]any{
			"user": map[string]any{"name": "John", "tags": []string{"go", "yaml"}},
		})
	if err != nil {
		fmt.Println(err)

		return
	}

	fmt.Println(out)
	// Output: Hello John! #go #yaml
}

func ExampleEngine_Render() {
	e, err := tmpl.New(
		tmpl.WithLoader(tmpl.MapLoader{"badge": "[{upper(role)}]"}),
	)
	if err != nil {
		fmt.Println(err)

		return
	}

	const text = "{for u in users}{u.name}{if u.admin}{include 'badge'}{endif}{loop.last ? '' : ', '}{endfor}"

	out, _ := e.Render(context.Background(), text, map[string]any{
		"role": "admin",
		"users": []map[string]any{
			{"name": "ann", "admin": true},
			{"name": "bob"},
		},
	})

	fmt.Println(out)
	// Output: ann[ADMIN], bob
}

func ExampleWithPolicy() {
	ctx := context.Background()

	for _, name := range tmpl.Policies() {
		p, _ := tmpl.ParsePolicy(name)
		e, _ := tmpl.New(tmpl.WithPolicy(p))

		out, err := e.Render(ctx, "a{include 'missing'}b", nil)

		fmt.Printf("%s: %q %v\n", p, out, errors.Is(err, tmpl.ErrNotFound))
	}
	// Output:
	// comment: "a<!-- curly: template not found: missing -->b" false
	// fail: "" true
	// silent: "ab" false
}

func ExampleTemplate_Format() {
	e, _ := tmpl.New()

	t, _ := e.Parse(context.Background(), "greeting", "Hi {name}{if vip}!{endif}")

	_ = t.Format(context.Background(), os.Stdout, 2)
	// Output:
	// text@1:1 "Hi "
	// variable@1:4 name
	// if@1:10
	//   when vip
	//     text@1:18 "!"
}
