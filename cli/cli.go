package cli

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/ardnew/curly/cli/cmd"
	"github.com/ardnew/curly/pkg"
)

// CLI is the top-level command-line interface for curly.
type CLI struct {
	Log    logConfig       `embed:"" group:"log"    prefix:"log-"`
	Pprof  pprofConfig     `embed:"" group:"pprof"  prefix:"pprof-"`
	Engine cmd.EngineFlags `embed:"" group:"engine"`
	Data   cmd.DataFlags   `embed:"" group:"data"`

	Version kong.VersionFlag `help:"Print version and exit." short:"V"`

	Render cmd.Render `cmd:"" default:"withargs" help:"Render a template (default)."`
	Check  cmd.Check  `cmd:""                    help:"Render a template and compare it with an expected file."`
	AST    cmd.AST    `cmd:"" name:"ast"         help:"Print the parsed tree of a template."`
	Funcs  cmd.Funcs  `cmd:""                    help:"List the functions templates may call."`
	Init   cmd.Init   `cmd:""                    help:"Write the current flags to the configuration file."`
	Repl   cmd.Repl   `cmd:""                    help:"Render templates interactively."`
}

var helpOptions = kong.HelpOptions{ //nolint:gochecknoglobals
	Compact:             true,
	Summary:             true,
	Tree:                true,
	NoExpandSubcommands: true,
}

// parser builds the kong parser for cli. Flag defaults come from the JSON and
// YAML configuration files when they exist, in that order of precedence.
func (cli *CLI) parser(ctx context.Context, exit func(int)) (*kong.Kong, error) {
	yamlConfig := configPath(baseConfig + ".yaml")

	vars := kong.Vars{
		cmd.ConfigIdentifier: yamlConfig,
		cmd.CacheIdentifier:  cacheDir(),
		"version":            pkg.Version,
	}

	for _, more := range []kong.Vars{
		cli.Log.vars(),
		cli.Pprof.vars(),
		cli.Engine.Vars(),
	} {
		vars = vars.CloneWith(more)
	}

	return kong.New(cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups([]kong.Group{
			cli.Log.group(),
			cli.Pprof.group(),
			cli.Engine.Group(),
			cli.Data.Group(),
		}),
		kong.BindSingletonProvider(func() context.Context { return ctx }),
		kong.ConfigureHelp(helpOptions),
		kong.Configuration(kong.JSON, configPath(baseConfig+".json")),
		kong.Configuration(resolve(ctx), yamlConfig),
		vars,
	)
}

// Run parses args and runs the selected command. exit is called by kong for
// --help, --version, and usage errors.
func Run(ctx context.Context, exit func(code int), args ...string) error {
	if err := mkdirAllRequired(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var cli CLI

	// Logger flags apply before parsing wherever they appear in args.
	cli.Log.scan(args)

	parser, err := cli.parser(ctx, exit)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithEngineFlags(ctx, cli.Engine)
	ctx = cmd.WithDataFlags(ctx, cli.Data)

	cli.Log.start(ctx)

	defer cli.Pprof.start(ctx)()

	return ktx.Run(ctx, &cli)
}
