package cli

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/curly/log"
)

// logLevel reconfigures the default logger as soon as kong decodes it, so
// that errors reported while parsing the rest of the command line already
// use the requested level.
type logLevel string

func (l *logLevel) UnmarshalText(text []byte) error {
	*l = logLevel(text)
	log.Config(log.WithLevel(log.ParseLevel(string(text))))

	return nil
}

// logFormat is the format counterpart of [logLevel].
type logFormat string

func (f *logFormat) UnmarshalText(text []byte) error {
	*f = logFormat(text)
	log.Config(log.WithFormat(log.ParseFormat(string(text))))

	return nil
}

type logConfig struct {
	Level      logLevel  `default:"info"    enum:"${logLevelEnum}"  help:"Minimum severity written to stderr."`
	Format     logFormat `default:"text"    enum:"${logFormatEnum}" help:"Log record format."`
	TimeLayout string    `default:"RFC3339"                         help:"Timestamp layout, a time package name, or none."`
	Caller     bool      `default:"false"                           help:"Add the source position of each record."     negatable:""`
	Pretty     bool      `default:"true"                            help:"Style records for a terminal."               negatable:""`
}

func (*logConfig) vars() kong.Vars {
	return kong.Vars{
		"logLevelEnum":  strings.Join(slices.Collect(log.Levels()), ","),
		"logFormatEnum": strings.Join(slices.Collect(log.Formats()), ","),
	}
}

func (*logConfig) group() kong.Group {
	return kong.Group{Key: "log", Title: "Logging options"}
}

func (f *logConfig) options() []log.Option {
	return []log.Option{
		log.WithLevel(log.ParseLevel(string(f.Level))),
		log.WithFormat(log.ParseFormat(string(f.Format))),
		log.WithTimeLayout(f.TimeLayout),
		log.WithCaller(f.Caller),
		log.WithPretty(f.Pretty),
	}
}

// start applies the fully parsed configuration to the default logger.
func (f *logConfig) start(ctx context.Context) {
	log.Config(f.options()...)

	log.DebugContext(ctx, "logger configured",
		slog.String("level", string(f.Level)),
		slog.String("format", string(f.Format)),
		slog.String("time_layout", f.TimeLayout),
		slog.Bool("caller", f.Caller),
		slog.Bool("pretty", f.Pretty),
	)
}

// logArg is one "--log-*" or "--no-log-*" command-line argument.
type logArg struct {
	name     string
	value    string
	assigned bool
	negated  bool
}

func splitLogArg(arg string) (logArg, bool) {
	name, value, assigned := strings.Cut(arg, "=")

	if rest, ok := strings.CutPrefix(name, "--no-log-"); ok {
		return logArg{rest, value, assigned, true}, true
	}

	if rest, ok := strings.CutPrefix(name, "--log-"); ok {
		return logArg{rest, value, assigned, false}, true
	}

	return logArg{}, false
}

// enabled interprets a as a boolean switch. A bare switch is true and only an
// assigned value is parsed.
func (a logArg) enabled() (bool, error) {
	if !a.assigned {
		return !a.negated, nil
	}

	v, err := strconv.ParseBool(a.value)
	if err != nil {
		return false, err
	}

	return v != a.negated, nil
}

// scan applies the logger flags in args before kong parses them. Boolean
// flags never pass through UnmarshalText, and a flag that follows the
// subcommand would otherwise take effect only after parsing succeeds.
func (f *logConfig) scan(args []string) {
	for i := 0; i < len(args); i++ {
		arg, ok := splitLogArg(args[i])
		if !ok {
			continue
		}

		switch arg.name {
		case "level", "format":
			if arg.negated {
				continue
			}

			if !arg.assigned && i+1 < len(args) &&
				args[i+1] != "" && !strings.HasPrefix(args[i+1], "-") {
				i++
				arg.value = args[i]
			}

			if arg.name == "level" {
				_ = f.Level.UnmarshalText([]byte(arg.value))
			} else {
				_ = f.Format.UnmarshalText([]byte(arg.value))
			}

		case "pretty":
			if enable, err := arg.enabled(); err == nil {
				f.Pretty = enable
				log.Config(log.WithPretty(enable))
			}

		case "caller":
			if enable, err := arg.enabled(); err == nil {
				f.Caller = enable
				log.Config(log.WithCaller(enable))
			}
		}
	}
}
