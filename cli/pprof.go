//go:build pprof

package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/curly/log"
	"github.com/ardnew/curly/profile"
)

type pprofConfig struct {
	Mode  string `default:""            enum:",${pprofModeEnum}" help:"Profile the command in this mode." placeholder:"${enum}" short:"p"`
	Dir   string `default:"${pprofDir}"                          help:"Directory receiving profiles."                           type:"path"`
	Quiet bool   `default:"true"                                 help:"Hide the profiler's own messages."   negatable:""`
}

func (pprofConfig) vars() kong.Vars {
	return kong.Vars{
		"pprofModeEnum": strings.Join(profile.Modes(), ","),
		"pprofDir":      filepath.Join(cacheDir(), profile.Tag),
	}
}

func (pprofConfig) group() kong.Group {
	return kong.Group{Key: "pprof", Title: "Profiling (pprof)"}
}

func (f pprofConfig) profiler() profile.Profiler {
	return profile.Profiler{}.With(
		profile.WithMode(f.Mode),
		profile.WithPath(f.Dir),
		profile.WithQuiet(f.Quiet),
	)
}

// start begins profiling when a mode was requested. The returned func ends it.
func (f pprofConfig) start(ctx context.Context) (stop func()) {
	p := f.profiler()
	if !p.Enabled() {
		return func() {}
	}

	attrs := []slog.Attr{slog.String("mode", p.Mode), slog.String("dir", p.Path)}

	log.DebugContext(ctx, "profiling", attrs...)

	s := p.Start()

	return func() {
		s.Stop()
		log.DebugContext(ctx, "profile written", attrs...)
	}
}
