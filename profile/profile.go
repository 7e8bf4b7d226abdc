package profile

// Stopper stops a running profiler and flushes its output.
type Stopper interface{ Stop() }

// Profiler describes a profiling session.
type Profiler struct {
	// Mode is one of [Modes]. An empty mode disables profiling.
	Mode string
	// Path is the directory receiving profile output.
	Path string
	// Quiet suppresses the profiler's own start and stop messages.
	Quiet bool
}

// With returns a copy of p with opts applied in order.
func (p Profiler) With(opts ...func(Profiler) Profiler) Profiler {
	for _, opt := range opts {
		p = opt(p)
	}

	return p
}

// Enabled reports whether p would start a profiler.
func (p Profiler) Enabled() bool {
	return p.Mode != "" && supported(p.Mode)
}

// Start starts the profiler and returns the [Stopper] that ends it.
//
// If the binary was built without the pprof tag, or p.Mode is unset or
// unknown, Start returns a no-op. Both Start and Stop are always safe to call.
func (p Profiler) Start() Stopper {
	if !p.Enabled() {
		return ignore{}
	}

	return start(p.Mode, p.Path, p.Quiet)
}

// WithMode returns an option setting a profiler's mode.
func WithMode(mode string) func(Profiler) Profiler {
	return func(p Profiler) Profiler {
		p.Mode = mode

		return p
	}
}

// WithPath returns an option setting a profiler's output directory.
func WithPath(path string) func(Profiler) Profiler {
	return func(p Profiler) Profiler {
		p.Path = path

		return p
	}
}

// WithQuiet returns an option setting a profiler's quiet flag.
func WithQuiet(quiet bool) func(Profiler) Profiler {
	return func(p Profiler) Profiler {
		p.Quiet = quiet

		return p
	}
}

type ignore struct{}

func (ignore) Stop() {}
