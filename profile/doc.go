// Package profile provides optional runtime profiling for curly.
//
// Profiling wraps [github.com/pkg/profile] and is compiled in only with the
// "pprof" build tag:
//
//	go build -tags pprof -o curly .
//
// Without the tag, [Modes] is empty and [Profiler.Start] returns a no-op
// stopper, so callers never need to check.
//
// # Modes
//
//   - allocs:    memory allocation profiling (all allocations)
//   - block:     blocking on synchronization primitives
//   - clock:     wall-clock profiling
//   - cpu:       CPU profiling
//   - goroutine: goroutine profiling
//   - heap:      heap profiling (live allocations)
//   - mem:       general memory profiling
//   - mutex:     mutex contention profiling
//   - thread:    thread creation profiling
//   - trace:     execution trace
//
// # Usage
//
//	p := profile.Profiler{}.With(
//		profile.WithMode("cpu"),
//		profile.WithPath("/tmp/curly"),
//	)
//	defer p.Start().Stop()
//
// From the command line, a render can be profiled with:
//
//	curly --pprof-mode=cpu --pprof-dir=./prof page.tpl
//	go tool pprof -http=: ./prof/cpu.pprof
//
// The default output directory is the "pprof" subdirectory of the user cache
// directory for curly.
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
