// Package profile provides optional runtime profiling for the bakefile
// command.
//
// It integrates [github.com/pkg/profile] behind conditional compilation:
// profiling must be enabled at build time using the "pprof" build tag,
// and release builds compile it out entirely, leaving no-ops with zero
// runtime overhead.
//
// # Available Profiling Modes
//
// When built with the pprof tag, the following modes are supported:
//
//   - allocs:    Memory allocation profiling (all allocations)
//   - block:     Block (synchronization) profiling
//   - clock:     Wall-clock profiling
//   - cpu:       CPU profiling
//   - goroutine: Goroutine profiling
//   - heap:      Heap memory profiling (live allocations)
//   - mem:       General memory profiling
//   - mutex:     Mutex contention profiling
//   - thread:    Thread creation profiling
//   - trace:     Execution trace profiling
//
// Use [Modes] to retrieve the list of supported modes programmatically.
//
// # Usage
//
// The profiler is started from the CLI entry point:
//
//	p := profile.Config{Mode: "cpu", Path: "/tmp/profiles"}.Start()
//	defer p.Stop()
//
// Profile files are written to the configured directory with names
// matching the profiling mode (e.g., cpu.pprof, mem.pprof) and analyzed
// with the usual tooling:
//
//	go tool pprof ./bakefile /tmp/profiles/cpu.pprof
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
