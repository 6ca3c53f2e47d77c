// Package trace records the lifecycle of the runtime's threads.
//
// Every named goroutine emits an event when it starts and when it exits;
// receivers emit one event per instruction they take off a channel, and the
// panic router emits one event per captured panic.
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: bounded buffer of recent events, attached to crash records
//   - ChannelTracer: forwards events to a consumer such as the thread monitor
//   - MultiTracer: combines multiple tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelThread: thread start, exit and panic
//   - LevelInstruction: everything, including each received instruction
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
package trace
