// Package errctx records which instructions led a goroutine to its current work.
//
// Every subsystem of the runtime (screen, pty, plugin, the application
// supervisor, the IPC listener, the stdin reader and async terminal tasks)
// runs on its own goroutine and receives instructions over channels. When an
// instruction arrives, the receiving goroutine adopts the sender's
// [ErrorContext] and appends a [ContextType] describing the instruction:
//
//	ctx := msg.Ctx
//	ctx.AddCall(errctx.Screen(errctx.ScreenRender))
//
// AddCall publishes the result into a per-goroutine slot, so a panic handler
// running later on the same goroutine can read the trail with [Current]
// without any arguments and without locking.
//
// # Capacity
//
// A context holds at most [MaxThreadCallStack] calls. Calls recorded after
// the context is full are dropped; the earliest frames are kept.
//
// # Slots
//
// Slots are keyed by goroutine ID. A goroutine names itself with [Bind] when
// it starts and removes its slot with [Release] before it exits. Goroutines
// that never call Bind have no slot: their contexts are still built up as
// values, but [Current] does not see them.
package errctx
