// Package panics captures panics on the runtime's goroutines, turns them into
// reports that include the goroutine's error context, and routes them.
//
// A panic on the main goroutine prints the report to stdout and exits the
// process with status 1. A panic anywhere else is sent to the supervisor
// through a Notifier and the goroutine is allowed to finish; the rest of the
// process keeps running.
//
// Go has no process-wide panic hook, so the router has to be deferred at the
// top of every goroutine it should cover. Router.Go and Router.GoGroup do
// that, together with errctx.Bind and errctx.Release:
//
//	router := panics.NewRouter(panics.Options{})
//	if err := panics.Install(router); err != nil { ... }
//	router.BindMain()
//	defer panics.Handle()
//
//	router.Attach(notifier)
//	router.Go("screen_thread", screen.Run)
package panics
