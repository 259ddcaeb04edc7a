/*
Package worker runs namespace-entering closures on a small pool of
OS-thread-pinned goroutines (spec §5).

Changing the calling thread's network namespace via setns(2) is a
thread-local side effect, so a goroutine that enters a namespace must never
be rescheduled onto another OS thread mid-operation, and no other goroutine
may run on that same thread while the namespace is entered. Each Pool
goroutine calls runtime.LockOSThread once at startup and never unlocks it:
the Go runtime retires that thread when the goroutine exits instead of
returning it to the scheduler's pool, the standard pattern for
namespace-pinned work (see vishvananda/netns's own docs, and the dranet
CNI driver's per-goroutine LockOSThread use this package is grounded on).

A Pool of size 1 is correct per spec §5; larger pools are an optimization
only if every submitted Job scopes its own namespace entry/exit and never
leaks state across jobs, which holds here since pkg/routes and pkg/netns
are both stateless per call.
*/
package worker
