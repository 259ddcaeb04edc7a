/*
Package netns resolves a container's network namespace from its PID and
hands callers a netlink handle scoped to that namespace (spec §4.4).

Entering a namespace is per-OS-thread state in Linux (setns(2) affects only
the calling thread), so every Handle is obtained via
github.com/vishvananda/netns.GetFromPath plus
github.com/vishvananda/netlink.NewHandleAt rather than by calling
netns.Set on the calling goroutine's thread. Callers that need the handle
to stay valid across multiple netlink calls must still run those calls
from a goroutine that has called runtime.LockOSThread — see pkg/worker,
which owns that pinning for the daemon's route-programming calls.

A container whose PID has already exited (the "gone" case from spec §7)
surfaces as a *types.NamespaceError with Gone set, not as an opaque OS
error, so the Reconciler can tell "container is gone, drop the job" apart
from "namespace temporarily unreachable, retry".
*/
package netns
