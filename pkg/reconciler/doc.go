/*
Package reconciler drives the daemon's event loop: it consumes the Runtime
Client's container lifecycle stream, classifies and stores what it observes,
and keeps each target container's installed routes converged on what the
Resolver says they should be.

# Event loop

Run seeds the Store from a full container enumeration, then reads the
Runtime Client's event channel until its context is canceled. A start event
re-classifies the container and, depending on its role, enqueues a reconcile
for the target itself (RoleTarget) or for every target currently bound to it
(RoleWarp, matched by name). A die or destroy event removes the container
from the Store; if it was a target, every route it still has installed is
best-effort removed first, and if it was a warp, every target that pointed
at it is re-enqueued so they can notice they are now warp-less.

When the event channel closes, Run waits out an exponential-backoff-with-
full-jitter delay (base 500ms, cap 30s), re-enumerates the container list,
and synthesizes a reconnect event that re-enqueues every known target. This
is what makes a disconnect safe: events missed during the gap are
recovered by treating "we're back" as "re-check everyone."

# Per-target actors

Route convergence for one target must never race with another convergence
for the same target, but different targets must not block each other and
the daemon must not hold a namespace open any longer than it has to. The
Reconciler gets this from one actor per target: a goroutine reading from a
capacity-1 inbox channel. Enqueuing a reconcile is non-blocking — if one is
already pending, the new request is dropped, since re-running the same
reconcile again immediately after would only repeat the just-scheduled
work.

The inbox carries a signal{retry bool}. A fresh (non-retry) signal resets
the actor's attempt counters, since it represents a new reason to
reconcile; a retry signal, self-scheduled by the actor after a failure,
preserves them so the retry budget persists across the backoff delay.

# Reconcile and diff

reconcileTarget resolves the target's warp by name, asks the Resolver for
the desired RouteSpecs, and hands the result to applyDiff together with
whatever the Store believes is currently installed. applyDiff computes the
install/remove delta by RouteKey, then opens the target's namespace exactly
once and performs every removal followed by every install inside a single
worker-pool job, never suspending the goroutine that holds the namespace
open and never opening it more than once per reconcile.

A warp that cannot be resolved (no selector match yet) is treated as
"desired = nil": every route the target currently has installed gets
removed. A target whose namespace has already vanished is not a failure;
Open returning a Gone *types.NamespaceError is a no-op during removal and a
skip during install.

# Failure handling

Errors out of reconcileTarget are classified in runOneReconcile:

  - *types.ResolveError (ambiguous warp network): logged, no retry; the
    target stays as it is until a new relevant event arrives.
  - *types.RouteError with Fatal() (insufficient privileges): the
    configured FatalFunc is invoked; the Reconciler itself never calls
    os.Exit, that decision belongs to cmd/warpconnectd.
  - context.DeadlineExceeded (worker-pool job timeout): rescheduled
    exactly once.
  - any other *types.RouteError: rescheduled up to three times with
    backoff, then left as a logged diagnostic while the daemon continues
    reconciling other targets.

# Shutdown

Canceling Run's context drains every actor (bounded by
Config.ShutdownDrainTimeout) and then best-effort removes every route the
Store still believes is installed, regardless of whether an actor was
mid-reconcile when it stopped.
*/
package reconciler
