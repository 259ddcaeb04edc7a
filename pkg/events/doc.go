/*
Package events provides an in-memory broker for the daemon's observability
surface (spec §6, "Observability surface (exposed)"): container observed,
reconcile start/end, route installed/removed/replaced, and error events.

The broker itself is topic-agnostic and unchanged from the cluster-worker
lineage this project draws from: Publish enqueues onto a buffered channel, a
single broadcast goroutine fans each event out to every Subscriber's own
buffered channel, and a full subscriber buffer drops rather than blocks the
broadcaster. What changed is the event vocabulary: EventType's values and
Event's payload now describe route lifecycle and reconcile outcomes instead
of cluster scheduling events, so anything subscribed to the broker observes
the same domain language pkg/reconciler logs structurally via zerolog. No
package in this daemon subscribes today; the metrics Collector
(pkg/metrics) samples the Store directly rather than reading the broker.

This package carries no reconcile logic itself; pkg/reconciler publishes,
subscribers only read.
*/
package events
