/*
Package metrics defines and exposes the daemon's Prometheus metrics (spec §6
"Observability surface", SPEC_FULL.md §6 "Metrics surface").

Counters and histograms (warpconnect_reconcile_duration_seconds,
warpconnect_reconcile_cycles_total, warpconnect_routes_installed_total,
warpconnect_routes_removed_total, warpconnect_routes_replaced_total,
warpconnect_route_errors_total, warpconnect_runtime_reconnects_total) are
incremented directly by pkg/reconciler at the point a reconcile or route
mutation happens. Gauges that only make sense as a point-in-time snapshot of
the Store (warpconnect_known_containers, warpconnect_targets_awaiting_warp)
are instead sampled periodically by Collector, which owns no reconcile logic
and never mutates the Store it reads.

Handler exposes the registry over HTTP for mounting at /metrics. HealthChecker
(health.go) is a separate, simpler component tracking named subsystems'
up/down status for the /health, /ready, /live endpoints; it has no dependency
on the Prometheus registry.
*/
package metrics
