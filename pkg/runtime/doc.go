/*
Package runtime is the daemon's read-only view of the container runtime
(spec §4.1, Runtime Client): listing containers (running and stopped),
inspecting one by id, and streaming lifecycle events.

It wraps github.com/docker/docker/client against a local Docker Engine
socket. Container network attachments come from NetworkSettings.Networks,
the same map the DataDog agent's docker integration walks to build its
interface-to-network mapping; this package does the equivalent walk but
keeps the CIDR and gateway fields this daemon's NetworkAttachment needs
instead of discarding them for metric tagging.

Client is a narrow interface over *client.Client (List, Inspect, Events)
so the Reconciler can be tested against an in-memory fake instead of a
real daemon, per spec §9's capability-interface test seam.
*/
package runtime
