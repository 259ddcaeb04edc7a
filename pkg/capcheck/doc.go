/*
Package capcheck verifies at startup that the process holds CAP_NET_ADMIN,
the privilege required to add, remove, and dump routes in a target
container's network namespace (spec §6 "The daemon MUST verify this
capability at startup and fail with a diagnostic if absent").

It reads the calling thread's effective capability set with a raw
capget(2) call via golang.org/x/sys/unix, the same syscall the minimega
container runtime in this project's reference corpus uses to manage Linux
capability sets, rather than shelling out to a CLI tool or parsing
/proc/self/status text.
*/
package capcheck
