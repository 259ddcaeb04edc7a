/*
Package routes programs kernel routes inside a target container's network
namespace (spec §4.3). It is the only package that calls into
github.com/vishvananda/netlink's Route* functions; every operation takes a
netns.NamespaceHandle already scoped to the right namespace, so this package
never decides which namespace it runs in.

Install and Remove are both idempotent: installing a route that is already
present (RTNETLINK answers EEXIST) is reported as AlreadyPresent rather
than an error, and removing one that is already gone (ESRCH) is reported
as NotFound rather than an error. Only genuine kernel failures, and
insufficient privileges (EPERM, surfaced as a fatal *types.RouteError),
are returned as errors.
*/
package routes
