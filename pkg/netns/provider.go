package netns

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/genzj/warpconnect/pkg/types"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// NetlinkOps is the subset of *netlink.Handle the routes package needs.
// Declaring it here (rather than depending on the concrete *netlink.Handle
// type) is the capability-interface test seam spec §9 calls for: production
// code gets a real *netlink.Handle, tests substitute an in-memory fake.
type NetlinkOps interface {
	RouteAdd(route *netlink.Route) error
	RouteDel(route *netlink.Route) error
	RouteList(link netlink.Link, family int) ([]netlink.Route, error)
	LinkByIndex(index int) (netlink.Link, error)
	LinkByName(name string) (netlink.Link, error)
}

// NamespaceHandle is what the routes package operates on: a netlink handle
// plus link lookup, both already scoped to one namespace.
type NamespaceHandle interface {
	Netlink() NetlinkOps
	Link(name string) (netlink.Link, error)
}

// OpenHandle is a NamespaceHandle whose file descriptors the caller owns and
// must release (spec §5, "Namespace file descriptors are owned by the
// worker performing the entry and closed on exit"). It is the return type
// of Opener.Open, kept distinct from NamespaceHandle so pkg/routes's tests
// (which never open or close a real namespace) don't need a Close stub.
type OpenHandle interface {
	NamespaceHandle
	Close()
}

// Opener resolves a container's namespace to an OpenHandle. It is the
// capability-interface test seam (spec §9) for the Namespace Handle
// Provider: pkg/reconciler depends on Opener, not *Provider, so tests
// substitute an in-memory fake instead of touching /proc or the kernel.
type Opener interface {
	Open(containerID string, pid int) (OpenHandle, error)
}

// Handle is a netlink handle scoped to one container's network namespace.
// Callers must call Close when done; it releases both the netlink socket
// and the namespace file descriptor.
type Handle struct {
	nl *netlink.Handle
	ns netns.NsHandle
}

// Link returns the netlink Link for the given interface name inside this
// namespace.
func (h *Handle) Link(name string) (netlink.Link, error) {
	return h.nl.LinkByName(name)
}

// Netlink exposes the underlying namespace-scoped netlink handle for
// route/link operations.
func (h *Handle) Netlink() NetlinkOps {
	return h.nl
}

// Close releases the netlink handle and the namespace file descriptor.
func (h *Handle) Close() {
	h.nl.Close()
	h.ns.Close()
}

// Provider resolves a container's PID to a namespace-scoped Handle.
type Provider struct {
	// ProcRoot is the mount point of procfs, "/proc" in production and an
	// overridable path in tests.
	ProcRoot string
}

// NewProvider returns a Provider rooted at the host's /proc.
func NewProvider() *Provider {
	return &Provider{ProcRoot: "/proc"}
}

// Open resolves containerID's namespace via its PID and returns a Handle
// scoped to it. If the process no longer exists, the returned error is a
// *types.NamespaceError with Gone set, per spec §7: a container that died
// between being queued and being processed is not a failure, it is a
// no-op.
func (p *Provider) Open(containerID string, pid int) (OpenHandle, error) {
	path := p.nsPath(pid)

	if _, err := os.Stat(path); err != nil {
		if isGone(err) {
			return nil, &types.NamespaceError{ContainerID: containerID, Gone: true}
		}
		return nil, &types.NamespaceError{ContainerID: containerID, Err: err}
	}

	nsHandle, err := netns.GetFromPath(path)
	if err != nil {
		if isGone(err) {
			return nil, &types.NamespaceError{ContainerID: containerID, Gone: true}
		}
		return nil, &types.NamespaceError{ContainerID: containerID, Err: fmt.Errorf("get namespace from %s: %w", path, err)}
	}

	nlHandle, err := netlink.NewHandleAt(nsHandle)
	if err != nil {
		nsHandle.Close()
		return nil, &types.NamespaceError{ContainerID: containerID, Err: fmt.Errorf("netlink handle for %s: %w", path, err)}
	}

	return &Handle{nl: nlHandle, ns: nsHandle}, nil
}

// isGone reports whether err means the process behind a namespace path has
// exited (ENOENT or ESRCH).
func isGone(err error) bool {
	return os.IsNotExist(err) || errors.Is(err, syscall.ESRCH)
}

func (p *Provider) nsPath(pid int) string {
	return fmt.Sprintf("%s/%d/ns/net", p.ProcRoot, pid)
}
