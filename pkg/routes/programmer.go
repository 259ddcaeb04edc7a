package routes

import (
	"errors"
	"net"
	"net/netip"
	"syscall"

	"github.com/genzj/warpconnect/pkg/netns"
	"github.com/genzj/warpconnect/pkg/types"
	"github.com/vishvananda/netlink"
)

// InstallOutcome is the result of an idempotent install (spec §4.3).
type InstallOutcome int

const (
	Added InstallOutcome = iota
	AlreadyPresent
	Replaced
)

func (o InstallOutcome) String() string {
	switch o {
	case Added:
		return "added"
	case AlreadyPresent:
		return "already_present"
	case Replaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// RemoveOutcome is the result of an idempotent remove (spec §4.3).
type RemoveOutcome int

const (
	Removed RemoveOutcome = iota
	NotFound
)

func (o RemoveOutcome) String() string {
	if o == Removed {
		return "removed"
	}
	return "not_found"
}

// Programmer installs, removes, and lists kernel routes within a single
// namespace handle. It holds no state of its own; the Store is the source
// of truth for what should be installed.
type Programmer struct{}

// NewProgrammer returns a stateless Programmer.
func NewProgrammer() *Programmer {
	return &Programmer{}
}

// Install implements spec §4.3's install operation.
func (p *Programmer) Install(handle netns.NamespaceHandle, spec types.RouteSpec) (InstallOutcome, error) {
	if types.FamilyOf(spec.Destination.Addr()) != types.FamilyOf(spec.NextHop) {
		return 0, &types.RouteError{Kind: types.RouteErrorFamilyMismatch, Spec: spec}
	}

	link, err := resolveLink(handle, spec.Interface)
	if err != nil {
		return 0, err
	}

	route := toNetlinkRoute(spec, link)

	existing, err := findByDestination(handle, route)
	if err != nil {
		return 0, translateKernelErr(spec, err)
	}

	if existing != nil {
		if sameNextHop(existing, route) {
			return AlreadyPresent, nil
		}

		if err := handle.Netlink().RouteAdd(route); err != nil && !errors.Is(err, syscall.EEXIST) {
			return 0, translateKernelErr(spec, err)
		}
		if err := handle.Netlink().RouteDel(existing); err != nil && !errors.Is(err, syscall.ESRCH) {
			return 0, translateKernelErr(spec, err)
		}
		return Replaced, nil
	}

	if err := handle.Netlink().RouteAdd(route); err != nil {
		if errors.Is(err, syscall.EEXIST) {
			return AlreadyPresent, nil
		}
		return 0, translateKernelErr(spec, err)
	}
	return Added, nil
}

// Remove implements spec §4.3's remove operation.
func (p *Programmer) Remove(handle netns.NamespaceHandle, spec types.RouteSpec) (RemoveOutcome, error) {
	link, err := resolveLink(handle, spec.Interface)
	if err != nil {
		if _, ok := err.(*types.RouteError); ok {
			return NotFound, nil
		}
		return 0, err
	}

	route := toNetlinkRoute(spec, link)

	if err := handle.Netlink().RouteDel(route); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return NotFound, nil
		}
		return 0, translateKernelErr(spec, err)
	}
	return Removed, nil
}

// List implements spec §4.3's list operation, returning the routes this
// namespace currently carries across both address families. Only routes
// with both a destination and a gateway are returned; others are skipped.
func (p *Programmer) List(handle netns.NamespaceHandle) ([]types.RouteSpec, error) {
	var specs []types.RouteSpec
	for _, family := range []int{netlink.FAMILY_V4, netlink.FAMILY_V6} {
		kernelRoutes, err := handle.Netlink().RouteList(nil, family)
		if err != nil {
			return nil, translateKernelErr(types.RouteSpec{}, err)
		}
		for _, r := range kernelRoutes {
			if r.Dst == nil || r.Gw == nil {
				continue
			}
			dst, ok := toPrefix(r.Dst)
			if !ok {
				continue
			}
			nextHop, ok := toAddr(r.Gw)
			if !ok {
				continue
			}
			ifName := ""
			if link, err := handle.Netlink().LinkByIndex(r.LinkIndex); err == nil {
				ifName = link.Attrs().Name
			}
			specs = append(specs, types.RouteSpec{Destination: dst, NextHop: nextHop, Interface: ifName})
		}
	}
	return specs, nil
}

func resolveLink(handle netns.NamespaceHandle, name string) (netlink.Link, error) {
	if name == "" {
		return nil, nil
	}
	link, err := handle.Link(name)
	if err != nil {
		return nil, &types.RouteError{Kind: types.RouteErrorKernel, Err: err}
	}
	return link, nil
}

func toNetlinkRoute(spec types.RouteSpec, link netlink.Link) *netlink.Route {
	route := &netlink.Route{
		Dst: prefixToIPNet(spec.Destination),
		Gw:  spec.NextHop.AsSlice(),
	}
	if link != nil {
		route.LinkIndex = link.Attrs().Index
	}
	if spec.Metric != nil {
		route.Priority = *spec.Metric
	}
	return route
}

func findByDestination(handle netns.NamespaceHandle, want *netlink.Route) (*netlink.Route, error) {
	family := netlink.FAMILY_V4
	if want.Dst.IP.To4() == nil {
		family = netlink.FAMILY_V6
	}
	existing, err := handle.Netlink().RouteList(nil, family)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		r := existing[i]
		if r.Dst == nil {
			continue
		}
		if r.Dst.String() == want.Dst.String() {
			return &r, nil
		}
	}
	return nil, nil
}

func sameNextHop(a, b *netlink.Route) bool {
	if a.Gw == nil || b.Gw == nil {
		return a.Gw == nil && b.Gw == nil
	}
	return a.Gw.Equal(b.Gw)
}

func translateKernelErr(spec types.RouteSpec, err error) error {
	if errors.Is(err, syscall.EPERM) {
		return &types.RouteError{Kind: types.RouteErrorInsufficientPrivileges, Spec: spec, Err: err}
	}
	return &types.RouteError{Kind: types.RouteErrorKernel, Spec: spec, Err: err}
}

func prefixToIPNet(p netip.Prefix) *net.IPNet {
	return &net.IPNet{
		IP:   p.Addr().AsSlice(),
		Mask: net.CIDRMask(p.Bits(), p.Addr().BitLen()),
	}
}

func toPrefix(n *net.IPNet) (netip.Prefix, bool) {
	addr, ok := netip.AddrFromSlice(n.IP)
	if !ok {
		return netip.Prefix{}, false
	}
	ones, _ := n.Mask.Size()
	return netip.PrefixFrom(addr.Unmap(), ones), true
}

func toAddr(ip net.IP) (netip.Addr, bool) {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
