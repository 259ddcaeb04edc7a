package types

import (
	"fmt"
	"net/netip"
	"time"
)

// LifecycleState is the observed state of a container as reported by the runtime.
type LifecycleState string

const (
	LifecycleStarting LifecycleState = "starting"
	LifecycleRunning  LifecycleState = "running"
	LifecycleStopping LifecycleState = "stopping"
	LifecycleStopped  LifecycleState = "stopped"
)

// NetworkAttachment binds a container to one runtime network.
type NetworkAttachment struct {
	Network string // runtime network name, case-sensitive
	Address netip.Addr
	CIDR    netip.Prefix
	Gateway netip.Addr // IsValid() == false when the runtime published none
}

// Container is a runtime-observed container and everything the Classifier,
// Resolver, and Route Programmer need to act on it.
type Container struct {
	ID        string
	Name      string
	Labels    map[string]string
	Networks  []NetworkAttachment
	State     LifecycleState
	Namespace NamespaceRef // opaque handle usable to scope kernel calls
}

// NamespaceRef is an opaque reference to a container's network namespace,
// produced by the Runtime Client and consumed by pkg/netns.
type NamespaceRef struct {
	PID int // host PID whose /proc/<pid>/ns/net identifies the namespace
}

// RoleKind discriminates the Role sum type.
type RoleKind int

const (
	RoleIgnored RoleKind = iota
	RoleWarp
	RoleTarget
)

func (k RoleKind) String() string {
	switch k {
	case RoleWarp:
		return "warp"
	case RoleTarget:
		return "target"
	default:
		return "ignored"
	}
}

// Role is the Classifier's verdict on a Container.
//
//   - Kind == RoleWarp: PreferredNetwork is set when the container carries the
//     network-preference label; empty means "no preference declared".
//   - Kind == RoleTarget: WarpSelector names the warp container this target
//     wants to bind to (matched against a warp's Name).
//   - Kind == RoleIgnored: neither field is meaningful.
type Role struct {
	Kind             RoleKind
	PreferredNetwork string
	WarpSelector     string
}

func (r Role) String() string {
	switch r.Kind {
	case RoleWarp:
		if r.PreferredNetwork != "" {
			return fmt.Sprintf("warp(preferred_network=%s)", r.PreferredNetwork)
		}
		return "warp"
	case RoleTarget:
		return fmt.Sprintf("target(warp_selector=%s)", r.WarpSelector)
	default:
		return "ignored"
	}
}

// Family is an address family tag, kept explicit rather than re-derived from
// a string at every call site (netip.Addr already carries it, this just
// names it for logging and for RouteSpec's canonical key).
type Family int

const (
	FamilyV4 Family = iota
	FamilyV6
)

func FamilyOf(addr netip.Addr) Family {
	if addr.Is4() || addr.Is4In6() {
		return FamilyV4
	}
	return FamilyV6
}

func (f Family) String() string {
	if f == FamilyV6 {
		return "ipv6"
	}
	return "ipv4"
}

// RouteSpec is a single route the Resolver wants installed in a target's
// namespace.
type RouteSpec struct {
	Destination netip.Prefix
	NextHop     netip.Addr
	Interface   string // resolved to a link index at program-time; "" = unset
	Metric      *int   // advisory only, nil = kernel default
}

// RouteKey is the canonical identity of a route, used for both diffing and
// de-duplication (spec §9, "Route identity").
type RouteKey struct {
	Family      Family
	Destination netip.Prefix
	NextHop     netip.Addr
	Interface   string
}

func (s RouteSpec) Key() RouteKey {
	return RouteKey{
		Family:      FamilyOf(s.NextHop),
		Destination: s.Destination,
		NextHop:     s.NextHop,
		Interface:   s.Interface,
	}
}

func (s RouteSpec) String() string {
	if s.Interface != "" {
		return fmt.Sprintf("%s via %s dev %s", s.Destination, s.NextHop, s.Interface)
	}
	return fmt.Sprintf("%s via %s", s.Destination, s.NextHop)
}

// RoutingRule is a configuration-supplied destination to forward through the
// warp container. Protocol/Port are reserved by the data model (spec §3) but
// rejected at config load (pkg/config) since plain kernel routes cannot
// honor them without a policy-routing path this project does not implement.
type RoutingRule struct {
	Destination netip.Prefix
	Protocol    string // advisory, reserved; non-empty is a load-time error
	PortMin     int
	PortMax     int
}

// HasPortOrProtocol reports whether this rule carries fields plain
// destination-prefix routes cannot express.
func (r RoutingRule) HasPortOrProtocol() bool {
	return r.Protocol != "" || r.PortMin != 0 || r.PortMax != 0
}

// InstalledRouteRecord is the Store's record of a route believed to be
// present in a target's namespace.
type InstalledRouteRecord struct {
	TargetID       string
	Spec           RouteSpec
	WarpID         string
	WarpAttachment string
	InstalledAt    time.Time
}

// RuntimeEventKind enumerates the lifecycle transitions the Runtime Client
// reports, plus the internal-only Reconnect kind (spec §4.6: "reconnect on
// stream recovery" — synthesized locally, never received from the runtime).
type RuntimeEventKind string

const (
	RuntimeEventStart     RuntimeEventKind = "start"
	RuntimeEventDie       RuntimeEventKind = "die"
	RuntimeEventDestroy   RuntimeEventKind = "destroy"
	RuntimeEventReconnect RuntimeEventKind = "reconnect"
)

// RuntimeEvent is a single item from the Runtime Client's event stream.
type RuntimeEvent struct {
	Kind        RuntimeEventKind
	ContainerID string
	Timestamp   time.Time
}
