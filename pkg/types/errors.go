package types

import "fmt"

// ClassificationError is returned by pkg/classifier when a recognized label
// carries a structurally invalid value. Per spec §4.1 the offending
// container is marked Ignored and this is logged, not propagated as fatal.
type ClassificationError struct {
	ContainerID string
	LabelKey    string
	Reason      string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify %s: malformed label %q: %s", e.ContainerID, e.LabelKey, e.Reason)
}

// ResolveError is returned by pkg/resolver. Only one kind exists today
// (AmbiguousWarpNetwork); the Kind field leaves room for the error to grow
// without breaking callers that type-switch on *ResolveError.
type ResolveErrorKind int

const (
	ResolveAmbiguousWarpNetwork ResolveErrorKind = iota
)

type ResolveError struct {
	Kind               ResolveErrorKind
	WarpID             string
	CandidateNetworks  []string
}

func (e *ResolveError) Error() string {
	switch e.Kind {
	case ResolveAmbiguousWarpNetwork:
		return fmt.Sprintf("warp %s has multiple networks %v and no preference declared", e.WarpID, e.CandidateNetworks)
	default:
		return "resolve error"
	}
}

// RouteErrorKind enumerates the Route Programmer's failure modes (spec §4.3).
type RouteErrorKind int

const (
	RouteErrorFamilyMismatch RouteErrorKind = iota
	RouteErrorInsufficientPrivileges
	RouteErrorKernel
)

// RouteError wraps a Route Programmer failure. InsufficientPrivileges is
// fatal to the daemon (spec §4.3, §7); the others are retried by the
// Reconciler.
type RouteError struct {
	Kind RouteErrorKind
	Spec RouteSpec
	Err  error
}

func (e *RouteError) Error() string {
	switch e.Kind {
	case RouteErrorFamilyMismatch:
		return fmt.Sprintf("route %s: destination/next-hop family mismatch", e.Spec)
	case RouteErrorInsufficientPrivileges:
		return fmt.Sprintf("route %s: insufficient privileges: %v", e.Spec, e.Err)
	default:
		return fmt.Sprintf("route %s: %v", e.Spec, e.Err)
	}
}

func (e *RouteError) Unwrap() error { return e.Err }

// Fatal reports whether this error class should bring the daemon down
// (spec §4.3: "EPERM/insufficient capability ... is fatal to the daemon").
func (e *RouteError) Fatal() bool { return e.Kind == RouteErrorInsufficientPrivileges }

// NamespaceError is returned by pkg/netns. Gone is not an error condition by
// itself: callers treat it as success during removal and as a skip during
// install (spec §7).
type NamespaceError struct {
	ContainerID string
	Gone        bool
	Err         error
}

func (e *NamespaceError) Error() string {
	if e.Gone {
		return fmt.Sprintf("namespace for container %s is gone", e.ContainerID)
	}
	return fmt.Sprintf("namespace for container %s: %v", e.ContainerID, e.Err)
}

func (e *NamespaceError) Unwrap() error { return e.Err }

// RuntimeError wraps a Runtime Client failure. Fatal distinguishes
// RuntimeClientFatal from RuntimeClientTransient (spec §7) — callers check
// this one field rather than two distinct types.
type RuntimeError struct {
	Op    string
	Fatal bool
	Err   error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime client %s: %v", e.Op, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// ConfigError signals an invalid AppConfig at load time (spec §7, fatal at
// startup).
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// CapabilityError signals the process lacks the privilege required to
// administer routes (spec §6, §7). Fatal at startup; fatal-on-first-
// occurrence if it resurfaces during steady state.
type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("missing capability %s: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }
