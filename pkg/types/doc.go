/*
Package types defines the core data structures shared across warpconnect.

It holds the domain model observed from the container runtime (Container,
NetworkAttachment), the declarative routing intent (RoutingRule), the
Resolver's output (RouteSpec), and the Store's bookkeeping record of what has
actually been programmed into a target's namespace (InstalledRouteRecord).

# Role

Role is a closed sum of Warp, Target, or Ignored, modeled as a Kind tag plus
the fields relevant to that kind (Go has no tagged unions):

	r := types.Role{Kind: types.RoleTarget, WarpSelector: "warp-egress"}

# Route identity

Two RouteSpecs describe the same kernel route iff their Key() matches:
family, destination, and next-hop (the outgoing interface, when pinned, is
part of the key too — see pkg/routes). Key() is also what the Store uses to
index InstalledRouteRecords per target, so route diffing and de-duplication
share one definition of "the same route" end to end.
*/
package types
