// Package resolver computes the set of routes a target container needs, for
// a given warp peer and the configured routing rules (spec §4.2). It is
// pure: given the same target, warp, and rule set it always returns the
// same RouteSpecs, and it never guesses a warp's outgoing attachment when
// more than one is viable.
package resolver

import (
	"github.com/genzj/warpconnect/pkg/log"
	"github.com/genzj/warpconnect/pkg/types"
)

// Resolve implements spec §4.2 steps 1-7.
func Resolve(target, warp *types.Container, warpRole types.Role, rules []types.RoutingRule) ([]types.RouteSpec, error) {
	attachment, err := chooseWarpAttachment(warp, warpRole.PreferredNetwork)
	if err != nil {
		return nil, err
	}

	nextHop := attachment.Address
	nextHopFamily := types.FamilyOf(nextHop)

	targetFamilies := make(map[types.Family]bool)
	for _, na := range target.Networks {
		targetFamilies[types.FamilyOf(na.Address)] = true
	}

	logger := log.WithComponent("resolver")

	seen := make(map[types.RouteKey]bool)
	var specs []types.RouteSpec
	for _, rule := range rules {
		ruleFamily := types.FamilyOf(rule.Destination.Addr())
		if ruleFamily != nextHopFamily {
			logger.Warn().
				Str("target_id", target.ID).
				Str("warp_id", warp.ID).
				Str("destination", rule.Destination.String()).
				Msg("skipping rule: next-hop family does not match destination family")
			continue
		}
		if !targetFamilies[ruleFamily] {
			logger.Warn().
				Str("target_id", target.ID).
				Str("destination", rule.Destination.String()).
				Msg("skipping rule: target has no address in this family")
			continue
		}

		spec := types.RouteSpec{Destination: rule.Destination, NextHop: nextHop}
		key := spec.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		specs = append(specs, spec)
	}

	return specs, nil
}

// chooseWarpAttachment implements spec §4.2 steps 2-4: pick the warp's sole
// attachment, or the one matching its declared preference, or fail rather
// than guess.
func chooseWarpAttachment(warp *types.Container, preferredNetwork string) (types.NetworkAttachment, error) {
	if len(warp.Networks) == 1 {
		return warp.Networks[0], nil
	}

	if preferredNetwork != "" {
		for _, na := range warp.Networks {
			if na.Network == preferredNetwork {
				return na, nil
			}
		}
	}

	candidates := make([]string, 0, len(warp.Networks))
	for _, na := range warp.Networks {
		candidates = append(candidates, na.Network)
	}
	return types.NetworkAttachment{}, &types.ResolveError{
		Kind:              types.ResolveAmbiguousWarpNetwork,
		WarpID:            warp.ID,
		CandidateNetworks: candidates,
	}
}
