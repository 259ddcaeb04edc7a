// Package classifier maps container metadata to a role, with no side
// effects and no dependence on live state: identical metadata always yields
// identical output (spec §4.1).
package classifier

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/genzj/warpconnect/pkg/types"
)

// Config is the subset of AppConfig the Classifier needs. It is passed in
// rather than imported from pkg/config to keep the dependency direction
// leaf-ward (pkg/config depends on pkg/types, not the other way around).
type Config struct {
	WarpNamePattern       string // glob matched against Container.Name
	TargetLabel           string // label key selecting Target role
	NetworkPreferenceLabel string // label key naming a Warp's preferred network
}

// Classify implements the decision order from spec §4.1: warp name pattern,
// then target label, then Ignored.
func Classify(c *types.Container, cfg Config) (types.Role, error) {
	if cfg.WarpNamePattern != "" {
		matched, err := doublestar.Match(cfg.WarpNamePattern, c.Name)
		if err != nil {
			return types.Role{}, &types.ClassificationError{
				ContainerID: c.ID,
				LabelKey:    "(warp-name-pattern)",
				Reason:      err.Error(),
			}
		}
		if matched {
			pref, ok := c.Labels[cfg.NetworkPreferenceLabel]
			if ok && strings.TrimSpace(pref) == "" {
				return types.Role{}, &types.ClassificationError{
					ContainerID: c.ID,
					LabelKey:    cfg.NetworkPreferenceLabel,
					Reason:      "empty after trim",
				}
			}
			return types.Role{Kind: types.RoleWarp, PreferredNetwork: pref}, nil
		}
	}

	if v, ok := c.Labels[cfg.TargetLabel]; ok {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return types.Role{}, &types.ClassificationError{
				ContainerID: c.ID,
				LabelKey:    cfg.TargetLabel,
				Reason:      "empty after trim",
			}
		}
		return types.Role{Kind: types.RoleTarget, WarpSelector: trimmed}, nil
	}

	return types.Role{Kind: types.RoleIgnored}, nil
}
