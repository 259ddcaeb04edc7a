package resolver

import (
	"net/netip"
	"testing"

	"github.com/genzj/warpconnect/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAddr(s string) netip.Addr     { a, err := netip.ParseAddr(s); if err != nil { panic(err) }; return a }
func mustPrefix(s string) netip.Prefix { p, err := netip.ParsePrefix(s); if err != nil { panic(err) }; return p }

func attach(network, addr string) types.NetworkAttachment {
	return types.NetworkAttachment{Network: network, Address: mustAddr(addr)}
}

// Scenario 1 (spec §8): single-network warp.
func TestResolve_SingleNetworkWarp(t *testing.T) {
	warp := &types.Container{ID: "w1", Networks: []types.NetworkAttachment{attach("net-a", "10.0.0.2")}}
	target := &types.Container{ID: "t1", Networks: []types.NetworkAttachment{attach("net-a", "10.0.0.5")}}
	rules := []types.RoutingRule{{Destination: mustPrefix("0.0.0.0/0")}}

	specs, err := Resolve(target, warp, types.Role{Kind: types.RoleWarp}, rules)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, mustPrefix("0.0.0.0/0"), specs[0].Destination)
	assert.Equal(t, mustAddr("10.0.0.2"), specs[0].NextHop)
}

// Scenario 2 (spec §8): multi-network warp with a preference.
func TestResolve_MultiNetworkWarpWithPreference(t *testing.T) {
	warp := &types.Container{ID: "w1", Networks: []types.NetworkAttachment{
		attach("net-a", "10.0.0.2"),
		attach("net-b", "10.1.0.2"),
	}}
	target := &types.Container{ID: "t1", Networks: []types.NetworkAttachment{
		attach("net-a", "10.0.0.5"),
		attach("net-b", "10.1.0.5"),
	}}
	rules := []types.RoutingRule{{Destination: mustPrefix("192.168.0.0/16")}}

	specs, err := Resolve(target, warp, types.Role{Kind: types.RoleWarp, PreferredNetwork: "net-b"}, rules)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, mustAddr("10.1.0.2"), specs[0].NextHop)
}

// Scenario 3 (spec §8): multi-network warp, no preference -> ambiguous, no guessing.
func TestResolve_MultiNetworkWarpNoPreference(t *testing.T) {
	warp := &types.Container{ID: "w1", Networks: []types.NetworkAttachment{
		attach("net-a", "10.0.0.2"),
		attach("net-b", "10.1.0.2"),
	}}
	target := &types.Container{ID: "t1", Networks: []types.NetworkAttachment{attach("net-a", "10.0.0.5")}}
	rules := []types.RoutingRule{{Destination: mustPrefix("192.168.0.0/16")}}

	_, err := Resolve(target, warp, types.Role{Kind: types.RoleWarp}, rules)
	require.Error(t, err)
	var resolveErr *types.ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, types.ResolveAmbiguousWarpNetwork, resolveErr.Kind)
	assert.ElementsMatch(t, []string{"net-a", "net-b"}, resolveErr.CandidateNetworks)
}

func TestResolve_SkipsRuleWithNoViableFamily(t *testing.T) {
	warp := &types.Container{ID: "w1", Networks: []types.NetworkAttachment{attach("net-a", "10.0.0.2")}}
	target := &types.Container{ID: "t1", Networks: []types.NetworkAttachment{attach("net-a", "10.0.0.5")}}
	rules := []types.RoutingRule{
		{Destination: mustPrefix("0.0.0.0/0")},
		{Destination: mustPrefix("fd00::/8")}, // target has no v6 address, skipped not fatal
	}

	specs, err := Resolve(target, warp, types.Role{Kind: types.RoleWarp}, rules)
	require.NoError(t, err)
	require.Len(t, specs, 1)
}

func TestResolve_DeduplicatesByDestinationFamilyNextHop(t *testing.T) {
	warp := &types.Container{ID: "w1", Networks: []types.NetworkAttachment{attach("net-a", "10.0.0.2")}}
	target := &types.Container{ID: "t1", Networks: []types.NetworkAttachment{attach("net-a", "10.0.0.5")}}
	rules := []types.RoutingRule{
		{Destination: mustPrefix("0.0.0.0/0")},
		{Destination: mustPrefix("0.0.0.0/0")},
	}

	specs, err := Resolve(target, warp, types.Role{Kind: types.RoleWarp}, rules)
	require.NoError(t, err)
	assert.Len(t, specs, 1)
}
