package runtime

import (
	"net/netip"
	"testing"

	dockercontainer "github.com/docker/docker/api/types/container"
	dockerevents "github.com/docker/docker/api/types/events"
	dockernetwork "github.com/docker/docker/api/types/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genzj/warpconnect/pkg/types"
)

func TestToContainer_RunningWithNetworks(t *testing.T) {
	detail := dockercontainer.InspectResponse{
		ContainerJSONBase: &dockercontainer.ContainerJSONBase{
			ID:    "abc123",
			Name:  "/warp-egress",
			State: &dockercontainer.State{Running: true, Pid: 4242},
		},
		Config: &dockercontainer.Config{Labels: map[string]string{"role": "warp"}},
		NetworkSettings: &dockercontainer.NetworkSettings{
			Networks: map[string]*dockernetwork.EndpointSettings{
				"bridge": {
					IPAddress:   "172.17.0.2",
					IPPrefixLen: 16,
					Gateway:     "172.17.0.1",
				},
			},
		},
	}

	c := toContainer(detail)
	assert.Equal(t, "abc123", c.ID)
	assert.Equal(t, "warp-egress", c.Name)
	assert.Equal(t, "warp", c.Labels["role"])
	assert.Equal(t, types.LifecycleRunning, c.State)
	assert.Equal(t, 4242, c.Namespace.PID)

	require.Len(t, c.Networks, 1)
	na := c.Networks[0]
	assert.Equal(t, "bridge", na.Network)
	assert.Equal(t, netip.MustParseAddr("172.17.0.2"), na.Address)
	assert.Equal(t, netip.MustParseAddr("172.17.0.1"), na.Gateway)
	assert.Equal(t, 16, na.CIDR.Bits())
}

func TestToContainer_StoppedNoNetworks(t *testing.T) {
	detail := dockercontainer.InspectResponse{
		ContainerJSONBase: &dockercontainer.ContainerJSONBase{
			ID:    "def456",
			Name:  "/redis",
			State: &dockercontainer.State{Running: false},
		},
	}

	c := toContainer(detail)
	assert.Equal(t, types.LifecycleStopped, c.State)
	assert.Empty(t, c.Networks)
}

func TestToEventKind(t *testing.T) {
	tests := []struct {
		action   string
		wantKind types.RuntimeEventKind
		wantOK   bool
	}{
		{"start", types.RuntimeEventStart, true},
		{"die", types.RuntimeEventDie, true},
		{"destroy", types.RuntimeEventDestroy, true},
		{"pause", "", false},
	}
	for _, tt := range tests {
		kind, ok := toEventKind(dockerevents.Action(tt.action))
		assert.Equal(t, tt.wantOK, ok)
		if ok {
			assert.Equal(t, tt.wantKind, kind)
		}
	}
}
