package runtime

import (
	"context"
	"net/netip"
	"strings"
	"time"

	dockercontainer "github.com/docker/docker/api/types/container"
	dockerevents "github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	dockerclient "github.com/docker/docker/client"

	"github.com/genzj/warpconnect/pkg/log"
	"github.com/genzj/warpconnect/pkg/types"
)

// Client is the Runtime Client capability interface (spec §4.1, §9): list
// containers (running and stopped), inspect one by id, and stream lifecycle
// events.
// Production wires DockerClient; tests substitute a fake.
type Client interface {
	List(ctx context.Context) ([]types.Container, error)
	Inspect(ctx context.Context, id string) (types.Container, error)
	Events(ctx context.Context) (<-chan types.RuntimeEvent, <-chan error)
	Close() error
}

// DockerClient implements Client against a local Docker Engine socket.
type DockerClient struct {
	cli *dockerclient.Client
}

// NewDockerClient dials the Docker Engine API using the standard
// DOCKER_HOST/DOCKER_CERT_PATH/DOCKER_TLS_VERIFY environment, negotiating
// the API version with the daemon.
func NewDockerClient() (*DockerClient, error) {
	cli, err := dockerclient.NewClientWithOpts(dockerclient.FromEnv, dockerclient.WithAPIVersionNegotiation())
	if err != nil {
		return nil, &types.RuntimeError{Op: "connect", Fatal: true, Err: err}
	}
	return &DockerClient{cli: cli}, nil
}

// Close releases the underlying HTTP client's connections.
func (d *DockerClient) Close() error {
	return d.cli.Close()
}

// List enumerates every container the daemon knows about (running and
// stopped; spec §4.6 seeds the Store from the full list at startup) and
// inspects each one for the detail the Classifier and Resolver need.
func (d *DockerClient) List(ctx context.Context) ([]types.Container, error) {
	summaries, err := d.cli.ContainerList(ctx, dockercontainer.ListOptions{All: true})
	if err != nil {
		return nil, &types.RuntimeError{Op: "list", Err: err}
	}

	out := make([]types.Container, 0, len(summaries))
	for _, s := range summaries {
		c, err := d.Inspect(ctx, s.ID)
		if err != nil {
			log.WithComponent("runtime").Warn().Str("container_id", s.ID).Err(err).Msg("dropping container: inspect failed during enumeration")
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Inspect fetches full detail for a single container by id.
func (d *DockerClient) Inspect(ctx context.Context, id string) (types.Container, error) {
	detail, err := d.cli.ContainerInspect(ctx, id)
	if err != nil {
		return types.Container{}, &types.RuntimeError{Op: "inspect", Err: err}
	}
	return toContainer(detail), nil
}

// Events streams container lifecycle events. The returned event channel
// closes when the underlying stream ends; a stream error, if any, is sent on
// the error channel first, and the error channel itself is never closed.
// Callers (pkg/reconciler) are
// responsible for reconnecting with backoff and treating reconnection as
// an implicit RuntimeEventReconnect.
func (d *DockerClient) Events(ctx context.Context) (<-chan types.RuntimeEvent, <-chan error) {
	out := make(chan types.RuntimeEvent)
	outErr := make(chan error, 1)

	filterArgs := filters.NewArgs()
	filterArgs.Add("type", string(dockerevents.ContainerEventType))

	raw, rawErr := d.cli.Events(ctx, dockerevents.ListOptions{Filters: filterArgs})

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-rawErr:
				if !ok {
					return
				}
				outErr <- err
				return
			case msg, ok := <-raw:
				if !ok {
					return
				}
				kind, ok := toEventKind(msg.Action)
				if !ok {
					continue
				}
				out <- types.RuntimeEvent{Kind: kind, ContainerID: msg.Actor.ID, Timestamp: time.Unix(0, msg.TimeNano).UTC()}
			}
		}
	}()

	return out, outErr
}

func toEventKind(action dockerevents.Action) (types.RuntimeEventKind, bool) {
	switch string(action) {
	case "start":
		return types.RuntimeEventStart, true
	case "die":
		return types.RuntimeEventDie, true
	case "destroy":
		return types.RuntimeEventDestroy, true
	default:
		return "", false
	}
}

func toContainer(detail dockercontainer.InspectResponse) types.Container {
	name := strings.TrimPrefix(detail.Name, "/")

	var labels map[string]string
	if detail.Config != nil {
		labels = detail.Config.Labels
	}

	var networks []types.NetworkAttachment
	if detail.NetworkSettings != nil {
		for netName, ep := range detail.NetworkSettings.Networks {
			na := types.NetworkAttachment{Network: netName}

			if ep.IPAddress != "" {
				if addr, err := netip.ParseAddr(ep.IPAddress); err == nil {
					na.Address = addr
					if ep.IPPrefixLen > 0 {
						na.CIDR = netip.PrefixFrom(addr, ep.IPPrefixLen)
					}
				}
			} else if ep.GlobalIPv6Address != "" {
				if addr, err := netip.ParseAddr(ep.GlobalIPv6Address); err == nil {
					na.Address = addr
					if ep.GlobalIPv6PrefixLen > 0 {
						na.CIDR = netip.PrefixFrom(addr, ep.GlobalIPv6PrefixLen)
					}
				}
			}

			if ep.Gateway != "" {
				if gw, err := netip.ParseAddr(ep.Gateway); err == nil {
					na.Gateway = gw
				}
			} else if ep.IPv6Gateway != "" {
				if gw, err := netip.ParseAddr(ep.IPv6Gateway); err == nil {
					na.Gateway = gw
				}
			}

			networks = append(networks, na)
		}
	}

	state := types.LifecycleStopped
	pid := 0
	if detail.State != nil {
		pid = detail.State.Pid
		switch {
		case detail.State.Running && !detail.State.Paused:
			state = types.LifecycleRunning
		case detail.State.Restarting:
			state = types.LifecycleStarting
		case detail.State.Running:
			state = types.LifecycleStopping
		}
	}

	return types.Container{
		ID:        detail.ID,
		Name:      name,
		Labels:    labels,
		Networks:  networks,
		State:     state,
		Namespace: types.NamespaceRef{PID: pid},
	}
}
