package metrics

import (
	"time"

	"github.com/genzj/warpconnect/pkg/store"
	"github.com/genzj/warpconnect/pkg/types"
)

// Collector periodically samples the Store into the known_containers and
// targets_awaiting_warp gauges. The per-event counters (routes installed,
// removed, reconcile cycles, ...) are incremented directly by pkg/reconciler
// at the point of mutation; Collector only covers state best expressed as a
// point-in-time snapshot of the Store.
type Collector struct {
	store    *store.Store
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector returns a Collector sampling store every interval. interval
// <= 0 defaults to 15s.
func NewCollector(s *store.Store, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{store: s, interval: interval, stopCh: make(chan struct{})}
}

// Start begins the sampling loop in a background goroutine.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop ends the sampling loop.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	containers := c.store.AllContainers()

	byRole := map[string]int{"warp": 0, "target": 0, "ignored": 0}
	awaiting := 0

	for _, cnt := range containers {
		role, ok := c.store.Role(cnt.ID)
		if !ok {
			continue
		}
		byRole[role.Kind.String()]++

		if role.Kind == types.RoleTarget {
			if _, resolved := c.store.WarpIDByName(role.WarpSelector); !resolved {
				awaiting++
			}
		}
	}

	for role, count := range byRole {
		KnownContainersTotal.WithLabelValues(role).Set(float64(count))
	}
	TargetsAwaitingWarp.Set(float64(awaiting))
}
