package store

import (
	"sync"

	"github.com/genzj/warpconnect/pkg/types"
)

// Store is the Reconciler's sole source of truth for container, role, and
// installed-route state (spec §4.5). The zero value is not usable; use New.
type Store struct {
	mu sync.RWMutex

	containers map[string]types.Container
	roles      map[string]types.Role
	installed  map[string]map[types.RouteKey]types.InstalledRouteRecord
	warpByName map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		containers: make(map[string]types.Container),
		roles:      make(map[string]types.Role),
		installed:  make(map[string]map[types.RouteKey]types.InstalledRouteRecord),
		warpByName: make(map[string]string),
	}
}

// UpsertContainer records c's metadata and resolved role as one
// transaction, maintaining the warp_by_name secondary index when role is
// Warp.
func (s *Store) UpsertContainer(c types.Container, role types.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.containers[c.ID] = c
	s.roles[c.ID] = role

	if role.Kind == types.RoleWarp {
		s.warpByName[c.Name] = c.ID
	}
}

// RemoveContainer drops c's metadata, role, installed-route records, and
// any warp_by_name entry pointing at it.
func (s *Store) RemoveContainer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.containers[id]; ok {
		if name, ok := s.warpByName[c.Name]; ok && name == id {
			delete(s.warpByName, c.Name)
		}
	}
	delete(s.containers, id)
	delete(s.roles, id)
	delete(s.installed, id)
}

// Container returns a snapshot of the container record for id. The
// returned value is deep-copied; callers may not mutate Store state
// through its Labels or Networks.
func (s *Store) Container(id string) (types.Container, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.containers[id]
	if !ok {
		return types.Container{}, false
	}
	return cloneContainer(c), true
}

// cloneContainer returns a copy of c whose Labels map and Networks slice
// do not alias the original's backing storage.
func cloneContainer(c types.Container) types.Container {
	if c.Labels != nil {
		labels := make(map[string]string, len(c.Labels))
		for k, v := range c.Labels {
			labels[k] = v
		}
		c.Labels = labels
	}
	if c.Networks != nil {
		c.Networks = append([]types.NetworkAttachment(nil), c.Networks...)
	}
	return c
}

// Role returns the resolved role for id.
func (s *Store) Role(id string) (types.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[id]
	return r, ok
}

// WarpIDByName resolves a warp container's runtime name to its id via the
// warp_by_name secondary index.
func (s *Store) WarpIDByName(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.warpByName[name]
	return id, ok
}

// TargetsBySelector returns the ids of every container currently
// classified as a Target whose WarpSelector equals warpName.
func (s *Store) TargetsBySelector(warpName string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, role := range s.roles {
		if role.Kind == types.RoleTarget && role.WarpSelector == warpName {
			ids = append(ids, id)
		}
	}
	return ids
}

// AllContainers returns a snapshot of every known container, for full
// reconcile on stream reconnect, shutdown cleanup, and metrics sampling.
func (s *Store) AllContainers() []types.Container {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Container, 0, len(s.containers))
	for _, c := range s.containers {
		out = append(out, cloneContainer(c))
	}
	return out
}

// InstalledRoutes returns a snapshot of the InstalledRouteRecords
// currently recorded for targetID.
func (s *Store) InstalledRoutes(targetID string) []types.InstalledRouteRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKey := s.installed[targetID]
	out := make([]types.InstalledRouteRecord, 0, len(byKey))
	for _, rec := range byKey {
		out = append(out, rec)
	}
	return out
}

// RecordRoute upserts a single InstalledRouteRecord, keyed by its
// RouteSpec's Key() (family, destination, next-hop, interface). A record for
// the same destination with a different next-hop is a different key and is
// not replaced here; the caller drops the old record when it removes that
// route.
func (s *Store) RecordRoute(targetID string, rec types.InstalledRouteRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey, ok := s.installed[targetID]
	if !ok {
		byKey = make(map[types.RouteKey]types.InstalledRouteRecord)
		s.installed[targetID] = byKey
	}
	byKey[rec.Spec.Key()] = rec
}

// DropRoute removes a single InstalledRouteRecord by its RouteSpec key.
func (s *Store) DropRoute(targetID string, key types.RouteKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey, ok := s.installed[targetID]
	if !ok {
		return
	}
	delete(byKey, key)
	if len(byKey) == 0 {
		delete(s.installed, targetID)
	}
}

// ClearRoutes drops every InstalledRouteRecord for targetID, used after a
// best-effort removal of all of a target's routes (target die/destroy, and
// shutdown).
func (s *Store) ClearRoutes(targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.installed, targetID)
}
