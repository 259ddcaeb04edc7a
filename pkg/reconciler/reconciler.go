package reconciler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/genzj/warpconnect/pkg/classifier"
	"github.com/genzj/warpconnect/pkg/events"
	"github.com/genzj/warpconnect/pkg/log"
	"github.com/genzj/warpconnect/pkg/metrics"
	"github.com/genzj/warpconnect/pkg/netns"
	"github.com/genzj/warpconnect/pkg/resolver"
	"github.com/genzj/warpconnect/pkg/routes"
	"github.com/genzj/warpconnect/pkg/runtime"
	"github.com/genzj/warpconnect/pkg/store"
	"github.com/genzj/warpconnect/pkg/types"
	"github.com/genzj/warpconnect/pkg/worker"
)

const maxRouteRetries = 3

// routeErrorKindLabel maps a RouteErrorKind to the "kind" label value for
// warpconnect_route_errors_total.
func routeErrorKindLabel(kind types.RouteErrorKind) string {
	switch kind {
	case types.RouteErrorFamilyMismatch:
		return "family_mismatch"
	case types.RouteErrorInsufficientPrivileges:
		return "insufficient_privileges"
	default:
		return "kernel"
	}
}

var (
	routeRetryBase = 200 * time.Millisecond
	routeRetryCap  = 5 * time.Second

	reconnectBase = 500 * time.Millisecond
	reconnectCap  = 30 * time.Second
)

// RouteProgrammer is the capability interface over pkg/routes.Programmer
// (spec §9): production wires the real kernel-backed Programmer, tests
// substitute an in-memory fake netns.NamespaceHandle underneath a real
// Programmer, or a fake Programmer entirely.
type RouteProgrammer interface {
	Install(handle netns.NamespaceHandle, spec types.RouteSpec) (routes.InstallOutcome, error)
	Remove(handle netns.NamespaceHandle, spec types.RouteSpec) (routes.RemoveOutcome, error)
	List(handle netns.NamespaceHandle) ([]types.RouteSpec, error)
}

// FatalFunc is invoked when a *types.RouteError with Fatal()==true resurfaces
// during steady state (spec §7: "fatal-on-first-occurrence"). The caller
// (cmd/warpconnectd) decides how the process exits; the Reconciler itself
// never calls os.Exit.
type FatalFunc func(error)

// Config is the reconcile-affecting subset of AppConfig.
type Config struct {
	Classifier           classifier.Config
	Rules                []types.RoutingRule
	JobTimeout           time.Duration // default worker.DefaultJobTimeout
	ShutdownDrainTimeout time.Duration // default 10s
}

// Reconciler is the daemon's event loop (spec §4.6): it consumes the
// Runtime Client's event stream, classifies and stores containers, and
// drives one bounded-inbox actor per target to keep installed routes
// converged on the Resolver's output.
type Reconciler struct {
	rt     runtime.Client
	opener netns.Opener
	prog   RouteProgrammer
	pool   *worker.Pool
	store  *store.Store
	broker *events.Broker
	onFatal FatalFunc
	cfg    Config
	logger zerolog.Logger

	mu     sync.Mutex
	actors map[string]*actor
	wg     sync.WaitGroup

	stopCh chan struct{}
}

type signal struct {
	retry bool
}

type actor struct {
	inbox chan signal
	quit  chan struct{}

	routeAttempts int
	timeoutUsed   bool
}

// New constructs a Reconciler. All collaborators are injected (spec §9: "no
// global state; all collaborators are injected into the Reconciler at
// construction").
func New(rt runtime.Client, opener netns.Opener, prog RouteProgrammer, pool *worker.Pool, st *store.Store, broker *events.Broker, onFatal FatalFunc, cfg Config) *Reconciler {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = worker.DefaultJobTimeout
	}
	if cfg.ShutdownDrainTimeout <= 0 {
		cfg.ShutdownDrainTimeout = 10 * time.Second
	}
	return &Reconciler{
		rt:      rt,
		opener:  opener,
		prog:    prog,
		pool:    pool,
		store:   st,
		broker:  broker,
		onFatal: onFatal,
		cfg:     cfg,
		logger:  log.WithComponent("reconciler"),
		actors:  make(map[string]*actor),
		stopCh:  make(chan struct{}),
	}
}

// Run seeds the Store from the full container list, then consumes runtime
// events until ctx is canceled, reconnecting with exponential backoff and
// full jitter on stream loss (spec §4.6). It returns ctx.Err() after a
// clean, drained shutdown.
func (r *Reconciler) Run(ctx context.Context) error {
	metrics.RegisterComponent("reconciler", true, "running")

	if err := r.seed(ctx); err != nil {
		r.logger.Error().Err(err).Msg("initial container enumeration failed")
	}
	metrics.UpdateComponent("runtime", true, "connected")

	attempt := 0
	for {
		eventsCh, errCh := r.rt.Events(ctx)

		draining := true
		for draining {
			select {
			case <-ctx.Done():
				r.shutdown()
				return ctx.Err()
			case ev, ok := <-eventsCh:
				if !ok {
					draining = false
					break
				}
				attempt = 0
				r.handleEvent(ctx, ev)
			case err, ok := <-errCh:
				if ok && err != nil {
					r.logger.Warn().Err(err).Msg("runtime event stream broken, reconnecting")
				}
				draining = false
			}
		}

		metrics.RuntimeReconnectsTotal.Inc()
		metrics.UpdateComponent("runtime", false, "event stream disconnected, reconnecting")

		wait := fullJitterBackoff(attempt, reconnectBase, reconnectCap)
		attempt++
		select {
		case <-ctx.Done():
			r.shutdown()
			return ctx.Err()
		case <-time.After(wait):
		}

		if err := r.seed(ctx); err != nil {
			r.logger.Error().Err(err).Msg("re-enumeration after reconnect failed")
		}
		metrics.UpdateComponent("runtime", true, "reconnected")
		r.handleEvent(ctx, types.RuntimeEvent{Kind: types.RuntimeEventReconnect, Timestamp: time.Now()})
	}
}

func (r *Reconciler) seed(ctx context.Context) error {
	containers, err := r.rt.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range containers {
		r.observe(c)
	}
	return nil
}

func (r *Reconciler) observe(c types.Container) types.Role {
	role, err := classifier.Classify(&c, r.cfg.Classifier)
	if err != nil {
		r.logger.Warn().Str("container_id", c.ID).Err(err).Msg("malformed label, marking ignored")
		role = types.Role{Kind: types.RoleIgnored}
	}
	r.store.UpsertContainer(c, role)
	r.publish(events.EventContainerObserved, map[string]string{"container_id": c.ID, "name": c.Name, "role": role.Kind.String()})
	return role
}

// handleEvent implements spec §4.6's on-start / on-die-or-destroy / on-
// reconnect branches.
func (r *Reconciler) handleEvent(ctx context.Context, ev types.RuntimeEvent) {
	switch ev.Kind {
	case types.RuntimeEventStart:
		r.handleStart(ctx, ev.ContainerID)
	case types.RuntimeEventDie, types.RuntimeEventDestroy:
		r.handleTerminal(ctx, ev.ContainerID)
	case types.RuntimeEventReconnect:
		r.fullReconcile()
	}
}

func (r *Reconciler) handleStart(ctx context.Context, id string) {
	c, err := r.rt.Inspect(ctx, id)
	if err != nil {
		r.logger.Warn().Str("container_id", id).Err(err).Msg("inspect failed on start event")
		return
	}

	role := r.observe(c)
	switch role.Kind {
	case types.RoleWarp:
		for _, targetID := range r.store.TargetsBySelector(c.Name) {
			r.enqueueReconcile(targetID)
		}
	case types.RoleTarget:
		r.enqueueReconcile(id)
	}
}

func (r *Reconciler) handleTerminal(ctx context.Context, id string) {
	c, ok := r.store.Container(id)
	if !ok {
		return
	}
	role, _ := r.store.Role(id)

	switch role.Kind {
	case types.RoleTarget:
		r.removeAllInstalled(ctx, c)
		r.store.RemoveContainer(id)
		r.stopActor(id)
	case types.RoleWarp:
		targetIDs := r.store.TargetsBySelector(c.Name)
		r.store.RemoveContainer(id)
		for _, targetID := range targetIDs {
			r.enqueueReconcile(targetID)
		}
	default:
		r.store.RemoveContainer(id)
	}
}

// fullReconcile re-enqueues every known target, covering events missed
// during a disconnect (spec §4.6, §8 "Reconnect correctness").
func (r *Reconciler) fullReconcile() {
	for _, c := range r.store.AllContainers() {
		role, ok := r.store.Role(c.ID)
		if ok && role.Kind == types.RoleTarget {
			r.enqueueReconcile(c.ID)
		}
	}
}

// enqueueReconcile routes a reconcile request to target id's actor,
// starting one if this is the first request for it (spec §9, "per-target
// serialization without locks").
func (r *Reconciler) enqueueReconcile(id string) {
	a := r.actorFor(id)
	select {
	case a.inbox <- signal{}:
	default: // a reconcile is already pending for this target; coalesce
	}
}

func (r *Reconciler) actorFor(id string) *actor {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.actors[id]
	if ok {
		return a
	}
	a = &actor{inbox: make(chan signal, 1), quit: make(chan struct{})}
	r.actors[id] = a
	r.wg.Add(1)
	go r.runActor(id, a)
	return a
}

func (r *Reconciler) stopActor(id string) {
	r.mu.Lock()
	a, ok := r.actors[id]
	if ok {
		delete(r.actors, id)
	}
	r.mu.Unlock()
	if ok {
		close(a.quit)
	}
}

func (r *Reconciler) runActor(id string, a *actor) {
	defer r.wg.Done()
	for {
		select {
		case sig := <-a.inbox:
			if !sig.retry {
				a.routeAttempts = 0
				a.timeoutUsed = false
			}
			r.runOneReconcile(id, a)
		case <-a.quit:
			return
		case <-r.stopCh:
			return
		}
	}
}

func (r *Reconciler) runOneReconcile(id string, a *actor) {
	ctx := context.Background()
	timer := metrics.NewTimer()
	err := r.reconcileTarget(ctx, id)
	timer.ObserveDuration(metrics.ReconcileDuration)

	if err == nil {
		metrics.ReconcileCyclesTotal.WithLabelValues("ok").Inc()
		return
	}

	metrics.ReconcileCyclesTotal.WithLabelValues("error").Inc()

	var resolveErr *types.ResolveError
	if errors.As(err, &resolveErr) {
		r.logger.Error().Str("target_id", id).Err(err).Msg("reconcile aborted: ambiguous warp network, will retry on next relevant event")
		r.publish(events.EventReconcileFailed, map[string]string{"target_id": id, "reason": err.Error()})
		return
	}

	var routeErr *types.RouteError
	if errors.As(err, &routeErr) && routeErr.Fatal() {
		r.logger.Error().Str("target_id", id).Err(err).Msg("fatal route error: insufficient privileges")
		metrics.UpdateComponent("reconciler", false, "fatal route error: "+err.Error())
		if r.onFatal != nil {
			r.onFatal(err)
		}
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		if a.timeoutUsed {
			r.logger.Error().Str("target_id", id).Msg("reconcile timed out twice, giving up until next event")
			r.publish(events.EventReconcileFailed, map[string]string{"target_id": id, "reason": "timeout"})
			return
		}
		a.timeoutUsed = true
		r.logger.Warn().Str("target_id", id).Msg("reconcile job timed out, rescheduling once")
		r.scheduleRetry(a, 0)
		return
	}

	var anyRouteErr *types.RouteError
	if errors.As(err, &anyRouteErr) {
		metrics.RouteErrorsTotal.WithLabelValues(routeErrorKindLabel(anyRouteErr.Kind)).Inc()
	}

	if a.routeAttempts >= maxRouteRetries {
		r.logger.Error().Str("target_id", id).Err(err).Int("attempts", a.routeAttempts).Msg("reconcile failed repeatedly, leaving diagnostic and continuing")
		r.publish(events.EventReconcileFailed, map[string]string{"target_id": id, "reason": err.Error()})
		return
	}

	a.routeAttempts++
	r.logger.Warn().Str("target_id", id).Err(err).Int("attempt", a.routeAttempts).Msg("reconcile failed, scheduling retry")
	r.scheduleRetry(a, a.routeAttempts)
}

func (r *Reconciler) scheduleRetry(a *actor, attempt int) {
	wait := fullJitterBackoff(attempt, routeRetryBase, routeRetryCap)
	time.AfterFunc(wait, func() {
		select {
		case a.inbox <- signal{retry: true}:
		default:
		}
	})
}

// reconcileTarget implements spec §4.6's "Target reconcile" algorithm.
func (r *Reconciler) reconcileTarget(ctx context.Context, targetID string) error {
	target, ok := r.store.Container(targetID)
	if !ok {
		return nil
	}
	role, ok := r.store.Role(targetID)
	if !ok || role.Kind != types.RoleTarget {
		return nil
	}

	r.publish(events.EventReconcileStarted, map[string]string{"target_id": targetID})

	warpID, ok := r.store.WarpIDByName(role.WarpSelector)
	if !ok {
		r.logger.Info().Str("target_id", targetID).Str("warp_selector", role.WarpSelector).Msg("target awaiting warp")
		return r.applyDiff(ctx, target, nil, "")
	}

	warp, ok := r.store.Container(warpID)
	if !ok {
		return r.applyDiff(ctx, target, nil, "")
	}
	warpRole, _ := r.store.Role(warpID)

	desired, err := resolver.Resolve(&target, &warp, warpRole, r.cfg.Rules)
	if err != nil {
		return err
	}

	return r.applyDiff(ctx, target, desired, warpID)
}

// applyDiff enters the target's namespace once and installs/removes the
// delta between desired and the Store's InstalledRouteRecords, per spec
// §4.6 step 4. desired == nil means "no warp", i.e. everything installed
// must be removed.
func (r *Reconciler) applyDiff(ctx context.Context, target types.Container, desired []types.RouteSpec, warpID string) error {
	installed := r.store.InstalledRoutes(target.ID)

	desiredByKey := make(map[types.RouteKey]types.RouteSpec, len(desired))
	for _, spec := range desired {
		desiredByKey[spec.Key()] = spec
	}
	installedByKey := make(map[types.RouteKey]types.InstalledRouteRecord, len(installed))
	for _, rec := range installed {
		installedByKey[rec.Spec.Key()] = rec
	}

	var toInstall []types.RouteSpec
	var toRemove []types.RouteSpec
	for key, spec := range desiredByKey {
		rec, present := installedByKey[key]
		if !present {
			toInstall = append(toInstall, spec)
			continue
		}
		if rec.WarpID != warpID {
			toRemove = append(toRemove, rec.Spec)
			toInstall = append(toInstall, spec)
		}
	}
	for key, rec := range installedByKey {
		if _, present := desiredByKey[key]; !present {
			toRemove = append(toRemove, rec.Spec)
		}
	}

	if len(toInstall) == 0 && len(toRemove) == 0 {
		r.publish(events.EventReconcileSucceeded, map[string]string{"target_id": target.ID, "diff": "none"})
		return nil
	}

	jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
	defer cancel()

	err := r.pool.Submit(jobCtx, func() error {
		handle, err := r.opener.Open(target.ID, target.Namespace.PID)
		if err != nil {
			var nsErr *types.NamespaceError
			if errors.As(err, &nsErr) && nsErr.Gone {
				return nil
			}
			return err
		}
		defer handle.Close()

		for _, spec := range toRemove {
			outcome, err := r.prog.Remove(handle, spec)
			if err != nil {
				var nsErr *types.NamespaceError
				if errors.As(err, &nsErr) && nsErr.Gone {
					continue
				}
				return err
			}
			r.store.DropRoute(target.ID, spec.Key())
			if outcome == routes.Removed {
				metrics.RoutesRemovedTotal.Inc()
				r.publish(events.EventRouteRemoved, map[string]string{"target_id": target.ID, "destination": spec.Destination.String(), "next_hop": spec.NextHop.String()})
			}
		}

		for _, spec := range toInstall {
			outcome, err := r.prog.Install(handle, spec)
			if err != nil {
				return err
			}
			r.store.RecordRoute(target.ID, types.InstalledRouteRecord{
				TargetID:    target.ID,
				Spec:        spec,
				WarpID:      warpID,
				InstalledAt: time.Now(),
			})
			switch outcome {
			case routes.Added:
				metrics.RoutesInstalledTotal.Inc()
				r.publish(events.EventRouteInstalled, map[string]string{"target_id": target.ID, "destination": spec.Destination.String(), "next_hop": spec.NextHop.String()})
			case routes.Replaced:
				metrics.RoutesReplacedTotal.Inc()
				r.publish(events.EventRouteReplaced, map[string]string{"target_id": target.ID, "destination": spec.Destination.String(), "next_hop": spec.NextHop.String()})
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.publish(events.EventReconcileSucceeded, map[string]string{"target_id": target.ID})
	return nil
}

// removeAllInstalled best-effort removes every InstalledRouteRecord for a
// target whose container is going away (die/destroy), tolerating a
// namespace that has already vanished (spec §7, "Namespace: container
// vanished -> treated as success during removal").
func (r *Reconciler) removeAllInstalled(ctx context.Context, target types.Container) {
	installed := r.store.InstalledRoutes(target.ID)
	if len(installed) == 0 {
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
	defer cancel()

	err := r.pool.Submit(jobCtx, func() error {
		handle, err := r.opener.Open(target.ID, target.Namespace.PID)
		if err != nil {
			var nsErr *types.NamespaceError
			if errors.As(err, &nsErr) && nsErr.Gone {
				return nil
			}
			return err
		}
		defer handle.Close()

		for _, rec := range installed {
			if _, err := r.prog.Remove(handle, rec.Spec); err != nil {
				var nsErr *types.NamespaceError
				if errors.As(err, &nsErr) && nsErr.Gone {
					continue
				}
				r.logger.Warn().Str("target_id", target.ID).Err(err).Msg("best-effort route removal failed")
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Warn().Str("target_id", target.ID).Err(err).Msg("best-effort route removal job failed")
	}
	r.store.ClearRoutes(target.ID)
}

func (r *Reconciler) publish(kind events.EventType, meta map[string]string) {
	if r.broker == nil {
		return
	}
	r.broker.Publish(&events.Event{Type: kind, Metadata: meta})
}

// shutdown stops accepting new events, drains per-target actors with a
// deadline, then best-effort removes every still-installed route (spec §5).
func (r *Reconciler) shutdown() {
	close(r.stopCh)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(r.cfg.ShutdownDrainTimeout):
		r.logger.Warn().Msg("shutdown drain deadline exceeded, proceeding to best-effort route removal")
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.ShutdownDrainTimeout)
	defer cancel()

	for _, c := range r.store.AllContainers() {
		role, ok := r.store.Role(c.ID)
		if ok && role.Kind == types.RoleTarget {
			r.removeAllInstalled(ctx, c)
		}
	}
}
