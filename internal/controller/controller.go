// Package controller implements the composite state machine that drives a
// single launchpad's attached drone through a mission: subscribing to the
// launchpad, its current mission and its attached drone, reconciling
// telemetry on a tick, and dispatching effector commands from a debounced
// decision table.
package controller

import (
	"context"
	"sync"
	"time"

	"launchpad/internal/domain/drone"
	"launchpad/internal/domain/launchpad"
	"launchpad/internal/domain/mission"
	"launchpad/internal/effector"
	"launchpad/internal/eventlog"
	"launchpad/internal/logging"
	"launchpad/internal/resolve"
	"launchpad/internal/streams"
	"launchpad/internal/twin"
	"launchpad/internal/twinexec"
)

// defaultEnabledWindow is how long after powering the drone's mounting servo
// is_enabled() reports true, debouncing repeat activations, absent an
// override on Controller.
const defaultEnabledWindow = 15 * time.Second

// defaultActionBackoff is the wait after a failed connect/take-off/land
// before the handler reconsiders on the next debounced AppState.
const defaultActionBackoff = 5 * time.Second

// defaultControllerDebounce coalesces composite AppState updates absent an
// override on Controller.
const defaultControllerDebounce = 200 * time.Millisecond

// defaultTelemetryTick is the periodic reconciliation cadence absent an
// override on Controller.
const defaultTelemetryTick = time.Second

// reconcileThreshold is the minimum battery delta (percentage points)
// between the twin's last known value and a fresh telemetry read that
// triggers a DroneStatsUpdated publish.
const reconcileThreshold = 5

// Metrics receives a label for every action the handler dispatches
// ("enable", "connect", "take_off", "goto", "turn", "delay",
// "mission_complete", "mission_activated") plus reconciled battery
// readings. A nil Metrics on Controller disables reporting.
type Metrics interface {
	ObserveAction(action string)
	ObserveBattery(droneID string, percent int)
}

// Log is the subset of the event-log client the controller depends on:
// twinexec.Log to run its twin subscriptions plus Publish to emit domain
// events.
type Log interface {
	twinexec.Log
	Publish(ctx context.Context, request eventlog.PublishRequest) (eventlog.PublishResponse, error)
}

// AppState is the controller's composite view: the launchpad is always
// present once the stream has emitted once; Drone and Mission start nil and,
// once populated by their respective resolve.Relation, are never reset back
// to nil (a momentarily-absent parent pointer leaves the prior child in
// place rather than tearing the subscription down).
type AppState struct {
	Launchpad launchpad.State
	Drone     *drone.State
	Mission   *mission.State
}

// Controller owns the drone connection exclusively; no other task may drive
// the Effector.
type Controller struct {
	Name     string
	Log      Log
	Effector effector.Effector
	Options  twinexec.Options

	// ActionBackoff is the wait after a failed connect/take-off/land or
	// waypoint execution before the handler reconsiders. Defaults to 5s;
	// tests override it to avoid real sleeps.
	ActionBackoff time.Duration

	// ControllerDebounce coalesces composite AppState updates before handle
	// runs. Zero uses defaultControllerDebounce.
	ControllerDebounce time.Duration

	// TelemetryTick is the reconciliation ticker period. Zero uses
	// defaultTelemetryTick.
	TelemetryTick time.Duration

	// EnabledWindow bounds how long after activation is_enabled() reports
	// true. Zero uses defaultEnabledWindow.
	EnabledWindow time.Duration

	// Metrics, if non-nil, is notified of every dispatched action.
	Metrics Metrics

	enabledAt map[string]time.Time
	now       func() time.Time

	statusMu  sync.Mutex
	startedAt time.Time
	attached  bool
	connected bool
	runErr    error
}

// Uptime reports how long Run has been executing. Zero before the first
// call to Run.
func (c *Controller) Uptime() time.Duration {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	if c.startedAt.IsZero() {
		return 0
	}
	return time.Since(c.startedAt)
}

// DroneConnected reports the most recently handled drone attachment and the
// drone twin's connected flag, for the ops readiness surface.
func (c *Controller) DroneConnected() (connected bool, attached bool) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.connected, c.attached
}

// StartupError reports a non-graceful termination of the last Run call
// (anything other than context cancellation), for the ops readiness
// surface.
func (c *Controller) StartupError() error {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.runErr
}

func (c *Controller) setDroneStatus(connected, attached bool) {
	c.statusMu.Lock()
	c.connected, c.attached = connected, attached
	c.statusMu.Unlock()
}

func (c *Controller) observe(action string) {
	if c.Metrics != nil {
		c.Metrics.ObserveAction(action)
	}
}

func (c *Controller) observeBattery(droneID string, percent int) {
	if c.Metrics != nil {
		c.Metrics.ObserveBattery(droneID, percent)
	}
}

// New builds a Controller for the launchpad identified by name.
func New(name string, log Log, eff effector.Effector) *Controller {
	return &Controller{
		Name:          name,
		Log:           log,
		Effector:      eff,
		Options:       twinexec.DefaultOptions(),
		ActionBackoff: defaultActionBackoff,
		enabledAt:     make(map[string]time.Time),
		now:           time.Now,
	}
}

func selectMission(s launchpad.State) (twin.Twin[mission.State], bool) {
	if !s.CurrentMission.Valid {
		return nil, false
	}
	return mission.Twin{MissionID: s.CurrentMission.Value}, true
}

func selectDrone(s launchpad.State) (twin.Twin[drone.State], bool) {
	if !s.AttachedDrone.Valid {
		return nil, false
	}
	return drone.Twin{DroneID: s.AttachedDrone.Value}, true
}

// Run drives the controller loop until ctx is cancelled or one of the three
// core subscriptions ends unexpectedly. Dropping ctx cascades cancellation
// to every executor task it started.
func (c *Controller) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.statusMu.Lock()
	c.startedAt = c.now()
	c.statusMu.Unlock()
	defer func() {
		c.statusMu.Lock()
		if ctx.Err() == nil {
			c.runErr = err
		} else {
			c.runErr = nil
		}
		c.statusMu.Unlock()
	}()

	// Bootstrap this launchpad's identity into the log before consuming any
	// projections; a fresh log has no other producer for it.
	c.publish(ctx, launchpad.EmitRegistered(c.Name))

	lpTwin := launchpad.Twin{LaunchpadName: c.Name}

	lpStream := twinexec.Run(ctx, c.Log, lpTwin, c.Options)
	defer lpStream.Close()

	missionStream := resolve.Relation[launchpad.State, mission.State](ctx, c.Log, lpTwin, c.Options, selectMission)
	defer missionStream.Close()

	droneStream := resolve.Relation[launchpad.State, drone.State](ctx, c.Log, lpTwin, c.Options, selectDrone)
	defer droneStream.Close()

	telemetryTick := c.TelemetryTick
	if telemetryTick <= 0 {
		telemetryTick = defaultTelemetryTick
	}
	ticker := time.NewTicker(telemetryTick)
	defer ticker.Stop()

	controllerDebounce := c.ControllerDebounce
	if controllerDebounce <= 0 {
		controllerDebounce = defaultControllerDebounce
	}
	raw := make(chan AppState, 3)
	rawSeq := streams.Of[AppState](raw, func() {})
	debounced := streams.Debounce(ctx, rawSeq, controllerDebounce)
	debCh := debounced.C

	var cached AppState
	haveLaunchpad := false

	pushState := func() {
		if !haveLaunchpad {
			return
		}
		select {
		case raw <- cached:
		default:
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case lp, ok := <-lpStream.C:
			if !ok {
				return errClosed("launchpad")
			}
			cached.Launchpad = lp
			haveLaunchpad = true
			pushState()

		case m, ok := <-missionStream.C:
			if !ok {
				return errClosed("mission")
			}
			next := m
			cached.Mission = &next
			pushState()

		case d, ok := <-droneStream.C:
			if !ok {
				return errClosed("drone")
			}
			next := d
			cached.Drone = &next
			pushState()

		case <-ticker.C:
			c.reconcileTelemetry(ctx, cached.Drone)

		case app, ok := <-debCh:
			if !ok {
				debCh = nil
				continue
			}
			c.handle(ctx, app)
		}
	}
}

type closedError string

func errClosed(source string) error { return closedError(source) }
func (e closedError) Error() string { return "controller: " + string(e) + " stream closed" }

func (c *Controller) isEnabled(droneID string) bool {
	window := c.EnabledWindow
	if window <= 0 {
		window = defaultEnabledWindow
	}
	at, ok := c.enabledAt[droneID]
	return ok && c.now().Sub(at) < window
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (c *Controller) publish(ctx context.Context, item eventlog.PublishItem) {
	if _, err := c.Log.Publish(ctx, eventlog.PublishRequest{Data: []eventlog.PublishItem{item}}); err != nil {
		logging.L().Warn("controller: publish failed", logging.Error(err))
	}
}

// handle runs the decision table against one composite state. It never
// overlaps with another invocation: the caller processes debounced AppState
// values serially off a single loop.
func (c *Controller) handle(ctx context.Context, app AppState) {
	if app.Drone == nil || app.Mission == nil {
		c.setDroneStatus(false, false)
		if len(app.Launchpad.MissionQueue) > 0 {
			c.observe("mission_activated")
			c.publish(ctx, launchpad.EmitMissionActivated(c.Name, app.Launchpad.MissionQueue[0]))
		}
		return
	}

	d := *app.Drone
	m := *app.Mission
	c.setDroneStatus(d.Connected, true)

	switch d.Kind {
	case drone.Undefined:
		logging.L().Debug("controller: drone undefined, no action", logging.String("drone", d.ID))

	case drone.Ready:
		switch {
		case !c.isEnabled(d.ID):
			c.handleEnable(ctx, d)
		case !d.Connected:
			c.handleConnect(ctx, d)
		default:
			c.handleTakeOff(ctx, d, m)
		}

	case drone.Launched:
		switch {
		case !d.TargetWaypointID.Valid && !d.Completed:
			c.execWaypoint(ctx, d, m, d.AtWaypointID+1)
		case d.Completed:
			c.handleMissionComplete(ctx, d, m)
		default:
			logging.L().Debug("controller: waiting for waypoint to finish",
				logging.String("drone", d.ID), logging.Int("waypoint", d.TargetWaypointID.Value))
		}

	case drone.Used:
		// No action: the drone is idle until re-mounted and reactivated.
	}
}

func (c *Controller) handleEnable(ctx context.Context, d drone.State) {
	if err := c.Effector.EnableDrone(ctx); err != nil {
		logging.L().Warn("controller: enable drone failed", logging.String("drone", d.ID), logging.Error(err))
		return
	}
	c.enabledAt[d.ID] = c.now()
	c.observe("enable")
	c.publish(ctx, launchpad.EmitDroneActivated(c.Name, d.ID))
}

func (c *Controller) handleConnect(ctx context.Context, d drone.State) {
	if err := c.Effector.Connect(ctx, d.IP, d.SSID); err != nil {
		logging.L().Warn("controller: connect failed, backing off", logging.String("drone", d.ID), logging.Error(err))
		c.sleep(ctx, c.ActionBackoff)
		return
	}
	c.observe("connect")
	c.publish(ctx, drone.EmitConnected(d.ID))
}

func (c *Controller) handleTakeOff(ctx context.Context, d drone.State, m mission.State) {
	if err := c.Effector.TakeOff(ctx); err != nil {
		logging.L().Warn("controller: take off failed, backing off", logging.String("drone", d.ID), logging.Error(err))
		c.sleep(ctx, c.ActionBackoff)
		return
	}
	c.observe("take_off")
	c.publish(ctx, drone.EmitLaunched(d.ID, m.ID))
}

func (c *Controller) handleMissionComplete(ctx context.Context, d drone.State, m mission.State) {
	if err := c.Effector.Land(ctx); err != nil {
		logging.L().Warn("controller: land failed", logging.String("drone", d.ID), logging.Error(err))
	}
	pos := c.Effector.Odometry()
	c.observe("mission_complete")
	c.publish(ctx, drone.EmitLanded(d.ID, drone.Position{X: pos.X, Y: pos.Y, Z: pos.Z}))
	c.publish(ctx, drone.EmitMissionCompleted(d.ID, m.ID))
}

// reconcileTelemetry drains the latest effector telemetry frame and
// publishes DroneStatsUpdated when the live battery has drifted from the
// twin's last known value by at least reconcileThreshold points.
func (c *Controller) reconcileTelemetry(ctx context.Context, d *drone.State) {
	if d == nil {
		return
	}
	telemetry, ok, _ := c.Effector.TryRecvState()
	if !ok {
		return
	}
	c.observeBattery(d.ID, telemetry.Battery)
	delta := telemetry.Battery - d.Battery
	if delta < 0 {
		delta = -delta
	}
	if delta >= reconcileThreshold {
		c.publish(ctx, drone.EmitStatsUpdated(d.ID, telemetry.Battery))
	}
}
