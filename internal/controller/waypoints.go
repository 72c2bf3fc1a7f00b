package controller

import (
	"context"
	"math"
	"time"

	"launchpad/internal/domain/drone"
	"launchpad/internal/domain/mission"
	"launchpad/internal/logging"
)

// legMax and legMin bound the per-GoTo-call distance the effector accepts;
// see execGoto for the segmentation this implies.
const (
	legMax     = 500
	legMin     = 20
	legStep480 = 480
)

// execWaypoint runs the waypoint at idx in m, publishing the started/arrived
// pair around it. idx past the end of the mission surrenders it as
// completed rather than erroring: a mission with an exhausted waypoint list
// is, by construction, done.
func (c *Controller) execWaypoint(ctx context.Context, d drone.State, m mission.State, idx int) {
	if idx >= len(m.Waypoints) {
		c.publish(ctx, drone.EmitMissionCompleted(d.ID, m.ID))
		return
	}

	wp := m.Waypoints[idx]
	c.publish(ctx, drone.EmitStartedToNextWaypoint(d.ID, m.ID, idx))

	var err error
	switch wp.Kind {
	case mission.Goto:
		c.observe("goto")
		err = c.execGoto(ctx, wp)
	case mission.Turn:
		c.observe("turn")
		err = c.execTurn(ctx, wp)
	case mission.Delay:
		c.observe("delay")
		err = c.execDelay(ctx, wp)
	}

	if err != nil {
		logging.L().Warn("controller: waypoint execution failed, surrendering mission",
			logging.String("drone", d.ID), logging.Int("waypoint", idx), logging.Error(err))
		c.sleep(ctx, c.ActionBackoff)
		if landErr := c.Effector.Land(ctx); landErr != nil {
			logging.L().Warn("controller: land after waypoint failure failed", logging.Error(landErr))
		}
		c.publish(ctx, drone.EmitMissionCompleted(d.ID, m.ID))
		return
	}

	c.publish(ctx, drone.EmitArrivedAtWaypoint(d.ID, m.ID, idx))
}

// execGoto segments a Goto waypoint's horizontal distance into legs the
// effector's [20, 500] cm contract accepts. Exactly one leg carries the
// altitude delta: the final one, chosen so no leg is shorter than legMin.
func (c *Controller) execGoto(ctx context.Context, wp mission.Waypoint) error {
	odom := c.Effector.Odometry()
	zDelta := int(wp.Height) - odom.Z

	d := int(math.Round(float64(wp.Distance) * 100))
	fives := d / legMax
	if fives < 0 {
		fives = 0
	}
	rest := d % legMax

	do480 := false
	if rest < legMin && fives > 0 {
		fives--
		do480 = true
		rest += legMin
	}

	restZ := 0
	if !do480 && fives == 0 {
		restZ = zDelta
	}
	if err := c.Effector.GoTo(ctx, rest, 0, restZ, 100); err != nil {
		return err
	}

	if do480 {
		z := 0
		if fives == 0 {
			z = zDelta
		}
		if err := c.Effector.GoTo(ctx, legStep480, 0, z, 100); err != nil {
			return err
		}
	}

	for i := 0; i < fives; i++ {
		z := 0
		if i == fives-1 {
			z = zDelta
		}
		if err := c.Effector.GoTo(ctx, legMax, 0, z, 100); err != nil {
			return err
		}
	}

	return nil
}

func (c *Controller) execTurn(ctx context.Context, wp mission.Waypoint) error {
	deg := int(wp.Deg)
	if deg > 0 {
		return c.Effector.CW(ctx, deg)
	}
	return c.Effector.CCW(ctx, -deg)
}

func (c *Controller) execDelay(ctx context.Context, wp mission.Waypoint) error {
	timer := time.NewTimer(time.Duration(wp.DurationMs) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
