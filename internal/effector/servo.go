package effector

import (
	"context"
	"fmt"
	"time"
)

// ServoDriver sets the pulse width of the 50 Hz PWM channel driving the
// launchpad's mounting servo. Like SSIDScanner this is a seam: PWM output is
// a platform/driver concern, so production builds wire a board-specific
// implementation at the composition root while tests use a scripted one.
type ServoDriver interface {
	SetPulseWidth(micros int) error
}

// ServoDriverFunc adapts a function to ServoDriver.
type ServoDriverFunc func(micros int) error

func (f ServoDriverFunc) SetPulseWidth(micros int) error { return f(micros) }

// servoStep is one stage of the arm sequence: hold a pulse width for a
// duration before moving on.
type servoStep struct {
	micros int
	hold   time.Duration
}

// servoArmSequence powers the drone: full deflection, back off, full
// deflection again.
var servoArmSequence = []servoStep{
	{micros: 2000, hold: 1500 * time.Millisecond},
	{micros: 1700, hold: 500 * time.Millisecond},
	{micros: 2000, hold: 500 * time.Millisecond},
}

// PulseServo runs the arm sequence on driver. A nil driver is a no-op so
// callers don't have to special-case launchpads without servo hardware.
func PulseServo(ctx context.Context, driver ServoDriver) error {
	return pulseServo(ctx, driver, servoArmSequence)
}

func pulseServo(ctx context.Context, driver ServoDriver, steps []servoStep) error {
	if driver == nil {
		return nil
	}
	for _, step := range steps {
		if err := driver.SetPulseWidth(step.micros); err != nil {
			return fmt.Errorf("effector: servo pulse %dus: %w", step.micros, err)
		}
		timer := time.NewTimer(step.hold)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return nil
}
