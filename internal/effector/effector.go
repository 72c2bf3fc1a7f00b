// Package effector is the thin facade the controller drives the physical
// drone and its mounting hardware through. Two implementations are
// provided: Mock, for tests and any launchpad without hardware attached,
// and Tello, which speaks the Tello UDP text command protocol over a real
// socket.
package effector

import "context"

// Position is odometry in centimeters, drone-relative.
type Position struct {
	X, Y, Z int
}

// Telemetry is a drained telemetry frame.
type Telemetry struct {
	Battery  int
	Odometry Position
}

// Effector is the contract the controller consumes. Every method may block
// briefly (network I/O) but must respect ctx cancellation.
type Effector interface {
	// Connect associates with the drone's access point (ssid) where the
	// implementation handles Wi-Fi at all, then dials ip. Idempotent:
	// calling it again while already connected is a no-op success.
	Connect(ctx context.Context, ip, ssid string) error
	// IsConnected reports whether Connect has succeeded and no
	// disconnection has since been observed.
	IsConnected() bool
	// TakeOff and Land command the drone's flight state directly.
	TakeOff(ctx context.Context) error
	Land(ctx context.Context) error
	// GoTo moves to a relative offset in centimeters, each axis in
	// [-500, 500], at speed cm/s.
	GoTo(ctx context.Context, x, y, z, speed int) error
	// CW and CCW rotate in place, deg in [1, 3600].
	CW(ctx context.Context, deg int) error
	CCW(ctx context.Context, deg int) error
	// Odometry returns the drone's last known relative position.
	Odometry() Position
	// TryRecvState non-blockingly drains the most recent telemetry
	// frame. ok is false if no frame has arrived since the last call;
	// disconnected is true if the link is known to be down.
	TryRecvState() (state Telemetry, ok bool, disconnected bool)
	// EnableDrone pulses the mounting servo through its arm sequence.
	// A no-op on Mock.
	EnableDrone(ctx context.Context) error
}
