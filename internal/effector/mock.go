package effector

import (
	"context"
	"sync"
)

// Mock is an in-memory Effector used in tests and on launchpads with no
// hardware attached. GoTo/CW/CCW/TakeOff/Land accumulate into a call log
// instead of driving anything physical.
type Mock struct {
	mu sync.Mutex

	connected bool
	pos       Position
	battery   int
	pending   *Telemetry

	Calls []string

	// FailNextConnect, if set, makes the next Connect call return err once
	// then clear itself; useful for exercising the controller's backoff
	// path.
	FailNextConnect error
	FailNextTakeOff error
	FailNextLand    error
	FailNextGoTo    error
}

// NewMock returns a Mock starting disconnected with a full battery.
func NewMock() *Mock {
	return &Mock{battery: 100}
}

func (m *Mock) Connect(ctx context.Context, ip, ssid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "connect:"+ip)
	if m.FailNextConnect != nil {
		err := m.FailNextConnect
		m.FailNextConnect = nil
		return err
	}
	m.connected = true
	return nil
}

func (m *Mock) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *Mock) TakeOff(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "take_off")
	if m.FailNextTakeOff != nil {
		err := m.FailNextTakeOff
		m.FailNextTakeOff = nil
		return err
	}
	return nil
}

func (m *Mock) Land(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "land")
	if m.FailNextLand != nil {
		err := m.FailNextLand
		m.FailNextLand = nil
		return err
	}
	return nil
}

func (m *Mock) GoTo(ctx context.Context, x, y, z, speed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "go_to")
	if m.FailNextGoTo != nil {
		err := m.FailNextGoTo
		m.FailNextGoTo = nil
		return err
	}
	m.pos.X += x
	m.pos.Y += y
	m.pos.Z += z
	return nil
}

func (m *Mock) CW(ctx context.Context, deg int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "cw")
	return nil
}

func (m *Mock) CCW(ctx context.Context, deg int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "ccw")
	return nil
}

func (m *Mock) Odometry() Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

// SetBattery lets tests drive the reported battery level.
func (m *Mock) SetBattery(level int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.battery = level
	frame := Telemetry{Battery: level, Odometry: m.pos}
	m.pending = &frame
}

func (m *Mock) TryRecvState() (Telemetry, bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return Telemetry{}, false, !m.connected
	}
	frame := *m.pending
	m.pending = nil
	return frame, true, false
}

func (m *Mock) EnableDrone(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "enable_drone")
	return nil
}
