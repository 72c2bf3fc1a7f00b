package effector

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMockConnectAndFlight(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	if m.IsConnected() {
		t.Fatalf("expected disconnected before Connect")
	}
	if err := m.Connect(ctx, "192.168.10.1", "TELLO-1"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !m.IsConnected() {
		t.Fatalf("expected connected after Connect")
	}

	if err := m.TakeOff(ctx); err != nil {
		t.Fatalf("TakeOff: %v", err)
	}
	if err := m.GoTo(ctx, 500, 0, 0, 100); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	if err := m.GoTo(ctx, 480, 0, 50, 100); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	got := m.Odometry()
	want := Position{X: 980, Y: 0, Z: 50}
	if got != want {
		t.Fatalf("Odometry = %+v, want %+v", got, want)
	}

	if err := m.Land(ctx); err != nil {
		t.Fatalf("Land: %v", err)
	}
}

func TestMockConnectFailureIsOneShot(t *testing.T) {
	m := NewMock()
	ctx := context.Background()
	boom := errors.New("boom")
	m.FailNextConnect = boom

	if err := m.Connect(ctx, "10.0.0.1", "TELLO-1"); !errors.Is(err, boom) {
		t.Fatalf("Connect error = %v, want %v", err, boom)
	}
	if m.IsConnected() {
		t.Fatalf("expected still disconnected after failed Connect")
	}

	if err := m.Connect(ctx, "10.0.0.1", "TELLO-1"); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	if !m.IsConnected() {
		t.Fatalf("expected connected after retry")
	}
}

func TestMockTryRecvStateDrainsOnce(t *testing.T) {
	m := NewMock()
	if _, ok, disconnected := m.TryRecvState(); ok || !disconnected {
		t.Fatalf("expected no frame and disconnected before Connect")
	}

	ctx := context.Background()
	if err := m.Connect(ctx, "10.0.0.1", "TELLO-1"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	m.SetBattery(77)

	frame, ok, disconnected := m.TryRecvState()
	if !ok || disconnected || frame.Battery != 77 {
		t.Fatalf("TryRecvState = %+v, %v, %v; want battery 77", frame, ok, disconnected)
	}

	if _, ok, _ := m.TryRecvState(); ok {
		t.Fatalf("expected frame to be drained after first read")
	}
}

func TestMockEnableDroneIsNoOpAndLogged(t *testing.T) {
	m := NewMock()
	if err := m.EnableDrone(context.Background()); err != nil {
		t.Fatalf("EnableDrone: %v", err)
	}
	if len(m.Calls) != 1 || m.Calls[0] != "enable_drone" {
		t.Fatalf("Calls = %v, want [enable_drone]", m.Calls)
	}
}

func TestWaitForSSIDFindsMatchCaseInsensitively(t *testing.T) {
	scanner := SSIDScannerFunc(func(ctx context.Context) ([]string, error) {
		return []string{"OtherNet", "Tello-ABCDEF"}, nil
	})
	if err := WaitForSSID(context.Background(), scanner, "tello-abcdef", 0, 0); err != nil {
		t.Fatalf("WaitForSSID: %v", err)
	}
}

func TestWaitForSSIDPropagatesScanError(t *testing.T) {
	boom := errors.New("no adapter")
	scanner := SSIDScannerFunc(func(ctx context.Context) ([]string, error) {
		return nil, boom
	})
	if err := WaitForSSID(context.Background(), scanner, "tello-abcdef", 0, 0); !errors.Is(err, boom) {
		t.Fatalf("WaitForSSID error = %v, want wrapping %v", err, boom)
	}
}

func TestWaitForSSIDTimesOutAfterAttempts(t *testing.T) {
	calls := 0
	scanner := SSIDScannerFunc(func(ctx context.Context) ([]string, error) {
		calls++
		return []string{"OtherNet"}, nil
	})
	err := WaitForSSID(context.Background(), scanner, "tello-abcdef", 2, time.Millisecond)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
}

func TestParseBatteryExtractsField(t *testing.T) {
	battery, ok := parseBattery("pitch:0;roll:0;yaw:0;bat:83;time:12;")
	if !ok || battery != 83 {
		t.Fatalf("parseBattery = %d, %v, want 83, true", battery, ok)
	}

	if _, ok := parseBattery("pitch:0;roll:0;"); ok {
		t.Fatalf("expected no battery field to report not-ok")
	}
}

func TestPulseServoRunsArmSequence(t *testing.T) {
	var widths []int
	driver := ServoDriverFunc(func(micros int) error {
		widths = append(widths, micros)
		return nil
	})

	steps := make([]servoStep, len(servoArmSequence))
	copy(steps, servoArmSequence)
	for i := range steps {
		steps[i].hold = time.Millisecond
	}
	if err := pulseServo(context.Background(), driver, steps); err != nil {
		t.Fatalf("pulseServo: %v", err)
	}
	want := []int{2000, 1700, 2000}
	if len(widths) != len(want) {
		t.Fatalf("widths = %v, want %v", widths, want)
	}
	for i := range want {
		if widths[i] != want[i] {
			t.Fatalf("widths = %v, want %v", widths, want)
		}
	}
}

func TestPulseServoNilDriverIsNoOp(t *testing.T) {
	if err := PulseServo(context.Background(), nil); err != nil {
		t.Fatalf("PulseServo(nil) = %v, want nil", err)
	}
}

func TestPulseServoPropagatesDriverError(t *testing.T) {
	boom := errors.New("pwm busy")
	driver := ServoDriverFunc(func(micros int) error { return boom })
	if err := PulseServo(context.Background(), driver); !errors.Is(err, boom) {
		t.Fatalf("PulseServo error = %v, want wrapping %v", err, boom)
	}
}
