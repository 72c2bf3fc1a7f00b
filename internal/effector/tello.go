package effector

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"launchpad/internal/logging"
)

const (
	telloCommandPort = 8889
	telloStatePort   = 8890
	telloReadTimeout = 7 * time.Second
)

// Tello drives a real drone over the Tello UDP text command protocol: short
// ASCII commands sent to port 8889, each answered with "ok" or an error
// string, plus a separate unsolicited state stream on port 8890.
type Tello struct {
	Scanner SSIDScanner

	// Servo drives the mounting servo's PWM channel. Nil when the
	// launchpad has no servo hardware; EnableDrone is then a no-op.
	Servo ServoDriver

	// SSIDScanAttempts and SSIDScanInterval tune WaitForSSID's retry budget.
	// Zero values fall back to DefaultSSIDScanAttempts/DefaultSSIDScanInterval.
	SSIDScanAttempts int
	SSIDScanInterval time.Duration

	mu           sync.Mutex
	conn         *net.UDPConn
	stateConn    *net.UDPConn
	connected    bool
	disconnected bool

	stateMu sync.Mutex
	pos     Position
	latest  *Telemetry
}

// NewTello returns a Tello effector. scanner may be nil, in which case SSID
// association is skipped and Connect dials ip directly.
func NewTello(scanner SSIDScanner) *Tello {
	return &Tello{Scanner: scanner}
}

func (t *Tello) Connect(ctx context.Context, ip, ssid string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connected {
		return nil
	}

	if t.Scanner != nil && ssid != "" {
		if err := WaitForSSID(ctx, t.Scanner, ssid, t.SSIDScanAttempts, t.SSIDScanInterval); err != nil {
			return fmt.Errorf("tello: wifi association: %w", err)
		}
	}

	addr := &net.UDPAddr{IP: net.ParseIP(ip), Port: telloCommandPort}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("tello: dial command port: %w", err)
	}

	stateConn, err := net.ListenUDP("udp", &net.UDPAddr{Port: telloStatePort})
	if err != nil {
		conn.Close()
		return fmt.Errorf("tello: listen state port: %w", err)
	}

	t.conn = conn
	t.stateConn = stateConn
	go t.readStateLoop(stateConn)

	if _, err := t.send(ctx, "command"); err != nil {
		conn.Close()
		stateConn.Close()
		t.conn = nil
		t.stateConn = nil
		return fmt.Errorf("tello: enter sdk mode: %w", err)
	}

	t.connected = true
	t.disconnected = false
	return nil
}

func (t *Tello) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected && !t.disconnected
}

func (t *Tello) TakeOff(ctx context.Context) error {
	_, err := t.sendLocked(ctx, "takeoff")
	return err
}

func (t *Tello) Land(ctx context.Context) error {
	_, err := t.sendLocked(ctx, "land")
	return err
}

func (t *Tello) GoTo(ctx context.Context, x, y, z, speed int) error {
	cmd := fmt.Sprintf("go %d %d %d %d", x, y, z, speed)
	if _, err := t.sendLocked(ctx, cmd); err != nil {
		return err
	}
	t.stateMu.Lock()
	t.pos.X += x
	t.pos.Y += y
	t.pos.Z += z
	t.stateMu.Unlock()
	return nil
}

func (t *Tello) CW(ctx context.Context, deg int) error {
	_, err := t.sendLocked(ctx, fmt.Sprintf("cw %d", deg))
	return err
}

func (t *Tello) CCW(ctx context.Context, deg int) error {
	_, err := t.sendLocked(ctx, fmt.Sprintf("ccw %d", deg))
	return err
}

func (t *Tello) Odometry() Position {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.pos
}

func (t *Tello) TryRecvState() (Telemetry, bool, bool) {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	t.mu.Lock()
	disconnected := t.disconnected
	t.mu.Unlock()
	if t.latest == nil {
		return Telemetry{}, false, disconnected
	}
	frame := *t.latest
	t.latest = nil
	return frame, true, disconnected
}

// EnableDrone pulses the mounting servo through its arm sequence. A no-op
// when no servo driver is configured.
func (t *Tello) EnableDrone(ctx context.Context) error {
	return PulseServo(ctx, t.Servo)
}

func (t *Tello) sendLocked(ctx context.Context, cmd string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return "", fmt.Errorf("tello: not connected")
	}
	return t.send(ctx, cmd)
}

// send writes cmd and blocks for its response. Caller must hold t.mu.
func (t *Tello) send(ctx context.Context, cmd string) (string, error) {
	if deadline, ok := ctx.Deadline(); ok {
		t.conn.SetDeadline(deadline)
	} else {
		t.conn.SetDeadline(time.Now().Add(telloReadTimeout))
	}

	if _, err := t.conn.Write([]byte(cmd)); err != nil {
		return "", fmt.Errorf("tello: send %q: %w", cmd, err)
	}

	buf := make([]byte, 256)
	n, err := t.conn.Read(buf)
	if err != nil {
		t.disconnected = true
		return "", fmt.Errorf("tello: response to %q: %w", cmd, err)
	}

	resp := strings.TrimSpace(string(buf[:n]))
	if strings.EqualFold(resp, "error") || strings.HasPrefix(strings.ToLower(resp), "error") {
		return resp, fmt.Errorf("tello: %q rejected: %s", cmd, resp)
	}
	return resp, nil
}

// readStateLoop parses the unsolicited "key:val;key:val;..." telemetry
// stream and stashes the most recent battery reading.
func (t *Tello) readStateLoop(conn *net.UDPConn) {
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			t.mu.Lock()
			t.disconnected = true
			t.mu.Unlock()
			return
		}
		battery, ok := parseBattery(string(buf[:n]))
		if !ok {
			continue
		}
		t.stateMu.Lock()
		frame := Telemetry{Battery: battery, Odometry: t.pos}
		t.latest = &frame
		t.stateMu.Unlock()
	}
}

func parseBattery(frame string) (int, bool) {
	for _, field := range strings.Split(frame, ";") {
		k, v, found := strings.Cut(field, ":")
		if !found || k != "bat" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			logging.L().Warn("tello: malformed battery field", logging.String("field", field))
			return 0, false
		}
		return n, true
	}
	return 0, false
}
