package effector

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SSIDScanner lists the Wi-Fi networks currently visible to the host. It
// exists as a seam: associating with the drone's access point is an OS/driver
// concern no pack dependency covers, so production builds wire a platform
// specific implementation while tests and Mock use a scripted one.
type SSIDScanner interface {
	Scan(ctx context.Context) ([]string, error)
}

// SSIDScannerFunc adapts a function to SSIDScanner.
type SSIDScannerFunc func(ctx context.Context) ([]string, error)

func (f SSIDScannerFunc) Scan(ctx context.Context) ([]string, error) { return f(ctx) }

// NoAdapterScanner is the SSIDScanner for hosts without a wireless adapter:
// every scan errors. Wire a real implementation at the composition root on
// platforms where one is available, or pass a nil scanner to skip
// association entirely.
var NoAdapterScanner SSIDScanner = SSIDScannerFunc(func(ctx context.Context) ([]string, error) {
	return nil, fmt.Errorf("effector: no wifi adapter configured")
})

// DefaultSSIDScanAttempts and DefaultSSIDScanInterval are WaitForSSID's
// retry budget absent an override.
const (
	DefaultSSIDScanAttempts = 30
	DefaultSSIDScanInterval = time.Second
)

// WaitForSSID polls scanner, interval apart, until ssid (compared
// case-insensitively) appears in range or attempts is exhausted.
func WaitForSSID(ctx context.Context, scanner SSIDScanner, ssid string, attempts int, interval time.Duration) error {
	if attempts <= 0 {
		attempts = DefaultSSIDScanAttempts
	}
	if interval <= 0 {
		interval = DefaultSSIDScanInterval
	}
	for attempt := 0; ; attempt++ {
		seen, err := scanner.Scan(ctx)
		if err != nil {
			return fmt.Errorf("scan for ssid %q: %w", ssid, err)
		}
		for _, s := range seen {
			if strings.EqualFold(s, ssid) {
				return nil
			}
		}
		if attempt == attempts {
			return fmt.Errorf("timed out waiting for ssid %q", ssid)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
