package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultLaunchpadName is the compile-time launchpad identity the CLI boots with.
	DefaultLaunchpadName = "Launchpad-01"
	// DefaultEventLogURL is the base HTTP/WebSocket address of the event-log service.
	DefaultEventLogURL = "http://localhost:4454"

	// DefaultTwinDebounce is the per-twin executor debounce window.
	DefaultTwinDebounce = 90 * time.Millisecond
	// DefaultControllerDebounce coalesces composite AppState updates.
	DefaultControllerDebounce = 200 * time.Millisecond
	// DefaultTelemetryTick is the controller's periodic reconciliation cadence.
	DefaultTelemetryTick = time.Second
	// DefaultEnabledWindow bounds how long a servo activation is considered live.
	DefaultEnabledWindow = 15 * time.Second
	// DefaultEffectorBackoff is applied after a failed connect/take-off/land attempt.
	DefaultEffectorBackoff = 5 * time.Second
	// DefaultSubscribeBackoff is the delay before retrying a failed log subscribe.
	DefaultSubscribeBackoff = 100 * time.Millisecond
	// DefaultSSIDScanAttempts bounds the Wi-Fi association retry budget.
	DefaultSSIDScanAttempts = 30
	// DefaultSSIDScanInterval is the delay between Wi-Fi association attempts.
	DefaultSSIDScanInterval = time.Second

	// DefaultLogLevel controls verbosity for runtime logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "launchpad.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true

	// DefaultOpsAddr is the address the ops HTTP surface (livez/readyz/metrics) listens on.
	DefaultOpsAddr = ":8090"

	// DefaultEffectorMode selects the Effector implementation wired at startup.
	DefaultEffectorMode = "mock"
)

// Config captures all runtime tunables for the launchpad twin runtime.
type Config struct {
	LaunchpadName      string
	EventLogURL        string
	TwinDebounce       time.Duration
	ControllerDebounce time.Duration
	TelemetryTick      time.Duration
	EnabledWindow      time.Duration
	EffectorBackoff    time.Duration
	SubscribeBackoff   time.Duration
	SSIDScanAttempts   int
	SSIDScanInterval   time.Duration
	OpsAddr            string
	EffectorMode       string
	Logging            LoggingConfig
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads the runtime configuration from environment variables, applying sane
// defaults and returning descriptive errors for invalid overrides.
func Load() (*Config, error) {
	cfg := &Config{
		LaunchpadName:      getString("LAUNCHPAD_NAME", DefaultLaunchpadName),
		EventLogURL:        getString("LAUNCHPAD_EVENT_LOG_URL", DefaultEventLogURL),
		TwinDebounce:       DefaultTwinDebounce,
		ControllerDebounce: DefaultControllerDebounce,
		TelemetryTick:      DefaultTelemetryTick,
		EnabledWindow:      DefaultEnabledWindow,
		EffectorBackoff:    DefaultEffectorBackoff,
		SubscribeBackoff:   DefaultSubscribeBackoff,
		SSIDScanAttempts:   DefaultSSIDScanAttempts,
		SSIDScanInterval:   DefaultSSIDScanInterval,
		OpsAddr:            getString("LAUNCHPAD_OPS_ADDR", DefaultOpsAddr),
		EffectorMode:       strings.ToLower(getString("LAUNCHPAD_EFFECTOR_MODE", DefaultEffectorMode)),
		Logging: LoggingConfig{
			Level:      strings.TrimSpace(getString("LAUNCHPAD_LOG_LEVEL", DefaultLogLevel)),
			Path:       strings.TrimSpace(getString("LAUNCHPAD_LOG_PATH", DefaultLogPath)),
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
	}

	var problems []string

	if raw := strings.TrimSpace(os.Getenv("LAUNCHPAD_TWIN_DEBOUNCE")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("LAUNCHPAD_TWIN_DEBOUNCE must be a positive duration, got %q", raw))
		} else {
			cfg.TwinDebounce = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LAUNCHPAD_CONTROLLER_DEBOUNCE")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("LAUNCHPAD_CONTROLLER_DEBOUNCE must be a positive duration, got %q", raw))
		} else {
			cfg.ControllerDebounce = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LAUNCHPAD_TELEMETRY_TICK")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("LAUNCHPAD_TELEMETRY_TICK must be a positive duration, got %q", raw))
		} else {
			cfg.TelemetryTick = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LAUNCHPAD_ENABLED_WINDOW")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("LAUNCHPAD_ENABLED_WINDOW must be a positive duration, got %q", raw))
		} else {
			cfg.EnabledWindow = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LAUNCHPAD_EFFECTOR_BACKOFF")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("LAUNCHPAD_EFFECTOR_BACKOFF must be a positive duration, got %q", raw))
		} else {
			cfg.EffectorBackoff = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LAUNCHPAD_SUBSCRIBE_BACKOFF")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("LAUNCHPAD_SUBSCRIBE_BACKOFF must be a positive duration, got %q", raw))
		} else {
			cfg.SubscribeBackoff = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LAUNCHPAD_SSID_SCAN_ATTEMPTS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("LAUNCHPAD_SSID_SCAN_ATTEMPTS must be a positive integer, got %q", raw))
		} else {
			cfg.SSIDScanAttempts = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LAUNCHPAD_SSID_SCAN_INTERVAL")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("LAUNCHPAD_SSID_SCAN_INTERVAL must be a positive duration, got %q", raw))
		} else {
			cfg.SSIDScanInterval = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LAUNCHPAD_LOG_MAX_SIZE_MB")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("LAUNCHPAD_LOG_MAX_SIZE_MB must be a positive integer, got %q", raw))
		} else {
			cfg.Logging.MaxSizeMB = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LAUNCHPAD_LOG_MAX_BACKUPS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("LAUNCHPAD_LOG_MAX_BACKUPS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxBackups = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LAUNCHPAD_LOG_MAX_AGE_DAYS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("LAUNCHPAD_LOG_MAX_AGE_DAYS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxAgeDays = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("LAUNCHPAD_LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("LAUNCHPAD_LOG_COMPRESS must be a boolean value, got %q", raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	switch cfg.EffectorMode {
	case "mock", "tello":
	default:
		problems = append(problems, fmt.Sprintf("LAUNCHPAD_EFFECTOR_MODE must be %q or %q, got %q", "mock", "tello", cfg.EffectorMode))
	}

	if len(problems) > 0 {
		return nil, errors.New(strings.Join(problems, "; "))
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
