package chatstate

import (
	"os"
	"time"
)

// TestProfileEnv selects the shortened timeout profile when set to a
// non-empty value. It exists so automated test harnesses get bounded
// latency without exposing timeouts as a runtime parameter.
const TestProfileEnv = "CHATSTATE_TEST_PROFILE"

// StuckTimeouts holds the per-state thresholds after which the recovery
// monitor forces a transition out of a stuck state.
type StuckTimeouts struct {
	Initializing  time.Duration
	Connecting    time.Duration
	LoadingThread time.Duration
}

// Config controls how the SDK connects and how the coordinator recovers.
type Config struct {
	URL   string
	Token string // JWT for hello
	User  string

	// RESTBaseURL, when set, enables the Client.REST sub-client,
	// e.g. "http://localhost:8080/api".
	RESTBaseURL string

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration

	// AutoReconnect enables the reconnect loop after an unexpected
	// disconnect.
	AutoReconnect     bool
	ReconnectInterval time.Duration
	MaxReconnectDelay time.Duration
	MaxReconnectTries int // 0 means unlimited

	// Timeouts are the stuck-state recovery thresholds.
	Timeouts StuckTimeouts

	// CheckInterval is how often the recovery monitor inspects the current
	// state while it is stuck.
	CheckInterval time.Duration

	// InitGraceDelay is how long after the first OPEN observation the
	// initialization latch waits before setting, so the transport's own
	// async connect sequence is not raced.
	InitGraceDelay time.Duration

	// InitFallbackTimeout latches initialization unconditionally when the
	// transport never reaches OPEN.
	InitFallbackTimeout time.Duration
}

// DefaultConfig returns the runtime profile.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReconnectInterval: 2 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		Timeouts: StuckTimeouts{
			Initializing:  10 * time.Second,
			Connecting:    15 * time.Second,
			LoadingThread: 10 * time.Second,
		},
		CheckInterval:       time.Second,
		InitGraceDelay:      250 * time.Millisecond,
		InitFallbackTimeout: 10 * time.Second,
	}
}

// TestConfig returns the shortened profile used under automated test
// harnesses, bounding how long a stuck state can hold a test.
func TestConfig() Config {
	cfg := DefaultConfig()
	cfg.HandshakeTimeout = time.Second
	cfg.ReconnectInterval = 20 * time.Millisecond
	cfg.MaxReconnectDelay = 100 * time.Millisecond
	cfg.Timeouts = StuckTimeouts{
		Initializing:  100 * time.Millisecond,
		Connecting:    150 * time.Millisecond,
		LoadingThread: 100 * time.Millisecond,
	}
	cfg.CheckInterval = 10 * time.Millisecond
	cfg.InitGraceDelay = 10 * time.Millisecond
	cfg.InitFallbackTimeout = 250 * time.Millisecond
	return cfg
}

// ConfigFromEnv returns TestConfig when TestProfileEnv is set, otherwise
// DefaultConfig.
func ConfigFromEnv() Config {
	if os.Getenv(TestProfileEnv) != "" {
		return TestConfig()
	}
	return DefaultConfig()
}

// timeoutFor returns the stuck threshold for a state, or 0 when the state
// is not monitored.
func (t StuckTimeouts) timeoutFor(s ChatLoadingState) time.Duration {
	switch s {
	case StateInitializing:
		return t.Initializing
	case StateConnecting:
		return t.Connecting
	case StateLoadingThread:
		return t.LoadingThread
	default:
		return 0
	}
}
