package poller

import (
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/decodelifter/CorfuDB/internal/connectivity"
)

// Config holds the Poller's tunables. Unlike the Java original, which
// exposes these as setters that must be called before the first poll, this
// rewrite bakes them into an immutable value supplied to New - Go has no
// natural "construct then configure" idiom that is also safe for concurrent
// reads, and the setters were never required to change after construction
// in any caller this core specifies.
type Config struct {
	// FailureThreshold is the number of iterations executed per round.
	FailureThreshold int
	// InitPeriodDuration is the floor for the adaptive per-peer response
	// timeout, and its starting value.
	InitPeriodDuration time.Duration
	// MaxPeriodDuration is the ceiling for the adaptive per-peer response
	// timeout.
	MaxPeriodDuration time.Duration
	// PeriodDelta is the additive step the timeout moves by, in either
	// direction, each time it is retuned.
	PeriodDelta time.Duration
	// InitialPollInterval is the sleep between iterations within a round
	// when no failures were observed in the iteration just completed.
	InitialPollInterval time.Duration
	// Logger receives per-iteration/per-round progress and per-peer
	// failures. A nil Logger falls back to log.Root().
	Logger log.Logger
}

// DefaultConfig returns the Config the Java FailureDetector ships with.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    3,
		InitPeriodDuration:  2 * time.Second,
		MaxPeriodDuration:   5 * time.Second,
		PeriodDelta:         1 * time.Second,
		InitialPollInterval: 1 * time.Second,
	}
}

// Validate checks the configuration constraints. FailureThreshold < 1 is
// the only condition Poll itself re-checks at call time; the other two are
// checked once, here, at construction.
func (c Config) Validate() error {
	if c.FailureThreshold < 1 {
		return &connectivity.InvalidConfigurationError{Reason: "failureThreshold must be >= 1"}
	}
	if c.InitPeriodDuration > c.MaxPeriodDuration {
		return &connectivity.InvalidConfigurationError{Reason: "initPeriodDuration must be <= maxPeriodDuration"}
	}
	if c.PeriodDelta < 0 {
		return &connectivity.InvalidConfigurationError{Reason: "periodDelta must be >= 0"}
	}
	return nil
}
