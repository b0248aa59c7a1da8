package attempt

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/abhisek/quizdeck/internal/activity"
)

// Config holds the timing parameters of a session.
type Config struct {
	// Duration is the countdown budget, counted in whole seconds.
	Duration time.Duration

	// TickInterval is the wall-clock period of the internal ticker. Zero
	// disables the ticker; the owner must then call Tick itself.
	TickInterval time.Duration
}

// DefaultConfig returns a 300 second budget ticking once per second.
func DefaultConfig() Config {
	return Config{
		Duration:     300 * time.Second,
		TickInterval: time.Second,
	}
}

// ConfigFromEnv applies QUIZDECK_ATTEMPT_SECONDS over the defaults.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if v := os.Getenv("QUIZDECK_ATTEMPT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("QUIZDECK_ATTEMPT_SECONDS: want a positive integer, got %q", v)
		}
		cfg.Duration = time.Duration(n) * time.Second
	}
	return cfg, nil
}

// Option configures a Session.
type Option func(*options)

type options struct {
	cfg       Config
	clock     func() time.Time
	publisher activity.Publisher
}

// WithConfig replaces the whole timing configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithDuration sets the countdown budget.
func WithDuration(d time.Duration) Option {
	return func(o *options) { o.cfg.Duration = d }
}

// WithTickInterval sets how often the internal ticker fires. Zero means
// manual ticking.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) { o.cfg.TickInterval = d }
}

// WithClock overrides the time source used for SubmittedAt and events.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithPublisher routes lifecycle events to p.
func WithPublisher(p activity.Publisher) Option {
	return func(o *options) { o.publisher = p }
}
