package vixen

import "time"

const (
	// DefaultInterval is the time between poll requests.
	DefaultInterval = 2000 * time.Millisecond

	// DefaultParam is the query parameter carrying the callback reference or
	// signal payload.
	DefaultParam = "jsonp"
)

// callConfig holds the per-call settings of Init and Signal.
type callConfig struct {
	interval time.Duration
	param    string
}

// CallOption configures a single [Client.Init] or [Client.Signal] call.
//
// Invalid values never fail a call; they fall back to the defaults.
type CallOption func(*callConfig)

// WithInterval sets the time between poll requests.
//
// Non-positive durations fall back to [DefaultInterval]. Ignored by
// [Client.Signal].
//
// Example:
//
//	client.Init("updates.php", handle, vixen.WithInterval(500*time.Millisecond))
func WithInterval(d time.Duration) CallOption {
	return func(cfg *callConfig) {
		if d > 0 {
			cfg.interval = d
		}
	}
}

// WithParam sets the query parameter name. An empty name falls back to
// [DefaultParam].
//
// Example:
//
//	client.Signal("notify.php", payload, vixen.WithParam("url_param"))
func WithParam(name string) CallOption {
	return func(cfg *callConfig) {
		if name != "" {
			cfg.param = name
		}
	}
}

func applyCallOptions(opts []CallOption) callConfig {
	cfg := callConfig{
		interval: DefaultInterval,
		param:    DefaultParam,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
