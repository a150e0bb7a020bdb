package config

import (
	"log/slog"

	"github.com/jpalmerr/vixen"
)

// BuildTransport creates the HTTP transport described by cfg.
func BuildTransport(cfg *Config, logger *slog.Logger) (*vixen.HTTPTransport, error) {
	return vixen.NewHTTPTransport(vixen.HTTPTransportConfig{
		Timeout: cfg.RequestTimeout.Duration(),
		Headers: cfg.Headers,
		HTTP2:   cfg.HTTP2,
		Logger:  logger,
	})
}

// ClientOptions converts parsed configuration into SDK client options.
//
// The transport is passed in so the caller decides its lifetime; the client
// built from these options will not close it.
func ClientOptions(cfg *Config, t vixen.Transport, logger *slog.Logger) []vixen.Option {
	opts := []vixen.Option{
		vixen.WithTransport(t),
		vixen.WithLogger(logger),
	}

	if cfg.Namespace != "" {
		opts = append(opts, vixen.WithNamespace(cfg.Namespace))
	}
	if cfg.IDPrefix != "" {
		opts = append(opts, vixen.WithIDPrefix(cfg.IDPrefix))
	}
	if cfg.EscapePayloads {
		opts = append(opts, vixen.WithPayloadEscaping())
	}

	return opts
}

// CallOptions converts a poller's settings into per-call options.
func CallOptions(pc PollerConfig) []vixen.CallOption {
	var opts []vixen.CallOption

	if pc.Interval != 0 {
		opts = append(opts, vixen.WithInterval(pc.Interval.Duration()))
	}
	if pc.Param != "" {
		opts = append(opts, vixen.WithParam(pc.Param))
	}

	return opts
}

// StartPollers initializes every configured poller on client, delivering
// responses to callback. It stops at the first failure, leaving the pollers
// started so far running.
func StartPollers(client *vixen.Client, cfg *Config, callback func(location string, args []any)) error {
	for _, pc := range cfg.Pollers {
		location := pc.Location
		err := client.Init(location, func(args ...any) {
			callback(location, args)
		}, CallOptions(pc)...)
		if err != nil {
			return err
		}
	}
	return nil
}
