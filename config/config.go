// Package config provides YAML configuration parsing for the vixen command.
//
// A configuration file describes the pollers a vixen client runs and the
// relay endpoint it serves, as an alternative to the programmatic SDK.
//
// Example configuration:
//
//	namespace: Vixen
//	request_timeout: 10s
//	headers:
//	  Authorization: Bearer ${RELAY_TOKEN}
//
//	server:
//	  port: 8080
//	  param: jsonp
//
//	pollers:
//	  - location: http://localhost:8080/poll/chat
//	    interval: 2s
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/vixen/internal/jsonp"
)

const (
	// DefaultPort is the relay port when none is configured.
	DefaultPort = 8080

	// maxRequestTimeout caps request_timeout so a stuck endpoint cannot pin
	// a poller's request forever.
	maxRequestTimeout = 5 * time.Minute
)

// Config is the root configuration structure for vixen.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Namespace is the JavaScript object callback references live under.
	// Defaults to "Vixen".
	Namespace string `yaml:"namespace"`

	// IDPrefix prefixes generated identifiers. Defaults to "vixen".
	IDPrefix string `yaml:"id_prefix"`

	// RequestTimeout bounds each request. Defaults to 10s.
	RequestTimeout Duration `yaml:"request_timeout"`

	// HTTP2 enables HTTP/2 negotiation with TLS endpoints.
	HTTP2 bool `yaml:"http2"`

	// EscapePayloads query-escapes signal payloads instead of appending
	// them verbatim.
	EscapePayloads bool `yaml:"escape_payloads"`

	// Headers are sent with every request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Server configures the relay endpoint started by "vixen serve".
	Server ServerConfig `yaml:"server"`

	// Pollers are started by "vixen poll" and "vixen serve".
	Pollers []PollerConfig `yaml:"pollers"`
}

// ServerConfig configures the relay endpoint.
type ServerConfig struct {
	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// Title is the dashboard title. Defaults to "Vixen Relay".
	Title string `yaml:"title"`

	// Param is the query parameter the relay reads. Defaults to "jsonp".
	Param string `yaml:"param"`

	// Capacity is the number of channels retained. Defaults to 1024.
	Capacity int `yaml:"capacity"`
}

// PollerConfig defines a single poller.
type PollerConfig struct {
	// Location is the endpoint URL, without the callback parameter.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Location string `yaml:"location"`

	// Interval is the time between requests. Defaults to 2s.
	Interval Duration `yaml:"interval"`

	// Param is the query parameter carrying the callback reference.
	// Defaults to "jsonp".
	Param string `yaml:"param"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		// submatches[2] is ":-..." (non-empty if default syntax was used)
		// submatches[3] is the actual default value (may be empty for ${VAR:-})
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in poller locations and header values.
// Defaults are applied for the server port (8080).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Namespace != "" && !jsonp.ValidReference(c.Namespace) {
		return fmt.Errorf("namespace %q must be a dotted path of JavaScript identifiers", c.Namespace)
	}
	if c.IDPrefix != "" && (!jsonp.ValidReference(c.IDPrefix) || strings.Contains(c.IDPrefix, ".")) {
		return fmt.Errorf("id_prefix %q must be a JavaScript identifier", c.IDPrefix)
	}

	if c.RequestTimeout.Duration() < 0 {
		return fmt.Errorf("request_timeout cannot be negative, got %s", c.RequestTimeout.Duration())
	}
	if c.RequestTimeout.Duration() > maxRequestTimeout {
		return fmt.Errorf("request_timeout must not exceed %s, got %s", maxRequestTimeout, c.RequestTimeout.Duration())
	}

	for k, v := range c.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
		c.Headers[k] = expanded
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Capacity < 0 {
		return fmt.Errorf("server.capacity cannot be negative, got %d", c.Server.Capacity)
	}
	if c.Server.Param != "" && strings.ContainsAny(c.Server.Param, "&=?# ") {
		return fmt.Errorf("server.param %q contains reserved characters", c.Server.Param)
	}

	seen := make(map[string]int, len(c.Pollers))
	for i := range c.Pollers {
		p := &c.Pollers[i]

		if p.Location == "" {
			return fmt.Errorf("pollers[%d]: location is required", i)
		}
		expanded, err := expandEnvVars(p.Location)
		if err != nil {
			return fmt.Errorf("pollers[%d]: location: %w", i, err)
		}
		p.Location = expanded

		parsedURL, err := url.Parse(p.Location)
		if err != nil {
			return fmt.Errorf("pollers[%d] (%s): invalid location: %w", i, p.Location, err)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("pollers[%d] (%s): location scheme must be http or https, got %q", i, p.Location, parsedURL.Scheme)
		}
		if parsedURL.RawQuery != "" {
			return fmt.Errorf("pollers[%d] (%s): location must not carry a query string", i, p.Location)
		}

		if prev, dup := seen[p.Location]; dup {
			return fmt.Errorf("pollers[%d] (%s): duplicate of pollers[%d]", i, p.Location, prev)
		}
		seen[p.Location] = i

		if p.Interval.Duration() < 0 {
			return fmt.Errorf("pollers[%d] (%s): interval cannot be negative, got %s",
				i, p.Location, p.Interval.Duration())
		}

		if p.Param != "" && strings.ContainsAny(p.Param, "&=?# ") {
			return fmt.Errorf("pollers[%d] (%s): param %q contains reserved characters", i, p.Location, p.Param)
		}
	}

	return nil
}
