package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_MinimalConfig(t *testing.T) {
	yaml := `
pollers:
  - location: https://example.com/poll/chat
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if len(cfg.Pollers) != 1 {
		t.Fatalf("len(Pollers) = %d, want 1", len(cfg.Pollers))
	}
	if cfg.Pollers[0].Interval != 0 {
		t.Errorf("Interval = %v, want 0 (client default applies)", cfg.Pollers[0].Interval.Duration())
	}
}

func TestParse_EmptyConfig(t *testing.T) {
	// a relay with no pollers is valid
	cfg, err := Parse([]byte(`server: {port: 9000}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if len(cfg.Pollers) != 0 {
		t.Errorf("len(Pollers) = %d, want 0", len(cfg.Pollers))
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
namespace: App.realtime
id_prefix: rt
request_timeout: 30s
http2: true
escape_payloads: true
headers:
  Authorization: Bearer token123

server:
  port: 9090
  title: My Relay
  param: cb
  capacity: 64

pollers:
  - location: https://api.example.com/poll/chat
    interval: 500ms
    param: cb
  - location: http://localhost:8080/poll/news
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Namespace != "App.realtime" {
		t.Errorf("Namespace = %q, want %q", cfg.Namespace, "App.realtime")
	}
	if cfg.IDPrefix != "rt" {
		t.Errorf("IDPrefix = %q, want %q", cfg.IDPrefix, "rt")
	}
	if cfg.RequestTimeout.Duration() != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout.Duration())
	}
	if !cfg.HTTP2 {
		t.Error("HTTP2 = false, want true")
	}
	if !cfg.EscapePayloads {
		t.Error("EscapePayloads = false, want true")
	}
	if cfg.Headers["Authorization"] != "Bearer token123" {
		t.Errorf("Headers[Authorization] = %q", cfg.Headers["Authorization"])
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Title != "My Relay" {
		t.Errorf("Server.Title = %q, want %q", cfg.Server.Title, "My Relay")
	}
	if cfg.Server.Param != "cb" {
		t.Errorf("Server.Param = %q, want %q", cfg.Server.Param, "cb")
	}
	if cfg.Server.Capacity != 64 {
		t.Errorf("Server.Capacity = %d, want 64", cfg.Server.Capacity)
	}

	p := cfg.Pollers[0]
	if p.Location != "https://api.example.com/poll/chat" {
		t.Errorf("Location = %q", p.Location)
	}
	if p.Interval.Duration() != 500*time.Millisecond {
		t.Errorf("Interval = %v, want 500ms", p.Interval.Duration())
	}
	if p.Param != "cb" {
		t.Errorf("Param = %q, want %q", p.Param, "cb")
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	// t.Setenv auto-restores after test (Go 1.17+)
	t.Setenv("TEST_RELAY_HOST", "relay.test.com")
	t.Setenv("TEST_RELAY_TOKEN", "secret123")

	yaml := `
headers:
  Authorization: "Bearer ${TEST_RELAY_TOKEN}"
pollers:
  - location: https://${TEST_RELAY_HOST}/poll/chat
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Pollers[0].Location != "https://relay.test.com/poll/chat" {
		t.Errorf("Location = %q, want https://relay.test.com/poll/chat", cfg.Pollers[0].Location)
	}
	if cfg.Headers["Authorization"] != "Bearer secret123" {
		t.Errorf("Headers[Authorization] = %q, want 'Bearer secret123'", cfg.Headers["Authorization"])
	}
}

func TestParse_EnvVarDefault(t *testing.T) {
	yaml := `
pollers:
  - location: https://${UNSET_VAR:-fallback.example.com}/poll
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Pollers[0].Location != "https://fallback.example.com/poll" {
		t.Errorf("Location = %q, want https://fallback.example.com/poll", cfg.Pollers[0].Location)
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	// MISSING_VAR is expected to not exist in the environment
	yaml := `
pollers:
  - location: https://${MISSING_VAR}/poll
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for missing env var, got nil")
	}
	if !strings.Contains(err.Error(), "MISSING_VAR") {
		t.Errorf("error should mention MISSING_VAR: %v", err)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantErrLike string
	}{
		{
			name:        "invalid namespace",
			yaml:        `namespace: my-app`,
			wantErrLike: "namespace",
		},
		{
			name:        "dotted id prefix",
			yaml:        `id_prefix: a.b`,
			wantErrLike: "id_prefix",
		},
		{
			name:        "negative request timeout",
			yaml:        `request_timeout: -1s`,
			wantErrLike: "cannot be negative",
		},
		{
			name:        "request timeout too long",
			yaml:        `request_timeout: 1h`,
			wantErrLike: "must not exceed",
		},
		{
			name:        "port out of range",
			yaml:        `server: {port: 70000}`,
			wantErrLike: "server.port",
		},
		{
			name:        "negative capacity",
			yaml:        `server: {capacity: -1}`,
			wantErrLike: "server.capacity",
		},
		{
			name:        "server param with separator",
			yaml:        `server: {param: "a&b"}`,
			wantErrLike: "reserved characters",
		},
		{
			name: "poller missing location",
			yaml: `
pollers:
  - interval: 1s
`,
			wantErrLike: "location is required",
		},
		{
			name: "poller missing scheme",
			yaml: `
pollers:
  - location: example.com/poll
`,
			wantErrLike: "scheme must be http or https",
		},
		{
			name: "poller ftp scheme",
			yaml: `
pollers:
  - location: ftp://example.com/poll
`,
			wantErrLike: "scheme must be http or https",
		},
		{
			name: "poller with query string",
			yaml: `
pollers:
  - location: https://example.com/poll?x=1
`,
			wantErrLike: "query string",
		},
		{
			name: "duplicate poller",
			yaml: `
pollers:
  - location: https://example.com/poll
  - location: https://example.com/poll
    interval: 1s
`,
			wantErrLike: "duplicate of pollers[0]",
		},
		{
			name: "negative interval",
			yaml: `
pollers:
  - location: https://example.com/poll
    interval: -2s
`,
			wantErrLike: "interval cannot be negative",
		},
		{
			name: "poller param with separator",
			yaml: `
pollers:
  - location: https://example.com/poll
    param: "a=b"
`,
			wantErrLike: "reserved characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErrLike) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErrLike)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	yaml := `
this is not: valid: yaml: at all
  - broken
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for invalid YAML, got nil")
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	yaml := `
pollers:
  - location: https://example.com/poll
    interval: not-a-duration
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %q, want to contain 'invalid duration'", err.Error())
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"seconds", "10s", 10 * time.Second, false},
		{"milliseconds", "1500ms", 1500 * time.Millisecond, false},
		{"minutes", "2m", 2 * time.Minute, false},
		{"hours", "1h", 1 * time.Hour, false},
		{"combined", "1m30s", 90 * time.Second, false},
		{"invalid", "not-a-duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yaml := `
pollers:
  - location: https://example.com/poll
    interval: ` + tt.input

			cfg, err := Parse([]byte(yaml))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Parse() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if cfg.Pollers[0].Interval.Duration() != tt.want {
				t.Errorf("Interval = %v, want %v", cfg.Pollers[0].Interval.Duration(), tt.want)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "") // set but empty

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false}, // set var takes precedence
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// UNSET and MISSING are expected to not exist in environment
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vixen.yaml")
	if err := os.WriteFile(path, []byte("pollers:\n  - location: http://localhost/poll\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Pollers) != 1 {
		t.Errorf("len(Pollers) = %d, want 1", len(cfg.Pollers))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("error = %q", err.Error())
	}
}
