package vixen

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestNew_Defaults(t *testing.T) {
	client, err := New(WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	if client.Namespace() != "Vixen" {
		t.Errorf("Namespace() = %q, want %q", client.Namespace(), "Vixen")
	}
	if _, ok := client.transport.(*HTTPTransport); !ok {
		t.Errorf("default transport = %T, want *HTTPTransport", client.transport)
	}
	if !client.ownsTransport {
		t.Error("client should own the transport it created")
	}
	if client.ids.Prefix() != "vixen" {
		t.Errorf("id prefix = %q, want %q", client.ids.Prefix(), "vixen")
	}
}

func TestNew_OptionErrors(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"nil transport", WithTransport(nil)},
		{"empty namespace", WithNamespace("")},
		{"namespace with dash", WithNamespace("my-app")},
		{"namespace trailing dot", WithNamespace("App.")},
		{"empty prefix", WithIDPrefix("")},
		{"dotted prefix", WithIDPrefix("a.b")},
		{"prefix starting with digit", WithIDPrefix("1abc")},
		{"zero attempts", WithMaxIDAttempts(0)},
		{"negative attempts", WithMaxIDAttempts(-1)},
		{"nil random", WithRandomSource(nil)},
		{"nil clock", WithClock(nil)},
		{"nil logger", WithLogger(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.opt)
			if err == nil {
				client.Close()
				t.Fatal("New() expected error, got nil")
			}
			if client != nil {
				t.Error("New() should return nil client on error")
			}
		})
	}
}

func TestNew_AcceptsValidOptions(t *testing.T) {
	ft := &fakeTransport{}
	client, err := New(
		WithTransport(ft),
		WithNamespace("App.realtime"),
		WithIDPrefix("rt"),
		WithMaxIDAttempts(4),
		WithRandomSource(fixedRandom(0.42)),
		WithClock(clockwork.NewFakeClock()),
		WithLogger(testLogger()),
		WithPayloadEscaping(),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	if err := client.Init("loc", noop); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if want := "loc?jsonp=App.realtime.callbacks.rt_42"; ft.last().URL != want {
		t.Errorf("URL = %q, want %q", ft.last().URL, want)
	}
	if client.ownsTransport {
		t.Error("client must not own a transport passed with WithTransport")
	}
	if !client.escapePayload {
		t.Error("WithPayloadEscaping() not applied")
	}
}

func TestApplyCallOptions(t *testing.T) {
	tests := []struct {
		name         string
		opts         []CallOption
		wantInterval time.Duration
		wantParam    string
	}{
		{"defaults", nil, 2 * time.Second, "jsonp"},
		{"interval", []CallOption{WithInterval(time.Second)}, time.Second, "jsonp"},
		{"zero interval", []CallOption{WithInterval(0)}, 2 * time.Second, "jsonp"},
		{"param", []CallOption{WithParam("cb")}, 2 * time.Second, "cb"},
		{"empty param", []CallOption{WithParam("")}, 2 * time.Second, "jsonp"},
		{"nil option", []CallOption{nil}, 2 * time.Second, "jsonp"},
		{"last wins", []CallOption{WithParam("a"), WithParam("b")}, 2 * time.Second, "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := applyCallOptions(tt.opts)
			if cfg.interval != tt.wantInterval {
				t.Errorf("interval = %v, want %v", cfg.interval, tt.wantInterval)
			}
			if cfg.param != tt.wantParam {
				t.Errorf("param = %q, want %q", cfg.param, tt.wantParam)
			}
		})
	}
}
