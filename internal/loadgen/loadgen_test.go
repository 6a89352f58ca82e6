package loadgen

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/kepler/internal/errors"
	"github.com/Iron-Ham/kepler/internal/mailbox"
	"github.com/Iron-Ham/kepler/internal/message"
	"github.com/Iron-Ham/kepler/internal/pool"
)

func newRegistry(capacity int) *mailbox.Registry {
	return mailbox.NewRegistry(pool.New(pool.WithCapacity(capacity)))
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"zero producers", func(c *Config) { c.Producers = 0 }, true},
		{"too many producers", func(c *Config) { c.Producers = 1 << 16 }, true},
		{"zero consumers", func(c *Config) { c.Consumers = 0 }, true},
		{"zero messages", func(c *Config) { c.MessagesPerProducer = 0 }, true},
		{"zero destinations", func(c *Config) { c.Destinations = 0 }, true},
		{"all destinations", func(c *Config) { c.Destinations = message.MaxDestinations }, false},
		{"too many destinations", func(c *Config) { c.Destinations = message.MaxDestinations + 1 }, true},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("Validate() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestRunner_Run(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		cap  int
	}{
		{
			name: "single producer single destination",
			cfg:  Config{Producers: 1, Consumers: 1, MessagesPerProducer: 500, Destinations: 1},
			cap:  message.MaxMessages,
		},
		{
			name: "many producers shared destinations",
			cfg:  Config{Producers: 8, Consumers: 3, MessagesPerProducer: 1000, Destinations: 5},
			cap:  message.MaxMessages,
		},
		{
			name: "more consumers than destinations",
			cfg:  Config{Producers: 4, Consumers: 6, MessagesPerProducer: 300, Destinations: 2},
			cap:  message.MaxMessages,
		},
		{
			name: "tiny pool forces retries",
			cfg:  Config{Producers: 6, Consumers: 2, MessagesPerProducer: 400, Destinations: 4},
			cap:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newRegistry(tt.cap)
			tt.cfg.Timeout = 30 * time.Second

			report, err := New(reg, tt.cfg).Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			want := int64(tt.cfg.Producers * tt.cfg.MessagesPerProducer)
			if report.Sent != want || report.Received != want {
				t.Errorf("sent/received = %d/%d, want %d/%d", report.Sent, report.Received, want, want)
			}
			if report.Duplicates != 0 || report.Lost != 0 || report.FIFOViolations != 0 {
				t.Errorf("anomalies: duplicates=%d lost=%d fifo=%d",
					report.Duplicates, report.Lost, report.FIFOViolations)
			}
			if report.PeakOutstanding > tt.cap {
				t.Errorf("PeakOutstanding = %d exceeds cap %d", report.PeakOutstanding, tt.cap)
			}
			if report.FinalOutstanding != 0 {
				t.Errorf("FinalOutstanding = %d, want 0", report.FinalOutstanding)
			}
			if !report.OK() {
				t.Errorf("OK() = false for %+v", report)
			}
		})
	}
}

func TestRunner_RunInvalidConfig(t *testing.T) {
	_, err := New(newRegistry(8), Config{}).Run(context.Background())
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Run() error = %v, want ErrInvalidInput", err)
	}
}

func TestRunner_RunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reg := newRegistry(message.MaxMessages)
	cfg := Config{Producers: 2, Consumers: 1, MessagesPerProducer: 100, Destinations: 2}

	report, err := New(reg, cfg).Run(ctx)
	if err == nil && report.Received != report.Sent {
		t.Fatalf("Run() on canceled context = (%+v, nil), want error or complete run", report)
	}
	if report.FinalOutstanding != 0 {
		t.Errorf("FinalOutstanding = %d, want 0 after canceled run", report.FinalOutstanding)
	}
}

func TestRunner_ConsumerFailureStopsProducers(t *testing.T) {
	p := pool.New(pool.WithCapacity(2))
	reg := mailbox.NewRegistry(p)

	// A queued message the pool will not reclaim makes the first receive
	// on destination 0 fail with an internal error.
	bad, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if err := reg.Send(0, bad); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	bad.Transition(message.StateQueued, message.StateOwned)

	cfg := Config{Producers: 2, Consumers: 1, MessagesPerProducer: 1000, Destinations: 2}
	done := make(chan error, 1)
	go func() {
		_, err := New(reg, cfg).Run(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Run() error = nil, want consumer failure")
		}
		if !strings.Contains(err.Error(), "internal error") {
			t.Errorf("Run() error = %v, want it to mention the internal error", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after a consumer failed")
	}

	if err := p.Release(bad); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if p.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d, want 0", p.Outstanding())
	}
}

func TestReport_OK(t *testing.T) {
	tests := []struct {
		name   string
		report Report
		want   bool
	}{
		{"clean", Report{Sent: 10, Received: 10}, true},
		{"duplicate", Report{Sent: 10, Received: 11, Duplicates: 1}, false},
		{"lost", Report{Sent: 10, Received: 9, Lost: 1}, false},
		{"fifo", Report{Sent: 10, Received: 10, FIFOViolations: 1}, false},
		{"leak", Report{Sent: 10, Received: 10, FinalOutstanding: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.report.OK(); got != tt.want {
				t.Errorf("OK() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReport_Throughput(t *testing.T) {
	r := Report{Received: 1000, Elapsed: 2 * time.Second}
	if got := r.Throughput(); got != 500 {
		t.Errorf("Throughput() = %v, want 500", got)
	}
	if got := (Report{}).Throughput(); got != 0 {
		t.Errorf("Throughput() with zero elapsed = %v, want 0", got)
	}
}
