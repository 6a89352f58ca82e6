// Package loadgen drives a registry with concurrent producers and consumers
// and checks the delivery guarantees under contention: every message sent is
// received exactly once, and messages from one producer to one destination
// arrive in the order they were sent.
package loadgen

import (
	"context"
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fishy/errbatch"
	cpool "github.com/sourcegraph/conc/pool"

	"github.com/Iron-Ham/kepler/internal/errors"
	"github.com/Iron-Ham/kepler/internal/logging"
	"github.com/Iron-Ham/kepler/internal/mailbox"
	"github.com/Iron-Ham/kepler/internal/message"
)

// payloadSize is the number of bytes a producer writes into each message:
// producer id (2), destination (2), sequence number (4).
const payloadSize = 8

// Config controls the shape of a run.
type Config struct {
	Producers           int
	Consumers           int
	MessagesPerProducer int
	Destinations        int
	// Timeout bounds the whole run. Zero means no limit beyond the caller's context.
	Timeout time.Duration
}

// DefaultConfig returns a moderate workload that finishes quickly.
func DefaultConfig() Config {
	return Config{
		Producers:           8,
		Consumers:           4,
		MessagesPerProducer: 10000,
		Destinations:        16,
		Timeout:             30 * time.Second,
	}
}

// Validate checks that the configuration can be run.
func (c Config) Validate() error {
	switch {
	case c.Producers < 1 || c.Producers > 1<<16-1:
		return errors.NewValidationError("producers must be between 1 and 65535").
			WithField("producers").WithValue(c.Producers)
	case c.Consumers < 1:
		return errors.NewValidationError("consumers must be at least 1").
			WithField("consumers").WithValue(c.Consumers)
	case c.MessagesPerProducer < 1:
		return errors.NewValidationError("messages per producer must be at least 1").
			WithField("messages_per_producer").WithValue(c.MessagesPerProducer)
	case c.Destinations < 1 || c.Destinations > message.MaxDestinations:
		return errors.NewValidationError(fmt.Sprintf("destinations must be between 1 and %d", message.MaxDestinations)).
			WithField("destinations").WithValue(c.Destinations)
	case c.Timeout < 0:
		return errors.NewValidationError("timeout must not be negative").
			WithField("timeout").WithValue(c.Timeout)
	}
	return nil
}

// Report summarizes a run.
type Report struct {
	Producers        int           `json:"producers" yaml:"producers"`
	Consumers        int           `json:"consumers" yaml:"consumers"`
	Destinations     int           `json:"destinations" yaml:"destinations"`
	Sent             int64         `json:"sent" yaml:"sent"`
	Received         int64         `json:"received" yaml:"received"`
	Duplicates       int64         `json:"duplicates" yaml:"duplicates"`
	Lost             int64         `json:"lost" yaml:"lost"`
	Stranded         int64         `json:"stranded" yaml:"stranded"`
	FIFOViolations   int64         `json:"fifo_violations" yaml:"fifo_violations"`
	PoolRetries      int64         `json:"pool_retries" yaml:"pool_retries"`
	PeakOutstanding  int           `json:"peak_outstanding" yaml:"peak_outstanding"`
	FinalOutstanding int           `json:"final_outstanding" yaml:"final_outstanding"`
	Elapsed          time.Duration `json:"elapsed" yaml:"elapsed"`
}

// OK reports whether the run observed no delivery anomalies.
func (r Report) OK() bool {
	return r.Duplicates == 0 && r.Lost == 0 && r.FIFOViolations == 0 &&
		r.FinalOutstanding == 0 && r.Received == r.Sent
}

// Throughput returns received messages per second.
func (r Report) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Received) / r.Elapsed.Seconds()
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger attaches a logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger.WithComponent("loadgen")
		}
	}
}

// Runner executes load against one registry.
type Runner struct {
	reg    *mailbox.Registry
	cfg    Config
	logger *logging.Logger

	sent     atomic.Int64
	received atomic.Int64
	dups     atomic.Int64
	fifo     atomic.Int64
	retries  atomic.Int64
	seen     [][]atomic.Uint32
	finished atomic.Bool
}

// New creates a Runner. The configuration is validated by Run.
func New(reg *mailbox.Registry, cfg Config, opts ...Option) *Runner {
	r := &Runner{
		reg:    reg,
		cfg:    cfg,
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the workload once. The report is always filled in; the
// error is non-nil when the configuration is invalid, a producer hit an
// unexpected delivery error, or the context was canceled before every
// message was received.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if err := r.cfg.Validate(); err != nil {
		return Report{}, err
	}
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	r.reset()
	r.logger.Info("load run starting",
		"producers", r.cfg.Producers,
		"consumers", r.cfg.Consumers,
		"messages_per_producer", r.cfg.MessagesPerProducer,
		"destinations", r.cfg.Destinations,
	)
	start := time.Now()

	// A failed consumer cancels the producers too; otherwise they would spin
	// on an exhausted pool that nobody drains.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	consumers := cpool.New().WithContext(ctx).WithCancelOnError()
	for i := range r.cfg.Consumers {
		consumers.Go(func(ctx context.Context) error {
			err := r.consume(ctx, i)
			if err != nil {
				cancel()
			}
			return err
		})
	}

	producers := cpool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for i := range r.cfg.Producers {
		producers.Go(func(ctx context.Context) error {
			return r.produce(ctx, i)
		})
	}

	perr := producers.Wait()
	r.finished.Store(true)
	cerr := consumers.Wait()

	report := r.report(time.Since(start))
	batch := errbatch.NewErrBatch()
	batch.Add(perr)
	batch.Add(cerr)
	if len(batch.GetErrors()) == 0 && ctx.Err() != nil && report.Received < report.Sent {
		batch.Add(ctx.Err())
	}
	err := batch.Compile()

	if err != nil {
		r.logger.Warn("load run aborted", "error", err.Error(), "sent", report.Sent, "received", report.Received)
		return report, errors.Wrap(err, "load run aborted")
	}
	r.logger.Info("load run finished",
		"sent", report.Sent,
		"received", report.Received,
		"duplicates", report.Duplicates,
		"fifo_violations", report.FIFOViolations,
		"elapsed", report.Elapsed.String(),
	)
	return report, nil
}

func (r *Runner) reset() {
	r.sent.Store(0)
	r.received.Store(0)
	r.dups.Store(0)
	r.fifo.Store(0)
	r.retries.Store(0)
	r.finished.Store(false)
	r.seen = make([][]atomic.Uint32, r.cfg.Producers)
	for i := range r.seen {
		r.seen[i] = make([]atomic.Uint32, r.cfg.MessagesPerProducer)
	}
}

// destination spreads a producer's messages across destinations while
// keeping the mapping deterministic for the FIFO check.
func (r *Runner) destination(producer, seq int) int {
	return (producer + seq) % r.cfg.Destinations
}

func (r *Runner) produce(ctx context.Context, id int) error {
	var buf [payloadSize]byte
	for seq := range r.cfg.MessagesPerProducer {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := r.allocate(ctx)
		if err != nil {
			return err
		}

		dest := r.destination(id, seq)
		binary.BigEndian.PutUint16(buf[0:2], uint16(id))
		binary.BigEndian.PutUint16(buf[2:4], uint16(dest))
		binary.BigEndian.PutUint32(buf[4:8], uint32(seq))
		if err := m.SetPayload(buf[:]); err != nil {
			_ = r.reg.Pool().Release(m)
			return err
		}

		if err := r.reg.Send(dest, m); err != nil {
			_ = r.reg.Pool().Release(m)
			return fmt.Errorf("producer %d: %w", id, err)
		}
		r.sent.Add(1)
	}
	return nil
}

// allocate retries while the pool is exhausted; consumers free buffers
// concurrently, so exhaustion is transient.
func (r *Runner) allocate(ctx context.Context) (*message.Message, error) {
	for {
		m, err := r.reg.Pool().Allocate()
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, errors.ErrPoolExhausted) {
			return nil, err
		}
		r.retries.Add(1)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		runtime.Gosched()
	}
}

// consume polls the destinations assigned to consumer id until producers
// have finished and a full sweep finds every queue empty.
func (r *Runner) consume(ctx context.Context, id int) error {
	var dests []int
	for d := id; d < r.cfg.Destinations; d += r.cfg.Consumers {
		dests = append(dests, d)
	}
	if len(dests) == 0 {
		return nil
	}

	lastSeq := make(map[[2]int]int64)
	var out message.Message
	for {
		finished := r.finished.Load()
		got := 0
		for _, d := range dests {
			for {
				err := r.reg.Recv(d, &out)
				if errors.Is(err, errors.ErrQueueEmpty) {
					break
				}
				if err != nil {
					return fmt.Errorf("consumer %d: %w", id, err)
				}
				got++
				r.record(d, &out, lastSeq)
			}
		}
		if got > 0 {
			continue
		}
		if finished {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		runtime.Gosched()
	}
}

func (r *Runner) record(dest int, m *message.Message, lastSeq map[[2]int]int64) {
	r.received.Add(1)
	if m.Len != payloadSize {
		r.dups.Add(1)
		return
	}
	producer := int(binary.BigEndian.Uint16(m.Data[0:2]))
	tagged := int(binary.BigEndian.Uint16(m.Data[2:4]))
	seq := int64(binary.BigEndian.Uint32(m.Data[4:8]))

	if producer >= len(r.seen) || seq >= int64(len(r.seen[producer])) || tagged != dest {
		r.dups.Add(1)
		return
	}
	if r.seen[producer][seq].Add(1) > 1 {
		r.dups.Add(1)
	}

	key := [2]int{producer, dest}
	if last, ok := lastSeq[key]; ok && seq <= last {
		r.fifo.Add(1)
	}
	lastSeq[key] = seq
}

// report drains anything left in the queues, so the pool is returned to
// zero outstanding, and assembles the counters.
func (r *Runner) report(elapsed time.Duration) Report {
	var stranded int64
	for d := range r.cfg.Destinations {
		n, _ := r.reg.Drain(d)
		stranded += int64(n)
	}

	var unique int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for p := range r.seen {
		wg.Go(func() {
			var n int64
			for i := range r.seen[p] {
				if r.seen[p][i].Load() > 0 {
					n++
				}
			}
			mu.Lock()
			unique += n
			mu.Unlock()
		})
	}
	wg.Wait()

	stats := r.reg.Pool().Stats()
	sent := r.sent.Load()
	return Report{
		Producers:        r.cfg.Producers,
		Consumers:        r.cfg.Consumers,
		Destinations:     r.cfg.Destinations,
		Sent:             sent,
		Received:         r.received.Load(),
		Duplicates:       r.dups.Load(),
		Lost:             max(sent-unique-stranded, 0),
		Stranded:         stranded,
		FIFOViolations:   r.fifo.Load(),
		PoolRetries:      r.retries.Load(),
		PeakOutstanding:  stats.Peak,
		FinalOutstanding: stats.Outstanding,
		Elapsed:          elapsed,
	}
}
