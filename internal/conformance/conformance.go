// Package conformance runs the end-to-end scenarios every kepler build must
// pass: basic delivery, empty receive, FIFO ordering, pool exhaustion with
// recovery, and destination bounds checking.
//
// Each scenario builds its own pool and registry so scenarios never observe
// each other's messages. Scenarios are exposed both to the selftest command
// and to package tests.
package conformance

import (
	"context"
	"fmt"
	"time"

	"github.com/Iron-Ham/kepler/internal/event"
	"github.com/Iron-Ham/kepler/internal/logging"
	"github.com/Iron-Ham/kepler/internal/mailbox"
	"github.com/Iron-Ham/kepler/internal/pool"
)

// Env carries the ambient dependencies handed to every scenario.
type Env struct {
	Logger *logging.Logger
	Bus    *event.Bus
	// PoolCapacity overrides the pool capacity; zero keeps the default.
	PoolCapacity int
}

// Fixture is the fresh pool and registry a scenario runs against.
type Fixture struct {
	Pool     *pool.Pool
	Registry *mailbox.Registry
}

// Scenario is a named end-to-end check.
type Scenario struct {
	Name        string
	Description string
	Run         func(f *Fixture) error
}

// Result is the outcome of one scenario.
type Result struct {
	Name     string        `json:"name" yaml:"name"`
	Passed   bool          `json:"passed" yaml:"passed"`
	Detail   string        `json:"detail,omitempty" yaml:"detail,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// NewFixture builds a pool and registry wired to env.
func NewFixture(env Env) *Fixture {
	logger := env.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	p := pool.New(
		pool.WithCapacity(env.PoolCapacity),
		pool.WithLogger(logger),
		pool.WithBus(env.Bus),
	)
	return &Fixture{
		Pool:     p,
		Registry: mailbox.NewRegistry(p, mailbox.WithLogger(logger), mailbox.WithBus(env.Bus)),
	}
}

// Run executes scenarios in order. When ctx is canceled the remaining
// scenarios are reported as failed without running.
func Run(ctx context.Context, env Env, scenarios ...Scenario) []Result {
	if len(scenarios) == 0 {
		scenarios = Scenarios()
	}
	logger := env.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logger.WithComponent("conformance")

	results := make([]Result, 0, len(scenarios))
	for _, s := range scenarios {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Name: s.Name, Detail: fmt.Sprintf("not run: %v", err)})
			continue
		}
		res := runOne(env, s)
		if res.Passed {
			logger.Info("scenario passed", "scenario", s.Name, "duration", res.Duration.String())
		} else {
			logger.Warn("scenario failed", "scenario", s.Name, "detail", res.Detail)
		}
		results = append(results, res)
	}
	return results
}

func runOne(env Env, s Scenario) (res Result) {
	res.Name = s.Name
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if r := recover(); r != nil {
			res.Passed = false
			res.Detail = fmt.Sprintf("panic: %v", r)
		}
	}()

	if err := s.Run(NewFixture(env)); err != nil {
		res.Detail = err.Error()
		return res
	}
	res.Passed = true
	return res
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
