package cmd

import (
	"github.com/Iron-Ham/kepler/internal/config"
	"github.com/Iron-Ham/kepler/internal/event"
	"github.com/Iron-Ham/kepler/internal/logging"
)

// runtime is the ambient state shared by the subcommands: validated
// configuration, a logger, and the event bus library components publish to.
type runtime struct {
	cfg    *config.Config
	logger *logging.Logger
	bus    *event.Bus
}

// newRuntime loads configuration and opens the logger. Callers must call close.
func newRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err = logging.NewLogger(cfg.Logging.File, cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
	}

	bus := event.NewBus(logger)
	// Contained faults are always logged, whichever component raised them.
	bus.Subscribe(event.TypeFaultContained, func(e event.Event) {
		if f, ok := e.(event.FaultContainedEvent); ok {
			logger.Error("fault contained", "op", f.Op, "destination", f.Destination, "detail", f.Detail)
		}
	})

	return &runtime{cfg: cfg, logger: logger, bus: bus}, nil
}

func (r *runtime) close() {
	_ = r.logger.Close()
}
