package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/kepler/internal/loadgen"
	"github.com/Iron-Ham/kepler/internal/mailbox"
	"github.com/Iron-Ham/kepler/internal/pool"
	"github.com/Iron-Ham/kepler/internal/report"
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Run concurrent producers and consumers against the registry",
	Long: `Run concurrent producers and consumers against one pool and registry and
verify that every message is delivered exactly once and in per-producer
order for each destination.

Examples:
  # Default workload from config
  kepler stress

  # Heavy contention on a small pool
  kepler stress --producers 32 --destinations 1 --pool-capacity 64`,
	RunE: runStress,
}

var (
	stressJSON bool // Output as JSON
)

func init() {
	stressCmd.Flags().Int("producers", 0, "number of producer goroutines")
	stressCmd.Flags().Int("consumers", 0, "number of consumer goroutines")
	stressCmd.Flags().Int("messages", 0, "messages sent by each producer")
	stressCmd.Flags().Int("destinations", 0, "number of destination queues used")
	stressCmd.Flags().Duration("timeout", 0, "abort the run after this long (0 = no limit)")
	stressCmd.Flags().BoolVar(&stressJSON, "json", false, "Output the report as JSON")
	_ = viper.BindPFlag("loadgen.producers", stressCmd.Flags().Lookup("producers"))
	_ = viper.BindPFlag("loadgen.consumers", stressCmd.Flags().Lookup("consumers"))
	_ = viper.BindPFlag("loadgen.messages_per_producer", stressCmd.Flags().Lookup("messages"))
	_ = viper.BindPFlag("loadgen.destinations", stressCmd.Flags().Lookup("destinations"))
	_ = viper.BindPFlag("loadgen.timeout", stressCmd.Flags().Lookup("timeout"))
	rootCmd.AddCommand(stressCmd)
}

func runStress(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	p := pool.New(
		pool.WithCapacity(rt.cfg.Pool.Capacity),
		pool.WithLogger(rt.logger),
		pool.WithBus(rt.bus),
	)
	reg := mailbox.NewRegistry(p, mailbox.WithLogger(rt.logger), mailbox.WithBus(rt.bus))

	lg := rt.cfg.Loadgen
	runner := loadgen.New(reg, loadgen.Config{
		Producers:           lg.Producers,
		Consumers:           lg.Consumers,
		MessagesPerProducer: lg.MessagesPerProducer,
		Destinations:        lg.Destinations,
		Timeout:             lg.Timeout,
	}, loadgen.WithLogger(rt.logger))

	result, runErr := runner.Run(cmd.Context())

	out := cmd.OutOrStdout()
	if stressJSON {
		data, err := json.MarshalIndent(struct {
			Report loadgen.Report `json:"report"`
			Pool   pool.Stats     `json:"pool"`
		}{result, p.Stats()}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		fmt.Fprintln(out, string(data))
	} else if err := report.Stress(out, result, p.Stats()); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	if !result.OK() {
		return fmt.Errorf("delivery anomalies detected: %d duplicates, %d lost, %d FIFO violations",
			result.Duplicates, result.Lost, result.FIFOViolations)
	}
	return nil
}
