package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/kepler/internal/conformance"
	"github.com/Iron-Ham/kepler/internal/report"
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run the conformance scenarios",
	Long: `Run the built-in conformance scenarios against a fresh pool and registry.

Scenarios:
  basic-send-receive   one 3-byte message ABC round-trips through destination 0
  receive-empty        receive from an empty destination fails cleanly
  fifo-order           X, Y, Z arrive in the order they were sent
  pool-exhaustion      allocation fails at the cap and recovers after release
  invalid-destination  sending past the last destination is rejected

Exits non-zero when any scenario fails.`,
	RunE: runSelftest,
}

var (
	selftestFormat string
	selftestList   bool
)

func init() {
	selftestCmd.Flags().StringSliceP("scenario", "s", nil, "run only the named scenarios (repeatable)")
	selftestCmd.Flags().StringVarP(&selftestFormat, "output", "o", "text", "output format: text or yaml")
	selftestCmd.Flags().BoolVar(&selftestList, "list", false, "list scenario names and exit")
	_ = viper.BindPFlag("selftest.scenarios", selftestCmd.Flags().Lookup("scenario"))
	rootCmd.AddCommand(selftestCmd)
}

func runSelftest(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if selftestList {
		for _, s := range conformance.Scenarios() {
			fmt.Fprintf(out, "%-20s %s\n", s.Name, s.Description)
		}
		return nil
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	scenarios, err := selectScenarios(rt.cfg.Selftest.Scenarios)
	if err != nil {
		return err
	}

	results := conformance.Run(cmd.Context(), conformance.Env{
		Logger:       rt.logger,
		Bus:          rt.bus,
		PoolCapacity: rt.cfg.Pool.Capacity,
	}, scenarios...)

	switch selftestFormat {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
	case "text":
		if err := report.Selftest(out, results, report.DefaultWidth); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown output format %q (want text or yaml)", selftestFormat)
	}

	if !conformance.Passed(results) {
		failed := 0
		for _, r := range results {
			if !r.Passed {
				failed++
			}
		}
		return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}

// selectScenarios resolves names to scenarios. No names selects all of them.
func selectScenarios(names []string) ([]conformance.Scenario, error) {
	if len(names) == 0 {
		return conformance.Scenarios(), nil
	}

	selected := make([]conformance.Scenario, 0, len(names))
	for _, name := range names {
		s, ok := conformance.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q\nValid scenarios: %s",
				name, strings.Join(conformance.Names(), ", "))
		}
		selected = append(selected, s)
	}
	return selected, nil
}
