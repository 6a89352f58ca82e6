package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/kepler/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "kepler",
	Short: "In-process message pool and per-destination queues",
	Long: `Kepler is a bounded pool of fixed-size message buffers delivered through
one FIFO queue per numeric destination. This command runs the conformance
scenarios and a concurrent load generator against the library.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/kepler/config.yaml)")
	rootCmd.PersistentFlags().Int("pool-capacity", 0, "maximum outstanding messages (overrides pool.capacity)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides logging.level)")
	rootCmd.PersistentFlags().String("log-file", "", "write JSON logs to this file instead of stderr (overrides logging.file)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("pool.capacity", rootCmd.PersistentFlags().Lookup("pool-capacity"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.file", rootCmd.PersistentFlags().Lookup("log-file"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/kepler")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("KEPLER")
	// Replace dots with underscores for nested keys in env vars
	// e.g., KEPLER_POOL_CAPACITY for pool.capacity
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
