package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/dynoscaler/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "dynoscaler",
	Short: "Queue backlog autoscaler for worker fleets",
	Long: `Dynoscaler resizes a worker fleet from the depth of an SQS queue.

Each cycle it divides the visible message count by the number of running
instances and compares the result with a backlog threshold. A resize of one
instance is requested only after the threshold has been crossed for a
configured number of consecutive cycles.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/dynoscaler/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
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
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix(config.EnvPrefix)
	// e.g., DYNOSCALER_SCALER_UP_CYCLES for scaler.up_cycles
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer)
	config.BindLegacyEnv()

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
