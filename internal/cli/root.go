package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andywolf/agenda/internal/config"
	"github.com/andywolf/agenda/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "agenda",
	Short: "Agenda - priority selection for conversational agents",
	Long: `Agenda manages the weighted priorities of a conversational agent and decides,
turn by turn, which single priority the agent should act on.

Priorities are stored per agent in a file (yaml, json or toml) or a SQLite
database. Each user message is matched against priority triggers; the
highest-weight candidate whose dependencies and guard are satisfied is
activated, and agenda reports whether to ask for missing data or run its task.

Example:
  agenda priority add "Refund" --weight 80 --trigger refund --require email
  agenda chat`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a context that commands observe
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .agenda.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	rootCmd.PersistentFlags().String("agent", "", "agent whose priorities to use")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("agent", rootCmd.PersistentFlags().Lookup("agent"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads .agenda.yaml from the working directory, then from the
// user config directory. Environment variables override both: AGENDA_AGENT,
// AGENDA_STORE_BACKEND, AGENDA_LOG_LEVEL and so on.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error getting working directory:", err)
			os.Exit(1)
		}
		viper.AddConfigPath(cwd)
		if dir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(dir, "agenda"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".agenda")
	}

	if err := config.BindEnv(viper.GetViper()); err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	case errors.As(err, &notFound):
		// Defaults apply.
	default:
		fmt.Fprintln(os.Stderr, "Warning: failed to read config:", err)
	}
}
