// fenceline observes how an OS sandbox mediates probe actions and
// records every observation as a structured, versioned boundary record
// checked against a capability catalog.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fenceline/fenceline/application/config"
	"github.com/fenceline/fenceline/log"
)

var (
	cfg      *config.Harness
	logLevel string
	logJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "fenceline",
	Short: "Sandbox boundary observation harness",
	Long: `fenceline runs probes against an OS sandbox, classifies what the
sandbox permitted or denied, and collects each observation as a
versioned boundary record in an append-only corpus.

The harness never constructs or alters sandbox policy itself; a denial
is a valid classified outcome, not a failure.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.FromEnv()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("log-level") {
			logLevel = cfg.LogLevel
		}
		log.Setup(log.WithLevelName(logLevel), log.WithJSON(logJSON))
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fenceline: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
}
