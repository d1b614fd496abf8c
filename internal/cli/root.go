package cli

import (
	"fmt"
	"os"

	"github.com/LeJamon/goCustody/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	debug      bool
	quiet      bool

	// cfg is loaded before any command runs
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "custodyd",
	Short: "custodyd - custodial token ledger with escrow and AMM programs",
	Long: `custodyd keeps a custodial token ledger and runs two programs over it:
a two-party escrow and a constant product market. Commands other than
server apply operations to the configured store in-process, through the
same handlers the server exposes over JSON-RPC.`,
	Version:           "0.1.0-dev",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable normally suppressed debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output to console after startup")
}

// loadConfig reads the configuration file and CUSTODY_ environment variables.
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if debug {
		c.Log.Level = "debug"
	}
	cfg = c
	return nil
}
