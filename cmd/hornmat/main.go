package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hornmat/internal/config"
	"hornmat/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Loaded in PersistentPreRunE
	cfg *config.Config

	// Set with -ldflags "-X main.version=..."
	version = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hornmat",
	Short: "hornmat - Horn-ALCHOIQ materialization over a Datalog store",
	Long: `hornmat materializes Horn-ALCHOIQ ontologies with the combined approach.

The TBox is compiled into Datalog rules and the ABox into facts. Existential,
universal and at-most-one restrictions are deferred and fired in rounds
against the deductive store until no new facts are derived.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.DebugMode = true
		}
		if err := logging.Initialize(cfg.LoggingOptions()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Boot("hornmat %s: %s", version, cmd.CommandPath())
		logging.BootDebug("Configuration from %s: threads=%d equality=%s work_dir=%s",
			configPath, cfg.Store.Threads, cfg.Store.Equality, cfg.Paths.WorkDir)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the hornmat version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hornmat %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFile, "Path to the configuration file")

	initMaterializeFlags()
	initCompileFlags()
	initCompareFlags()
	initConfigFlags()

	rootCmd.AddCommand(
		materializeCmd,
		compileCmd,
		trimCmd,
		compareCmd,
		configCmd,
		versionCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
