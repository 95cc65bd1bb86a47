package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configForce bool

// configCmd groups configuration file commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the hornmat configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to --config",
	Long: `Writes the defaults, with any HORNMAT_* environment overrides applied,
to the path given by --config (hornmat.yaml by default). An existing file
is kept unless --force is given, in which case it is rewritten with its
values and the overrides.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func initConfigFlags() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
	return nil
}
