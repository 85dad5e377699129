package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perctx/perctx/internal/config"
	"github.com/perctx/perctx/internal/location"
	"github.com/perctx/perctx/internal/maintenance"
	"github.com/perctx/perctx/internal/store"
)

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// --- token ---

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the API bearer token",
	Long: `Print the API bearer token, generating and storing one if none exists.

Clients authenticate against the REST and MCP endpoints with
"Authorization: Bearer <token>".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := config.GetAPIToken(config.NewKeychain())
		if err != nil {
			return err
		}

		fmt.Println(token)
		return nil
	},
}

// --- sweep ---

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove orphaned food preference overrides",
	Long: `Remove food preference overrides whose location no longer exists.

The running server sweeps on a schedule; this command runs a single
pass against the store directly and reports what was removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer st.Close()

		locations := location.NewRegistry(st)
		sweeper := maintenance.NewSweeper(st, locations, 0)

		removed, err := sweeper.RunOnce()
		if err != nil {
			return err
		}

		if removed == 0 {
			fmt.Println("No orphaned overrides found.")
			return nil
		}
		printSuccess("Removed %d orphaned override(s)", removed)
		return nil
	},
}
