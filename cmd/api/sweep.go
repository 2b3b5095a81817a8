package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/mandadito/backend/internal/tasks"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one auto-confirm sweep and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.tasks.Sweep(cmd.Context(), tasks.TriggerCLI)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
