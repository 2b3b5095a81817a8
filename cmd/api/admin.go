package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var adminFlags struct {
	name     string
	email    string
	password string
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminFlags.email == "" || adminFlags.password == "" {
			return errors.New("--email and --password are required")
		}
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.migrate(cmd.Context()); err != nil {
			return err
		}

		admin, err := a.auth.CreateAdmin(cmd.Context(), adminFlags.name, adminFlags.email, adminFlags.password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "admin %d created for %s\n", admin.ID, admin.Email)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminFlags.name, "name", "Admin", "display name")
	createAdminCmd.Flags().StringVar(&adminFlags.email, "email", "", "login email")
	createAdminCmd.Flags().StringVar(&adminFlags.password, "password", "", "login password")
	rootCmd.AddCommand(createAdminCmd)
}
