package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the identity CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Identity service: accounts, sessions, roles and password reset",
		Long: `identity serves the registration, login, role-guarded and password reset
HTTP API. Configuration is read from the environment.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewSeedRolesCmd())

	return cmd
}
