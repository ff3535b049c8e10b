package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/service"
	"github.com/99minutos/identity-system/internal/pkg/config"
)

// NewSeedRolesCmd creates the seed-roles subcommand.
func NewSeedRolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-roles",
		Short: "Create every role record that does not exist yet",
		Long: `Provision ADMIN, CUSTOMER and VENDOR in storage. Safe to run repeatedly
and concurrently with a running service.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			log := initLogger(cfg)

			st, err := openStorage(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close(context.Background()) }()

			if err := seedRoles(cmd.Context(), st, log); err != nil {
				return err
			}
			for _, name := range domain.AllRoleNames() {
				cmd.Println("role ready:", name)
			}
			return nil
		},
	}
}

func seedRoles(ctx context.Context, st *storage, log zerolog.Logger) error {
	return service.NewRoleRegistry(st.roles, log).EnsureAll(ctx)
}
