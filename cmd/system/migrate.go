package system

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/mindcare_backend/internal/store"
	"github.com/Alijeyrad/mindcare_backend/pkg/authorize"
	"github.com/Alijeyrad/mindcare_backend/pkg/database"
)

func NewMigrateCommand() *cobra.Command {
	var safe bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and seed RBAC policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
			if timeout <= 0 {
				timeout = time.Minute
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			// client db
			fmt.Println("Running Migrations For Client DB.")
			drv, err := database.NewDriver(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			client := store.NewClient(drv, nil)
			defer client.Close()

			if err := client.Migrate(ctx, safe); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			// casbin db
			fmt.Println("Running Migrations For Casbin DB.")

			acfg := authorize.FromCentralConfig(cfg.Authorization)
			enforcer, cleanup, err := authorize.NewEnforcer(acfg, database.NewDSN(cfg.CasbinDatabase))
			if err != nil {
				return fmt.Errorf("failed to create enforcer: %w", err)
			}
			defer cleanup(context.Background())

			auth, err := authorize.NewAuthorization(enforcer, acfg)
			if err != nil {
				return fmt.Errorf("failed to create authorization: %w", err)
			}

			slog.Info("Seeding Casbin policies...")
			if err := authorize.SeedDefaultPolicies(ctx, auth); err != nil {
				return fmt.Errorf("failed to seed policies: %w", err)
			}

			fmt.Println("Migrations executed successfully.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&safe, "safe", true, "Refuse to drop columns or indexes")

	return cmd
}
