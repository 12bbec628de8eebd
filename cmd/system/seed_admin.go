package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/mindcare_backend/internal/service/caller"
	"github.com/Alijeyrad/mindcare_backend/internal/service/user"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
	"github.com/Alijeyrad/mindcare_backend/pkg/authorize"
	"github.com/Alijeyrad/mindcare_backend/pkg/database"
	"github.com/Alijeyrad/mindcare_backend/pkg/util/password"
)

func NewSeedAdminCommand() *cobra.Command {
	var name, lastName, email, pw string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first admin account",
		Long: `Create an admin account directly in the database. Run "system migrate"
first so the tables and RBAC policies exist. If --password is empty a
random one is generated and printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			drv, err := database.NewDriver(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			client := store.NewClient(drv, nil)
			defer client.Close()

			acfg := authorize.FromCentralConfig(cfg.Authorization)
			enforcer, cleanup, err := authorize.NewEnforcer(acfg, database.NewDSN(cfg.CasbinDatabase))
			if err != nil {
				return fmt.Errorf("failed to create enforcer: %w", err)
			}
			defer cleanup(context.Background())

			authz, err := authorize.NewAuthorization(enforcer, acfg)
			if err != nil {
				return fmt.Errorf("failed to create authorization: %w", err)
			}

			generated := pw == ""
			if generated {
				pw = password.Generate(20)
			}

			svc := user.New(client.Users, authz, nil, user.Config{
				PhoneRegion:    cfg.SMS.DefaultRegion,
				PasswordParams: password.FromCentralConfig(cfg.Password),
			})
			u, err := svc.Create(ctx, caller.Caller{Role: store.RoleAdmin}, user.CreateRequest{
				Name:     name,
				LastName: lastName,
				Email:    email,
				Password: pw,
				Role:     store.RoleAdmin,
			})
			if errors.Is(err, user.ErrEmailAlreadyExists) {
				return fmt.Errorf("an account with email %q already exists", email)
			}
			if err != nil {
				return fmt.Errorf("failed to create admin: %w", err)
			}

			fmt.Printf("Admin %s created (id=%s)\n", u.Email, u.ID)
			if generated {
				fmt.Printf("Generated password: %s\n", pw)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Admin", "First name")
	cmd.Flags().StringVar(&lastName, "last-name", "User", "Last name")
	cmd.Flags().StringVar(&email, "email", "", "Login email (required)")
	cmd.Flags().StringVar(&pw, "password", "", "Password; generated when empty")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
