package system

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/mindcare_backend/pkg/database"
)

func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the application and Casbin databases if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			fmt.Println("Initializing databases...")
			err = database.InitializeDatabases(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize databases: %w", err)
			}
			fmt.Println("Databases Initialized successfully.")
			return nil
		},
	}

	return cmd
}
