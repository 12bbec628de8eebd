package system

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/mindcare_backend/config"
)

func NewSystemCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "Database bootstrap, migrations and tooling",
	}

	cmd.AddCommand(NewInitCommand())
	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewSeedAdminCommand())
	cmd.AddCommand(NewGenDocsCommand())

	return cmd
}

// loadConfig reads the file named by the root --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return cfg, nil
}
