package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Alijeyrad/mindcare_backend/config"
)

// Databases lists the databases the server needs: server.databases when
// set, otherwise the application and Casbin databases.
func Databases(cfg *config.Config) []string {
	if len(cfg.Server.Databases) > 0 {
		return cfg.Server.Databases
	}
	var names []string
	seen := map[string]bool{}
	for _, n := range []string{cfg.Database.DBName, cfg.CasbinDatabase.DBName} {
		if n != "" && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	return names
}

// InitializeDatabases connects to the "postgres" maintenance database with
// the application credentials and creates every missing database.
func InitializeDatabases(ctx context.Context, cfg *config.Config) error {
	names := Databases(cfg)
	if len(names) == 0 {
		return fmt.Errorf("no database names configured")
	}

	admin := FromCentralConfig(cfg.Database)
	admin.DBName = "postgres"
	conn, err := open(admin)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, name := range names {
		created, err := createIfMissing(ctx, conn, name)
		if err != nil {
			return fmt.Errorf("database %q: %w", name, err)
		}
		slog.InfoContext(ctx, "database: ensured", "name", name, "created", created)
	}
	return nil
}

func createIfMissing(ctx context.Context, conn *sql.DB, name string) (bool, error) {
	var exists bool
	err := conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup: %w", err)
	}
	if exists {
		return false, nil
	}
	// CREATE DATABASE takes no bind parameters.
	if _, err := conn.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return false, fmt.Errorf("create: %w", err)
	}
	return true, nil
}
