package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/botlens/botlens/internal/db"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Apply all pending schema migrations to the SQLite history database.`,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "", "migrations directory (default is internal/db/migrations)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if cfg.Database.Provider != "sqlite" && cfg.Database.Provider != "" {
		return fmt.Errorf("migrations only apply to the sqlite provider, got %s", cfg.Database.Provider)
	}

	fmt.Println("🔄 Running database migrations...")

	sqlDB, err := sql.Open("sqlite3", cfg.Database.URI)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(context.Background(), sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println("✅ Migrations completed successfully!")
	return nil
}
