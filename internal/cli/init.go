package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/botlens/botlens/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize botlens configuration",
	Long:  `Interactive wizard to set up botlens configuration including the search index, account API, and history database.`,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("🚀 Welcome to Botlens - Trending Tracker Setup")
	fmt.Println("==============================================")
	fmt.Println()

	// Check if config already exists
	configPath := config.GetConfigPath()
	if config.Exists(configPath) {
		fmt.Printf("Configuration file already exists at: %s\n", configPath)
		confirmed, err := promptYesNo(reader, "Do you want to overwrite it? (y/N): ")
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Setup cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()

	// Search index configuration
	fmt.Println("\n🔍 Search Index Configuration")
	fmt.Println("------------------------------")

	host, err := promptOptional(reader, fmt.Sprintf("Search host [%s]: ", cfg.Search.Host), cfg.Search.Host)
	if err != nil {
		return err
	}
	cfg.Search.Host = host

	apiKey, err := promptRequired(reader, "Search API key: ")
	if err != nil {
		return err
	}
	cfg.Search.APIKey = apiKey

	collection, err := promptOptional(reader, fmt.Sprintf("Collection [%s]: ", cfg.Search.Collection), cfg.Search.Collection)
	if err != nil {
		return err
	}
	cfg.Search.Collection = collection

	capacity, err := promptOptional(reader, fmt.Sprintf("Trending set capacity [%d]: ", cfg.Search.Capacity), strconv.Itoa(cfg.Search.Capacity))
	if err != nil {
		return err
	}
	if n, convErr := strconv.Atoi(capacity); convErr == nil && n > 0 {
		cfg.Search.Capacity = n
	}

	// Database configuration
	fmt.Println("\n📊 Database Configuration")
	fmt.Println("--------------------------")

	provider, err := promptOptional(reader, "Database provider (sqlite/mongodb) [sqlite]: ", "sqlite")
	if err != nil {
		return err
	}
	cfg.Database.Provider = provider

	switch provider {
	case "sqlite":
		uri, err := promptOptional(reader, "SQLite file path [botlens.db]: ", "botlens.db")
		if err != nil {
			return err
		}
		cfg.Database.URI = uri
	case "mongodb":
		uri, err := promptOptional(reader, "Database URI [mongodb://localhost:27017]: ", "mongodb://localhost:27017")
		if err != nil {
			return err
		}
		cfg.Database.URI = uri

		dbName, err := promptOptional(reader, "Database name [botlens]: ", "botlens")
		if err != nil {
			return err
		}
		cfg.Database.Database = dbName
	default:
		return fmt.Errorf("unsupported database provider: %s", provider)
	}

	// Test database connection
	fmt.Println("\n🔌 Testing database connection...")
	testDB, dbErr := newStore(cfg)
	if dbErr != nil {
		return fmt.Errorf("failed to create database: %w", dbErr)
	}

	ctx := context.Background()
	if err := testDB.Connect(ctx); err != nil {
		fmt.Printf("❌ Failed to connect to database: %v\n", err)
		fmt.Println("\nPlease check your database configuration and try again.")
		return err
	}
	defer testDB.Disconnect(ctx)

	if err := testDB.Ping(ctx); err != nil {
		fmt.Printf("❌ Failed to ping database: %v\n", err)
		return err
	}

	fmt.Println("✅ Database connection successful!")

	// Save configuration
	fmt.Println("\n💾 Saving configuration...")
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("✅ Configuration saved to: %s\n", configPath)

	// Summary
	fmt.Println("\n📋 Configuration Summary")
	fmt.Println("========================")
	fmt.Printf("Search host: %s\n", cfg.Search.Host)
	fmt.Printf("Collection: %s\n", cfg.Search.Collection)
	fmt.Printf("Capacity: %d\n", cfg.Search.Capacity)
	fmt.Printf("Database: %s\n", cfg.Database.Provider)
	fmt.Printf("URI: %s\n", cfg.Database.URI)
	fmt.Println()
	fmt.Println("🎉 Setup complete! You can now use botlens.")
	fmt.Println()
	fmt.Printf("ℹ️  Place your login credentials at: %s\n", cfg.AuthFile)
	fmt.Println("   Snapshot capture pauses automatically while they are invalid.")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Browse the trending list: botlens trending")
	fmt.Println("  2. Capture a snapshot now: botlens snapshot")
	fmt.Println("  3. Run the API and scheduler: botlens serve")

	return nil
}
