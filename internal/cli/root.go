package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/botlens/botlens/internal/account"
	"github.com/botlens/botlens/internal/auth"
	"github.com/botlens/botlens/internal/config"
	"github.com/botlens/botlens/internal/db"
	"github.com/botlens/botlens/internal/db/mongodb"
	"github.com/botlens/botlens/internal/db/sqlite"
	"github.com/botlens/botlens/internal/logger"
	"github.com/botlens/botlens/internal/models"
	"github.com/botlens/botlens/internal/scheduler"
	"github.com/botlens/botlens/internal/search"
	"github.com/botlens/botlens/internal/trending"
)

var (
	cfgFile    string
	cfg        *config.Config
	store      db.HistoryStore
	authMgr    *auth.Manager
	accounts   *account.Client
	aggregator *trending.Aggregator
	sched      *scheduler.Scheduler
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "botlens",
	Short: "Trending tracker for chat bots",
	Long: `Botlens aggregates the public trending list of a bot platform,
filters it interactively by tags and creators, and captures a daily
snapshot of your own bots' totals and ranks into a local history store.

Track where your bots sit in the global top list, how their message
totals grow day over day, and how many of them stay inside the top-N.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip init for the init command itself
		if cmd.Name() == "init" {
			return nil
		}

		// Load configuration
		if cfgFile == "" {
			cfgFile = config.GetConfigPath()
		}

		if !config.Exists(cfgFile) {
			return fmt.Errorf("configuration file not found. Run 'botlens init' to create one")
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger.SetLevel(logger.ParseLogLevel(cfg.LogLevel))

		// Initialize history store
		store, err = newStore(cfg)
		if err != nil {
			return err
		}

		if err := store.Connect(context.Background()); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		// Initialize collaborators
		probeURL := cfg.Account.BaseURL + "/v2/users/characters?switch=T1"
		authMgr = auth.NewManager(cfg.AuthFile, cfg.Account.TokenURL, probeURL)
		accounts = account.New(cfg.Account, authMgr)

		searchClient := search.New(cfg.Search)
		aggregator = trending.NewAggregator(searchClient, cfg.Search, cfg.AvatarCDN)

		// Initialize scheduler
		sched = scheduler.New(store, accounts, aggregator, authMgr, cfg.Snapshot, cfg.Search.BaseFilter)

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store != nil {
			return store.Disconnect(context.Background())
		}
		return nil
	},
}

func newStore(cfg *config.Config) (db.HistoryStore, error) {
	dbConfig := &models.Config{
		Provider: cfg.Database.Provider,
		URI:      cfg.Database.URI,
		Database: cfg.Database.Database,
		Options:  cfg.Database.Options,
	}

	switch dbConfig.Provider {
	case "mongodb":
		return mongodb.New(dbConfig, cfg.Snapshot.Thresholds)
	case "sqlite", "":
		return sqlite.New(dbConfig, cfg.Snapshot.Thresholds)
	default:
		return nil, fmt.Errorf("unsupported database provider: %s", dbConfig.Provider)
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.botlens/config.yaml)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(trendingCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(migrateCmd)
}
