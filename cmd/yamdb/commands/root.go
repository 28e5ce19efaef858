package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/yamdb/internal/config"
	sqliteRepo "github.com/sakif/yamdb/internal/repository/sqlite"
)

var (
	// Global flags
	dbPath string
)

var rootCmd = &cobra.Command{
	Use:   "yamdb",
	Short: "YaMDb - reviews and ratings for films, books and music",
	Long: `YaMDb collects user reviews of titles (films, books, songs...) and
computes each title's rating from them.

Configuration is read from the environment, or from a .env file in the
working directory: PORT, DB_PATH, JWT_SECRET, TOKEN_TTL, LOG_LEVEL,
LOG_FORMAT, DATA_DIR.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file (overrides DB_PATH)")
}

// setup loads configuration, applies global flags and builds the logger.
func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, cfg.NewLogger(os.Stdout), nil
}

// openDB creates the database directory if needed and opens the database.
func openDB(path string) (*sqliteRepo.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}
