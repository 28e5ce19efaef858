package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/yamdb/internal/importer"
)

var csvDir string

var loadcsvCmd = &cobra.Command{
	Use:   "loadcsv",
	Short: "Import the CSV data set into the database",
	Long: `Load users, categories, genres, titles, genre links, reviews and
comments from CSV files into the database in one transaction.

Files that are missing are skipped. Any bad row aborts the whole import.

Examples:
  yamdb loadcsv
  yamdb loadcsv --dir ./static/data --db data/yamdb.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoadCSV(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(loadcsvCmd)

	loadcsvCmd.Flags().StringVar(&csvDir, "dir", "", "Directory holding the CSV files (overrides DATA_DIR)")
}

func runLoadCSV(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	dir := cfg.DataDir
	if csvDir != "" {
		dir = csvDir
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory %s is not a directory", dir)
	}

	db, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := importer.New(db, logger).Load(ctx, os.DirFS(dir))
	if err != nil {
		return err
	}

	total := 0
	for _, r := range results {
		fmt.Printf("%-12s %-16s %6d rows\n", r.Table, r.File, r.Rows)
		total += r.Rows
	}
	fmt.Printf("Successfully loaded %d rows from %s\n", total, dir)
	return nil
}
