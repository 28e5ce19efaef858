package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/yamdb/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API under /api/v1 and serve until interrupted.

Examples:
  yamdb serve
  yamdb serve --port 9000 --db /var/lib/yamdb/yamdb.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides PORT)")
}

func runServe() error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.RequireSecret(); err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	db, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	srv, err := server.New(server.Config{
		Port:      cfg.Port,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
	}, db, logger)
	if err != nil {
		return err
	}

	logger.Info("database ready", slog.String("path", cfg.DBPath))
	return srv.Start()
}
