package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/imgquota/bootstrap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the quota API server",
	Long: `Start the imgquota HTTP server.

The server will:
  - Load configuration from imgquota.yaml (or --config)
  - Or load configuration from IMGQUOTA_* environment variables
  - Open the usage ledger and run migrations
  - Serve /v1/consume, /v1/usage, /v1/plans and /v1/window
  - Reload the plan catalog on file change or SIGHUP

Environment variables (for Docker deployments):
  IMGQUOTA_LEDGER_BACKEND   - memory, sqlite or redis (default: memory)
  IMGQUOTA_LEDGER_DSN       - SQLite path (default: imgquota.db)
  IMGQUOTA_REDIS_ADDR       - Redis address (default: localhost:6379)
  IMGQUOTA_SERVER_PORT      - Server port (default: 8080)
  IMGQUOTA_SERVICE_KEY_HASH - bcrypt hash of the service key
  IMGQUOTA_LOG_LEVEL        - Log level: debug, info, warn, error

Examples:
  imgquota serve
  imgquota serve --config /etc/imgquota/imgquota.yaml

  # Docker (env vars only):
  IMGQUOTA_LEDGER_BACKEND=redis IMGQUOTA_REDIS_ADDR=redis:6379 imgquota serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
