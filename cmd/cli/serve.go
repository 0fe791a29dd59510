package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	api "pmchat-backend/cmd/api"
	"pmchat-backend/internal/app"
	"pmchat-backend/pkg/config"

	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if servePort != "" {
			cfg.Port = servePort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		defer a.Close()
		a.Start(ctx)

		return api.NewHandler(a).Start(ctx, ":"+cfg.Port)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides PORT)")
}
