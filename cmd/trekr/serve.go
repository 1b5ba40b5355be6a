// ABOUTME: Serve command running the bundled remote trip store
// ABOUTME: Fiber HTTP API over SQLite with graceful shutdown

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bradwbu/Trekr/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a remote trip store server",
	Long: `Run the HTTP trip store that trekr clients sync against.

Configure clients with:
  remote_url:   http://<host>:<port>
  remote_token: the same token as server.token

Examples:
  trekr serve
  trekr serve --listen :9000 --db ./trips.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen, _ := cmd.Flags().GetString("listen")
		if listen == "" {
			listen = cfg.GetServerListen()
		}
		dbPath, _ := cmd.Flags().GetString("db")
		if dbPath == "" {
			dbPath = cfg.GetServerDBPath()
		}

		trips, err := server.NewTripStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open trip store: %w", err)
		}
		defer func() { _ = trips.Close() }()

		log := logrus.New()
		app := server.New(trips, server.Config{Token: cfg.Server.Token, Log: log})

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sig
			log.Info("shutting down")
			_ = app.Shutdown()
		}()

		log.WithFields(logrus.Fields{
			"listen": listen,
			"db":     dbPath,
		}).Info("trip store listening")
		if err := app.Listen(listen); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (default from config, :8080)")
	serveCmd.Flags().String("db", "", "sqlite database path (default from config)")
	rootCmd.AddCommand(serveCmd)
}
