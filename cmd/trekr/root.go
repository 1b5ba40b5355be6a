// ABOUTME: Root Cobra command and global wiring
// ABOUTME: Loads config and opens the local trip cache for subcommands

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bradwbu/Trekr/internal/cache"
	"github.com/bradwbu/Trekr/internal/config"
	"github.com/bradwbu/Trekr/internal/reconcile"
	"github.com/bradwbu/Trekr/internal/remote"
)

var (
	cfg   *config.Config
	store *cache.Store
)

var rootCmd = &cobra.Command{
	Use:   "trekr",
	Short: "Local-first trip tracking",
	Long: `
████████╗██████╗ ███████╗██╗  ██╗██████╗
╚══██╔══╝██╔══██╗██╔════╝██║ ██╔╝██╔══██╗
   ██║   ██████╔╝█████╗  █████╔╝ ██████╔╝
   ██║   ██╔══██╗██╔══╝  ██╔═██╗ ██╔══██╗
   ██║   ██║  ██║███████╗██║  ██╗██║  ██║
   ╚═╝   ╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚═╝  ╚═╝

      Track trips from raw position samples

Examples:
  trekr track < samples.jsonl
  trekr list
  trekr export 4f3a2b1c --format gpx --output ride.gpx
  trekr sync`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		store, err = cache.Open(cfg.GetDataDir())
		if err != nil {
			return fmt.Errorf("failed to open trip cache: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store != nil {
			return store.Close()
		}
		return nil
	},
}

// newRemoteClient builds the remote store client, or nil when sync is not
// configured.
func newRemoteClient() *remote.Client {
	if cfg.RemoteURL == "" {
		return nil
	}
	return remote.NewClient(remote.Config{
		BaseURL: cfg.RemoteURL,
		Tokens:  remote.StaticToken(cfg.RemoteToken),
	})
}

// newReconciler builds a reconciler over the open cache, or an error when no
// remote store is configured.
func newReconciler() (*reconcile.Reconciler, error) {
	client := newRemoteClient()
	if client == nil {
		return nil, fmt.Errorf("no remote store configured; set remote_url in %s", config.GetConfigPath())
	}
	return reconcile.New(store, client, reconcile.Config{OwnerID: cfg.GetOwnerID()}), nil
}
