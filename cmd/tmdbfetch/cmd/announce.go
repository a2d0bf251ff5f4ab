package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/forbxy/metadata.tmdb.cn.optimization/internal/logger"
	"github.com/forbxy/metadata.tmdb.cn.optimization/pkg/propstore"
)

var announceCmd = &cobra.Command{
	Use:   "announce <port>",
	Short: "Publish the service port to the property store",
	Long: "Write the optimization service port into the configured property store so\n" +
		"clients on this machine can discover it. Meant for wrapping a hand-started\n" +
		"service; use a store type with cross-process visibility (bbolt).",
	Args: cobra.ExactArgs(1),
	RunE: runAnnounce,
}

func init() {
	rootCmd.AddCommand(announceCmd)
}

func runAnnounce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("tmdbfetch announce: %w", err)
	}
	if _, err := logger.Init(cfg.LogLevel); err != nil {
		return fmt.Errorf("tmdbfetch announce: init logger: %w", err)
	}
	defer logger.Close()

	port, err := strconv.Atoi(args[0])
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("tmdbfetch announce: %q is not a valid port", args[0])
	}

	store, err := propstore.NewStore(cfg.StoreType, cfg.StorePath, propstore.Options{
		EnvPrefix:   cfg.StoreEnvPrefix,
		PropertyTTL: cfg.PropertyTTL,
	})
	if err != nil {
		return fmt.Errorf("tmdbfetch announce: open property store: %w", err)
	}
	if store == nil {
		return fmt.Errorf("tmdbfetch announce: no property store configured")
	}
	defer store.Close()

	if err := store.SetProperty(cfg.ServicePortKey, strconv.Itoa(port)); err != nil {
		return fmt.Errorf("tmdbfetch announce: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s=%d\n", cfg.ServicePortKey, port)
	return nil
}
