package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forbxy/metadata.tmdb.cn.optimization/internal/logger"
)

var portCmd = &cobra.Command{
	Use:   "port",
	Short: "Print the resolved optimization service port",
	Long: "Resolve the optimization service port from the configured property store\n" +
		"and print it. Without a property store the fixed fallback port is printed.",
	RunE: runPort,
}

func init() {
	rootCmd.AddCommand(portCmd)
}

func runPort(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("tmdbfetch port: %w", err)
	}
	if _, err := logger.Init(cfg.LogLevel); err != nil {
		return fmt.Errorf("tmdbfetch port: init logger: %w", err)
	}
	defer logger.Close()

	client, closeStore, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("tmdbfetch port: %w", err)
	}
	defer closeStore()

	port, err := client.ServicePort()
	if err != nil {
		return fmt.Errorf("tmdbfetch port: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", port)
	return nil
}
