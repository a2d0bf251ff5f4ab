package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/forbxy/metadata.tmdb.cn.optimization/internal/logger"
	"github.com/forbxy/metadata.tmdb.cn.optimization/pkg/apiclient"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Send a batch of requests in one service exchange",
	Long: "Send every request in a YAML or JSON batch file through the optimization\n" +
		"service in a single socket exchange and print the per-request results in\n" +
		"order.",
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

// batchFile mirrors the request envelope the service reads off the socket.
type batchFile struct {
	Requests    []apiclient.Request `json:"requests" yaml:"requests"`
	DNSSettings map[string]string   `json:"dns_settings" yaml:"dns_settings"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("tmdbfetch batch: %w", err)
	}
	if _, err := logger.Init(cfg.LogLevel); err != nil {
		return fmt.Errorf("tmdbfetch batch: init logger: %w", err)
	}
	defer logger.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("tmdbfetch batch: read %s: %w", args[0], err)
	}
	bf, err := parseBatchFile(data, filepath.Ext(args[0]))
	if err != nil {
		return fmt.Errorf("tmdbfetch batch: %w", err)
	}
	if len(bf.Requests) == 0 {
		return fmt.Errorf("tmdbfetch batch: %s has no requests", args[0])
	}

	client, closeStore, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("tmdbfetch batch: %w", err)
	}
	defer closeStore()

	results, err := client.SendBatch(context.Background(), bf.Requests, bf.DNSSettings)
	if err != nil {
		return fmt.Errorf("tmdbfetch batch: %w", err)
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("tmdbfetch batch: encode results: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func parseBatchFile(data []byte, ext string) (batchFile, error) {
	var bf batchFile
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &bf); err != nil {
			return batchFile{}, fmt.Errorf("parse batch yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &bf); err != nil {
			return batchFile{}, fmt.Errorf("parse batch json: %w", err)
		}
	default:
		return batchFile{}, fmt.Errorf("unsupported batch file extension %q", ext)
	}
	return bf, nil
}
