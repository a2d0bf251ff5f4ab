// Package cmd implements the tmdbfetch CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	logLevel     string
	storeType    string
	storePath    string
	profilesFile string
)

// Build info set from main.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// SetVersionInfo sets the version info from build-time ldflags.
func SetVersionInfo(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	rootCmd.Version = buildVersion
	rootCmd.SetVersionTemplate(fmt.Sprintf("tmdbfetch version {{.Version}}\ncommit: %s\nbuilt: %s\n", buildCommit, buildDate))
}

var rootCmd = &cobra.Command{
	Use:   "tmdbfetch",
	Short: "tmdbfetch talks to the local TMDb optimization service",
	Long: "tmdbfetch is a companion tool for the metadata.tmdb.cn.optimization scraper.\n" +
		"It discovers the scraper's local optimization service, forwards API requests\n" +
		"through it as JSON over a plain TCP socket, and falls back to direct HTTP\n" +
		"when the service cannot answer.",
	// No Run function — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&storeType, "store", "", "property store type: none, env, bbolt (overrides config)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store-path", "", "bbolt property store path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&profilesFile, "profiles", "", "API profiles file (overrides config)")

	rootCmd.Version = buildVersion
	rootCmd.SetVersionTemplate(fmt.Sprintf("tmdbfetch version {{.Version}}\ncommit: %s\nbuilt: %s\n", buildCommit, buildDate))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
