// Package cli provides the cobra command surface for the qualex engine.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/qualex-labs/qualex/internal/logger"
)

var (
	flagVerbose   bool
	flagConfigDir string
	flagDataDir   string
	flagEndpoint  string
)

var rootCmd = &cobra.Command{
	Use:   "qualex",
	Short: "Automatic theme detection for qualitative research text",
	Long: `Qualex analyses plain-text research sources and proposes coding
categories. Sources are segmented, embedded with a local model, clustered
by topic density, and each cluster is named by a local LLM with a keyword
fallback.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(flagVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (default ~/.qualex)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.qualex/data)")
	rootCmd.PersistentFlags().StringVar(&flagEndpoint, "endpoint", "", "Ollama endpoint (default http://localhost:11434)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
