package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qualex-labs/qualex/internal/adapters/driven/storage/sqlite"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the embedding cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show embedding cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := sqlite.NewCache(flagDataDir)
		if err != nil {
			return fmt.Errorf("opening embedding cache: %w", err)
		}
		defer cache.Close()

		n, err := cache.Len(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d cached embeddings at %s\n", n, cache.Path())
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached embeddings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := sqlite.NewCache(flagDataDir)
		if err != nil {
			return fmt.Errorf("opening embedding cache: %w", err)
		}
		defer cache.Close()

		if err := cache.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "embedding cache cleared")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
