package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/qualex-labs/qualex/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage stored engine defaults",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all stored configuration values",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := file.NewConfigStore(flagConfigDir)
		if err != nil {
			return fmt.Errorf("opening config: %w", err)
		}

		keys := configKeys()
		sort.Strings(keys)
		for _, key := range keys {
			if val, ok := store.Get(key); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, val)
			}
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show one stored configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := file.NewConfigStore(flagConfigDir)
		if err != nil {
			return fmt.Errorf("opening config: %w", err)
		}

		val, ok := store.Get(args[0])
		if !ok {
			return fmt.Errorf("key %q is not set", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%v\n", val)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, raw := args[0], args[1]
		if !knownConfigKey(key) {
			return fmt.Errorf("unknown key %q (known keys: %v)", key, configKeys())
		}

		store, err := file.NewConfigStore(flagConfigDir)
		if err != nil {
			return fmt.Errorf("opening config: %w", err)
		}

		if err := store.Set(key, parseConfigValue(raw)); err != nil {
			return err
		}
		if err := store.Save(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, raw)
		return nil
	},
}

// configKeys lists the keys the engine reads.
func configKeys() []string {
	return []string{
		file.KeyEndpoint,
		file.KeyEmbeddingModel,
		file.KeyLLMModel,
		file.KeyGranularity,
		file.KeyMinClusterSize,
		file.KeyMaxThemes,
		file.KeyConfidenceThreshold,
		file.KeyDevice,
		file.KeyUseLLM,
	}
}

func knownConfigKey(key string) bool {
	for _, k := range configKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// parseConfigValue keeps TOML types natural: bools and numbers are stored
// typed, everything else as a string.
func parseConfigValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
