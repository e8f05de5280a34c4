package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	llmollama "github.com/qualex-labs/qualex/internal/adapters/driven/llm/ollama"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models installed on the Ollama server",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := llmollama.NewLLMService(llmollama.LLMConfig{BaseURL: flagEndpoint})
		defer svc.Close()

		models, err := svc.ListModels(cmd.Context())
		if err != nil {
			return fmt.Errorf("labeling service unreachable (is Ollama running?): %w", err)
		}

		if len(models) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Ollama is running but no models are installed")
			return nil
		}
		for _, m := range models {
			fmt.Fprintln(cmd.OutOrStdout(), m)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
