package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/qualex-labs/qualex/internal/adapters/driven/config/file"
	embollama "github.com/qualex-labs/qualex/internal/adapters/driven/embedding/ollama"
	llmollama "github.com/qualex-labs/qualex/internal/adapters/driven/llm/ollama"
	"github.com/qualex-labs/qualex/internal/adapters/driven/storage/sqlite"
	"github.com/qualex-labs/qualex/internal/core/domain"
	"github.com/qualex-labs/qualex/internal/core/services"
)

var (
	analyzeGranularity string
	analyzeModel       string
	analyzeLLMModel    string
	analyzeNoLLM       bool
	analyzeMinCluster  int
	analyzeMaxThemes   int
	analyzeThreshold   float64
	analyzeDevice      string
	analyzeJSON        bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [files...]",
	Short: "Detect themes across plain-text sources",
	Long: `Runs the auto-coding pipeline over the given text files and prints
the proposed coding categories. Interrupting with Ctrl-C cancels the run at
the next stage or batch boundary; embeddings computed so far stay cached.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeGranularity, "granularity", "g", "paragraph", "segmentation mode: paragraph, sentence, window")
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "embedding model identifier")
	analyzeCmd.Flags().StringVar(&analyzeLLMModel, "llm-model", "", "labeling model name")
	analyzeCmd.Flags().BoolVar(&analyzeNoLLM, "no-llm", false, "label by keyword extraction only")
	analyzeCmd.Flags().IntVar(&analyzeMinCluster, "min-cluster-size", 0, "minimum segments per theme")
	analyzeCmd.Flags().IntVar(&analyzeMaxThemes, "max-themes", 0, "maximum number of themes")
	analyzeCmd.Flags().Float64VarP(&analyzeThreshold, "threshold", "t", -1, "confidence threshold in [0,1]")
	analyzeCmd.Flags().StringVar(&analyzeDevice, "device", "", "compute preference: auto, gpu, cpu")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output proposals as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, endpoint, err := buildConfig()
	if err != nil {
		return err
	}

	sources := make([]domain.Source, 0, len(args))
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		sources = append(sources, domain.Source{
			ID:      path,
			Name:    filepath.Base(path),
			Content: string(content),
		})
	}

	cache, err := sqlite.NewCache(flagDataDir)
	if err != nil {
		return fmt.Errorf("opening embedding cache: %w", err)
	}
	defer cache.Close()

	embedSvc := embollama.NewEmbeddingService(embollama.Config{
		BaseURL: endpoint,
		Model:   cfg.EmbeddingModel,
		Device:  cfg.Device,
	})
	llmSvc := llmollama.NewLLMService(llmollama.LLMConfig{
		BaseURL: endpoint,
		Model:   cfg.LLMModel,
	})
	defer embedSvc.Close()
	defer llmSvc.Close()

	coder := services.NewAutoCoder(embedSvc, cache, llmSvc)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	lastStage := domain.StageIdle
	result, err := coder.Run(ctx, sources, cfg, func(stage domain.Stage, fraction float64) {
		if stage != lastStage {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s...\n", stage)
			lastStage = stage
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "cancelled")
			return nil
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeJSON {
		return outputResultJSON(cmd, result)
	}
	return outputResultTable(cmd, result)
}

// buildConfig merges stored defaults with command-line overrides.
func buildConfig() (domain.AutoCodingConfig, string, error) {
	store, err := file.NewConfigStore(flagConfigDir)
	if err != nil {
		return domain.AutoCodingConfig{}, "", fmt.Errorf("opening config: %w", err)
	}

	cfg := domain.DefaultConfig()
	if v := store.GetString(file.KeyEmbeddingModel); v != "" {
		cfg.EmbeddingModel = v
	}
	if v := store.GetString(file.KeyLLMModel); v != "" {
		cfg.LLMModel = v
	}
	if v := store.GetString(file.KeyGranularity); v != "" {
		cfg.Granularity = domain.Granularity(v)
	}
	if v := store.GetInt(file.KeyMinClusterSize); v > 0 {
		cfg.MinClusterSize = v
	}
	if v := store.GetInt(file.KeyMaxThemes); v > 0 {
		cfg.MaxThemes = v
	}
	if v, ok := store.Get(file.KeyConfidenceThreshold); ok {
		if f, isFloat := v.(float64); isFloat {
			cfg.ConfidenceThreshold = f
		}
	}
	if v := store.GetString(file.KeyDevice); v != "" {
		cfg.Device = domain.DevicePreference(v)
	}
	if _, ok := store.Get(file.KeyUseLLM); ok {
		cfg.UseLLM = store.GetBool(file.KeyUseLLM)
	}

	endpoint := store.GetString(file.KeyEndpoint)

	// Flags override stored defaults.
	if analyzeGranularity != "" {
		cfg.Granularity = domain.Granularity(analyzeGranularity)
	}
	if analyzeModel != "" {
		cfg.EmbeddingModel = analyzeModel
	}
	if analyzeLLMModel != "" {
		cfg.LLMModel = analyzeLLMModel
	}
	if analyzeNoLLM {
		cfg.UseLLM = false
	}
	if analyzeMinCluster > 0 {
		cfg.MinClusterSize = analyzeMinCluster
	}
	if analyzeMaxThemes > 0 {
		cfg.MaxThemes = analyzeMaxThemes
	}
	if analyzeThreshold >= 0 {
		cfg.ConfidenceThreshold = analyzeThreshold
	}
	if analyzeDevice != "" {
		cfg.Device = domain.DevicePreference(analyzeDevice)
	}
	if flagEndpoint != "" {
		endpoint = flagEndpoint
	}

	return cfg, endpoint, nil
}

func outputResultJSON(cmd *cobra.Command, result *domain.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func outputResultTable(cmd *cobra.Command, result *domain.Result) error {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%d themes from %d segments (%d clustered, %d noise) in %s\n",
		len(result.Proposals), result.TotalSegments,
		result.ClusteredSegments, result.NoiseSegments,
		result.Elapsed.Round(10*time.Millisecond))
	if result.Status == domain.StatusPartial {
		fmt.Fprintln(out, "note: labeling service unreachable for some themes; keyword labels used")
	}
	fmt.Fprintln(out)

	for i, p := range result.Proposals {
		fmt.Fprintf(out, "%d. %s  [%s, %s confidence %.2f, %d segments]\n",
			i+1, p.Name, p.Strategy, p.ConfidenceLevel(), p.Confidence, p.SegmentCount())
		if p.Description != "" {
			fmt.Fprintf(out, "   %s\n", p.Description)
		}
		for _, seg := range p.Segments {
			fmt.Fprintf(out, "   - %s: %q\n", seg.SourceID, seg.Preview())
		}
		fmt.Fprintln(out)
	}
	return nil
}
