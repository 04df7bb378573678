package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/casedoc"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/export"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/generate"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/knowledge"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/llm"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/progress"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/sharecode"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/storage"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a complete clinical case",
	Long: `Runs the staged generation pipeline: the core case first, then the
detail sections in parallel. A failed detail section degrades the case
instead of failing the run.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("condition", "", "clinical condition (required)")
	generateCmd.Flags().String("discipline", "", "medical discipline (required)")
	generateCmd.Flags().String("difficulty", "", "difficulty level (overrides config)")
	generateCmd.Flags().String("language", "", "output language (overrides config)")
	generateCmd.Flags().Bool("save", false, "save the case to the local store")
	generateCmd.Flags().Bool("share", false, "print a shareable case code")
	generateCmd.Flags().String("out", "", "write the case as markdown to a file")
	generateCmd.MarkFlagRequired("condition")
	generateCmd.MarkFlagRequired("discipline")
	rootCmd.AddCommand(generateCmd)
}

// generateStages counts the progress steps: the core case plus the
// four detail sections.
const generateStages = 5

func runGenerate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	condition, _ := cmd.Flags().GetString("condition")
	discipline, _ := cmd.Flags().GetString("discipline")
	difficulty, _ := cmd.Flags().GetString("difficulty")
	language, _ := cmd.Flags().GetString("language")
	save, _ := cmd.Flags().GetBool("save")
	share, _ := cmd.Flags().GetBool("share")
	outPath, _ := cmd.Flags().GetString("out")

	if difficulty == "" {
		difficulty = cfg.Difficulty
	}
	if language == "" {
		language = cfg.Language
	}

	provider, err := createProviderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}

	orch := generate.New(
		llm.NewRetryProvider(provider, cfg.MaxRetries),
		generate.WithModel(cfg.Model),
		generate.WithSectionTimeout(time.Duration(cfg.SectionTimeoutSec)*time.Second),
	)

	reporter := progress.NewReporter()
	reporter.Start(generateStages)

	var (
		mu     sync.Mutex
		step   int
		failed []generate.Section
	)
	advance := func(message string) {
		mu.Lock()
		step++
		current := step
		mu.Unlock()
		reporter.Update(current, message)
	}

	doc, err := orch.Generate(ctx, generate.Request{
		Condition:  condition,
		Discipline: discipline,
		Difficulty: casedoc.Difficulty(difficulty),
		Language:   language,
	}, generate.Events{
		CoreReady: func(d *casedoc.Document) {
			advance("core case: " + d.Title)
		},
		SectionMerged: func(section generate.Section, _ *casedoc.Document) {
			advance(string(section))
		},
		MapReady: func(_ *knowledge.Graph) {
			advance("knowledge_map")
		},
		SectionFailed: func(section generate.Section, _ error) {
			mu.Lock()
			failed = append(failed, section)
			mu.Unlock()
			advance(string(section) + " (failed)")
		},
	})
	reporter.Finish()
	if err != nil {
		return fmt.Errorf("generating case: %w", err)
	}

	database, records, err := openRecords(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	records.AddHistory(storage.HistoryEntry{
		Condition:  doc.Condition,
		Discipline: doc.Discipline,
		Difficulty: doc.Difficulty,
		At:         time.Now().UTC(),
	})
	if save {
		records.SaveCase(doc)
	}

	duration := time.Since(start)
	fmt.Println()
	fmt.Printf("Case ready: %s\n", doc.Title)
	fmt.Printf("  Condition:  %s (%s, %s)\n", doc.Condition, doc.Discipline, doc.Difficulty)
	fmt.Printf("  Duration:   %s\n", duration.Round(time.Millisecond))
	if save {
		fmt.Printf("  Saved as:   %s\n", doc.ID)
	}
	if len(failed) > 0 {
		fmt.Fprintf(os.Stderr, "\nSections that failed (%d):\n", len(failed))
		for _, s := range failed {
			fmt.Fprintf(os.Stderr, "  - %s\n", s)
		}
	}

	if outPath != "" {
		md := export.Markdown(doc, orch.Graph())
		if err := os.WriteFile(outPath, []byte(md), 0644); err != nil {
			return fmt.Errorf("writing case to %s: %w", outPath, err)
		}
		fmt.Printf("  Written to: %s\n", outPath)
	}

	if share {
		code, err := sharecode.Encode(doc)
		if err != nil {
			return fmt.Errorf("encoding share code: %w", err)
		}
		fmt.Printf("\nShare code:\n%s\n", code)
	}

	return nil
}
