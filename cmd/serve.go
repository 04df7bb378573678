package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/generate"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/llm"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/server"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/snippets"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and discussion websocket server",
	Long: `Serves case generation, saved cases, snippet search, share codes and
streaming discussions for a browser client.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")
	serveCmd.Flags().Bool("allow-all-origins", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.ListenAddr
	}
	allowAll, _ := cmd.Flags().GetBool("allow-all-origins")

	database, records, err := openRecords(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	provider, err := createProviderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}

	orch := generate.New(
		llm.NewRetryProvider(provider, cfg.MaxRetries),
		generate.WithModel(cfg.Model),
		generate.WithSectionTimeout(time.Duration(cfg.SectionTimeoutSec)*time.Second),
	)

	// Snippet search is best-effort: without an embedder the routes
	// fall back to the plain persisted list.
	var index *snippets.Index
	if embedder, err := createEmbedderFromConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: snippet search disabled: %v\n", err)
	} else {
		index, err = snippets.NewIndex(embedder)
		if err != nil {
			return fmt.Errorf("creating snippet index: %w", err)
		}
		if err := index.Rebuild(context.Background(), records.Snippets()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not index saved snippets: %v\n", err)
		}
	}

	trialLimit := 0
	if cfg.Trial.Enabled {
		trialLimit = cfg.Trial.Limit
	}

	srv := server.New(server.Config{
		Addr:       addr,
		AllowAll:   allowAll,
		TrialLimit: trialLimit,
	}, orch, records, index, provider, cfg.Model)

	return srv.Start()
}
