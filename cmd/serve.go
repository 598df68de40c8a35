package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openlegis/billchat/internal/bills"
	"github.com/openlegis/billchat/internal/chat"
	"github.com/openlegis/billchat/internal/chunker"
	"github.com/openlegis/billchat/internal/congress"
	"github.com/openlegis/billchat/internal/indexer"
	"github.com/openlegis/billchat/internal/ingest"
	"github.com/openlegis/billchat/internal/server"
	"github.com/openlegis/billchat/internal/vectordb"
)

var (
	servePort int
	noPoll    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the billchat API server",
	Long: `Starts the billchat HTTP server with the chat, summary and bill
endpoints, and a background poller that ingests newly published bills.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort > 0 {
			cfg.Port = servePort
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		billStore := bills.NewStore(database)
		sessions := chat.NewSessionStore(database)

		apiClient, err := createCongressClient(cfg)
		if err != nil {
			return err
		}
		fetcher := congress.NewTextFetcher(0)

		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		vectors, err := vectordb.NewChromemStore(embedder)
		if err != nil {
			return fmt.Errorf("creating vector store: %w", err)
		}
		vectorDir := filepath.Join(cfg.DataDir, "vectordb")
		if err := os.MkdirAll(vectorDir, 0o755); err != nil {
			return fmt.Errorf("creating vector directory: %w", err)
		}
		if err := vectors.Load(cmd.Context(), vectorDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load vector store from %s: %v\n", vectorDir, err)
		}

		splitter := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
		idx := indexer.New(billStore, fetcher, splitter, embedder, vectors,
			int64(cfg.MaxConcurrentIndexRuns))
		idx.SetPersistDir(vectorDir)

		provider, err := createLLMProviderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating LLM provider: %w", err)
		}

		orchestrator := chat.NewOrchestrator(vectors, idx, billStore, provider,
			chat.NewTokenCounter(), cfg.Chat.TopK, cfg.Chat.MaxContextTokens)
		summarizer := chat.NewSummarizer(billStore, fetcher, provider)

		srv := server.New(server.Config{
			Port:     cfg.Port,
			DataDir:  cfg.DataDir,
			AllowAll: cfg.AllowAllOrigins,
		}, server.Deps{
			Store:     billStore,
			Sessions:  sessions,
			Chat:      orchestrator,
			Summaries: summarizer,
			Indexer:   idx,
			Fetcher:   fetcher,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !noPoll {
			since, err := cfg.Since()
			if err != nil {
				return fmt.Errorf("parsing ingest since date: %w", err)
			}
			coordinator := ingest.New(apiClient, billStore, since, cfg.PollInterval())
			go coordinator.Run(ctx)
		}

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "billchat v%s starting on port %d\n", Version, cfg.Port)
		fmt.Fprintf(os.Stderr, "  Data: %s\n", cfg.DataDir)
		fmt.Fprintf(os.Stderr, "  Documents indexed: %d\n", vectors.Count())

		err = srv.Start()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}

		// Snapshot before the process exits; Start has returned, so no
		// index runs are writing anymore.
		if perr := vectors.Persist(context.Background(), vectorDir); perr != nil {
			fmt.Fprintf(os.Stderr, "Warning: persisting vector store: %v\n", perr)
		}
		return err
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&noPoll, "no-poll", false, "Disable the background bill poller")
	rootCmd.AddCommand(serveCmd)
}
