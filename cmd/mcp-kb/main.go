// mcp-kb is a knowledge base server speaking MCP over stdio.
//
// Documents added through the add_knowledge tool are chunked, embedded
// via the OpenAI API, and stored in a vector index (Postgres/pgvector or
// embedded chromem). The query_knowledge tool runs semantic search over
// the stored chunks.
//
// Configuration comes from environment variables (a .env file in the
// working directory is loaded if present):
//
//	POSTGRES_CONNECTION_STRING  Postgres connection string (pgvector store)
//	OPENAI_API_KEY              OpenAI API key
//	VECTOR_INDEX_NAME           index name (default: knowledge_base)
//	VECTOR_DIMENSION            embedding dimension (default: 1536)
//	VECTOR_STORE                pgvector or chromem (default: pgvector)
//	EMBEDDING_MODEL             embedding model (default: text-embedding-3-small)
//
// All logs go to stderr; stdout carries the MCP protocol.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alejunco/mcp-kb/internal/config"
	"github.com/alejunco/mcp-kb/internal/embeddings"
	"github.com/alejunco/mcp-kb/internal/knowledge"
	"github.com/alejunco/mcp-kb/internal/logging"
	"github.com/alejunco/mcp-kb/internal/mcp"
	"github.com/alejunco/mcp-kb/internal/vectorstore"
)

// Version information (set via ldflags during build)
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mcp-kb",
	Short: "Knowledge base MCP server",
	Long: `mcp-kb serves a retrieval knowledge base over the Model Context Protocol.

It reads MCP requests on stdin and writes responses on stdout, so it is
meant to be launched by an MCP client, not interactively. Configuration
is taken from environment variables or a .env file.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	// Best effort: absence of a .env file is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := vectorstore.New(vectorstore.Config{
		Provider: cfg.Vector.Store,
		Postgres: vectorstore.PgVectorConfig{
			ConnectionString: cfg.Postgres.ConnectionString.Value(),
		},
		Chromem: vectorstore.ChromemConfig{
			Path:      cfg.Chromem.Path,
			Compress:  cfg.Chromem.Compress,
			Dimension: cfg.Vector.Dimension,
		},
	}, logger.Named("vectorstore"))
	if err != nil {
		logger.Error("failed to initialize vector store", zap.Error(err))
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing vector store", zap.Error(err))
		}
	}()

	embedder, err := embeddings.NewService(embeddings.Config{
		APIKey:    cfg.OpenAI.APIKey.Value(),
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.OpenAI.BaseURL,
		Dimension: cfg.Vector.Dimension,
	}, logger.Named("embeddings"))
	if err != nil {
		logger.Error("failed to initialize embeddings", zap.Error(err))
		return err
	}

	kb, err := knowledge.NewService(store, embedder, knowledge.Config{
		IndexName: cfg.Vector.IndexName,
		Dimension: cfg.Vector.Dimension,
	}, logger.Named("knowledge"))
	if err != nil {
		logger.Error("failed to initialize knowledge service", zap.Error(err))
		return err
	}
	if err := kb.Init(ctx); err != nil {
		logger.Error("failed to initialize index", zap.Error(err))
		return err
	}

	server, err := mcp.NewServer(kb, logger.Named("mcp"))
	if err != nil {
		logger.Error("failed to create mcp server", zap.Error(err))
		return err
	}

	// Startup notice on stderr; stdout is the protocol stream.
	fmt.Fprintf(os.Stderr, "mcp-kb started (index %q, store %s)\n", cfg.Vector.IndexName, cfg.Vector.Store)

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server exited", zap.Error(err))
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
