package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/quillhaven/sitechat/internal/chat"
	"github.com/quillhaven/sitechat/internal/embedder"
	"github.com/quillhaven/sitechat/internal/ingestion"
	"github.com/quillhaven/sitechat/internal/logging"
	"github.com/quillhaven/sitechat/internal/provider"
	"github.com/quillhaven/sitechat/internal/rag"
)

// NewAskCmd constructs the `sitechat ask` command, which answers a single
// question against the knowledge base and prints the response to stdout.
// It is the quickest way to check what the assistant would say without
// starting the HTTP server.
func NewAskCmd() *cobra.Command {
	var docsDir string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the site assistant a one-shot question",
		Long: `Ask the site assistant a single question from the command line.

The docs directory is ingested first, exactly as 'serve' would do at
startup, so the answer reflects the same retrieved context visitors get.
If the embedding backend is unavailable the question is still answered,
just without background context.

Examples:
  sitechat ask "what services do you offer?"
  sitechat ask --docs ./docs "where are you based?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			if docsDir == "" {
				docsDir = envOrDefault("DOCS_DIR", "./docs")
			}

			// Retrieval is best-effort for one-shot questions: a broken
			// embedding setup degrades to a bare question instead of failing.
			var retriever rag.Retriever
			if emb, embErr := embedder.NewFromEnv(); embErr != nil {
				fmt.Fprintf(os.Stderr, "warning: %v (answering without background context)\n", embErr)
			} else {
				pipeline, pErr := ingestion.NewPipeline(emb, &ingestion.Config{Logger: log})
				if pErr != nil {
					return fmt.Errorf("ask: %w", pErr)
				}
				kb, bErr := pipeline.Build(ctx, docsDir)
				if bErr != nil {
					return fmt.Errorf("ask: knowledge base ingestion failed: %w", bErr)
				}
				log.Debug("knowledge base ready", slog.Int("chunks", kb.Len()))
				retriever, err = rag.NewStoreRetriever(emb, kb, 0)
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
			}

			svc, err := chat.New(&chat.Config{
				ChatModel: chatModel,
				Retriever: retriever,
			})
			if err != nil {
				return fmt.Errorf("ask: failed to initialise chat service: %w", err)
			}

			answer, err := svc.Answer(ctx, "cli", args[0])
			if err != nil {
				return err //nolint:wrapcheck // CLI entry point — error goes directly to cobra
			}
			fmt.Println(answer)
			return nil
		},
	}

	cmd.Flags().StringVar(&docsDir, "docs", "", "Directory of plain-text documents to ingest (default: $DOCS_DIR or ./docs)")

	return cmd
}
