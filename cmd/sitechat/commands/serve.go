package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/quillhaven/sitechat/internal/chat"
	"github.com/quillhaven/sitechat/internal/embedder"
	"github.com/quillhaven/sitechat/internal/ingestion"
	"github.com/quillhaven/sitechat/internal/logging"
	"github.com/quillhaven/sitechat/internal/mailer"
	"github.com/quillhaven/sitechat/internal/provider"
	"github.com/quillhaven/sitechat/internal/rag"
	"github.com/quillhaven/sitechat/internal/server"
	"github.com/quillhaven/sitechat/internal/store"
	"github.com/quillhaven/sitechat/internal/tracing"
)

// NewServeCmd constructs the `sitechat serve` command, which ingests the
// document directory and starts the HTTP server.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var docsDir string
	var staticDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Ingest the knowledge base and start the sitechat HTTP server",
		Long: `Start the sitechat HTTP server.

At startup every .txt document under the docs directory is chunked,
embedded, and loaded into the in-memory knowledge base. The server then
exposes POST /chat for retrieval-augmented questions, POST /contact for
the contact form, and serves the static frontend at /.

Examples:
  sitechat serve
  sitechat serve --port 9090 --docs ./docs
  MODEL_PROVIDER=ollama sitechat serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			host, port = resolveListenAddr(cmd.Flags(), host, port)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			// A misconfigured embedding backend is fatal: starting with an
			// embedder that can never succeed would silently serve every
			// answer without background context.
			if err := embedder.ValidateForIngestion(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			if docsDir == "" {
				docsDir = envOrDefault("DOCS_DIR", "./docs")
			}
			pipeline, err := ingestion.NewPipeline(emb, &ingestion.Config{
				MaxChunkChars: envInt("DOCS_MAX_CHUNK_CHARS", 0),
				Concurrency:   envInt("EMBED_CONCURRENCY", 0),
				EmbedRPS:      envFloat("EMBED_RPS", 0),
				Logger:        log,
				Metrics:       ingestion.NewMetrics(prometheus.DefaultRegisterer),
			})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			kb, err := pipeline.Build(ctx, docsDir)
			if err != nil {
				return fmt.Errorf("serve: knowledge base ingestion failed: %w", err)
			}
			log.Info("knowledge base ready", slog.Int("chunks", kb.Len()), slog.String("dir", docsDir))

			retriever, err := rag.NewStoreRetriever(emb, kb, 0)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", envOrDefault("MODEL_PROVIDER", "gemini")))

			// Open conversation history store. SITECHAT_HISTORY_DB overrides
			// the default path (~/.sitechat/history.db). Set to "disabled"
			// for stateless operation.
			var historyStore store.HistoryStore
			dbPath := os.Getenv("SITECHAT_HISTORY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = store.DefaultDBPath()
					if err != nil {
						log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					hs, hsErr := store.Open(dbPath)
					if hsErr != nil {
						log.Warn("history: failed to open store, disabling", slog.Any("error", hsErr))
					} else {
						historyStore = hs
						defer func() { _ = hs.Close() }()
						log.Info("history: store opened", slog.String("path", dbPath))

						// Visitor sessions are ephemeral; expire transcripts
						// so the database stays bounded. Retention 0 keeps
						// everything.
						retention := envDuration("SITECHAT_HISTORY_RETENTION", 30*24*time.Hour)
						go store.RunRetention(ctx, hs, retention, time.Hour, log)
					}
				}
			} else {
				log.Info("history: disabled via SITECHAT_HISTORY_DB=disabled")
			}

			svc, err := chat.New(&chat.Config{
				ChatModel:         chatModel,
				Retriever:         retriever,
				History:           historyStore,
				GenerationTimeout: time.Duration(envInt("GENERATION_TIMEOUT", 0)) * time.Second,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to initialise chat service: %w", err)
			}

			contactMailer, smtpPinger := buildMailer(log)

			pingers := []server.Pinger{
				server.NewLLMPinger(chatModel, envOrDefault("MODEL_PROVIDER", "gemini")),
				server.NewEmbedderPinger(emb, "embedder"),
			}
			if smtpPinger != nil {
				pingers = append(pingers, smtpPinger)
			}

			if staticDir == "" {
				staticDir = envOrDefault("SITECHAT_STATIC_DIR", "./web")
			}
			srv, err := server.New(svc, contactMailer, &server.Config{
				Host:      host,
				Port:      port,
				StaticDir: staticDir,
				Logger:    log,
				Pingers:   pingers,
				APIKey:    os.Getenv("SITECHAT_API_KEY"),
				RateLimit: envFloat("SITECHAT_RATE_LIMIT", 0),
				RateBurst: envInt("SITECHAT_RATE_BURST", 0),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Host address to bind to (default: $SITECHAT_HOST or 0.0.0.0)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on (default: $SITECHAT_PORT or 8080)")
	cmd.Flags().StringVar(&docsDir, "docs", "", "Directory of plain-text documents to ingest (default: $DOCS_DIR or ./docs)")
	cmd.Flags().StringVar(&staticDir, "static", "", "Directory of frontend assets to serve (default: $SITECHAT_STATIC_DIR or ./web)")

	return cmd
}

// resolveListenAddr applies the SITECHAT_HOST/SITECHAT_PORT env fallbacks to
// the listen address. An explicitly set flag wins over env; env (including
// .env and YAML-sourced values, applied in PersistentPreRunE after flag
// construction) wins over the built-in defaults.
func resolveListenAddr(flags *pflag.FlagSet, host string, port int) (string, int) {
	if !flags.Changed("host") {
		host = envOrDefault("SITECHAT_HOST", host)
	}
	if !flags.Changed("port") {
		port = envInt("SITECHAT_PORT", port)
	}
	return host, port
}

// buildMailer constructs the contact-form mailer from SMTP_* env vars.
// An unset SMTP_HOST disables the contact form rather than failing startup;
// any other incomplete configuration is logged and also disables it.
func buildMailer(log *slog.Logger) (mailer.Mailer, server.Pinger) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		log.Info("contact form disabled", slog.String("reason", "SMTP_HOST not set"))
		return nil, nil
	}

	cfg := &mailer.Config{
		Host:     host,
		Port:     envInt("SMTP_PORT", 587),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("CONTACT_FROM"),
		To:       os.Getenv("CONTACT_TO"),
	}
	m, err := mailer.NewSMTPMailer(cfg)
	if err != nil {
		log.Warn("contact form disabled", slog.Any("error", err))
		return nil, nil
	}
	log.Info("contact form enabled", slog.String("smtp_host", host))
	return m, server.NewSMTPPinger(cfg.Host, cfg.Port)
}

// envOrDefault returns the env var value or fallback when unset.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt parses an integer env var, returning fallback when unset or invalid.
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// envDuration parses a duration env var (e.g. "720h"), returning fallback
// when unset or invalid.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// envFloat parses a float env var, returning fallback when unset or invalid.
func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
