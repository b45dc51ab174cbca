package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/54b3r/pdfqa-go/internal/logging"
	"github.com/54b3r/pdfqa-go/internal/server"
	"github.com/54b3r/pdfqa-go/internal/tracing"
)

// NewServeCmd constructs the `pdfqa serve` command, which starts the HTTP
// server exposing the question-answering API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var storePath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the pdfqa HTTP server",
		Long: `Start the pdfqa HTTP server on localhost.

The server exposes a REST API for uploading PDFs, asking questions,
and checking index status, plus Prometheus metrics on /metrics.

When a saved index artifact exists (--store, default ~/.pdfqa/index.db)
it is loaded at startup so questions work without a fresh upload.

Examples:
  pdfqa serve
  pdfqa serve --port 9090
  MODEL_PROVIDER=azure pdfqa serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

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

			a, err := buildApp(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer a.close()
			sess := a.sess

			// Load a previously saved index so the server answers questions
			// immediately. Missing artifact just means an empty session.
			if os.Getenv("QDRANT_COLLECTION") == "" {
				path := storePath
				if path == "" {
					path, err = defaultStorePath()
					if err != nil {
						return fmt.Errorf("serve: %w", err)
					}
				}
				if _, statErr := os.Stat(path); statErr == nil {
					if err := sess.LoadStore(path); err != nil {
						log.Warn("could not load saved index", slog.String("path", path), slog.Any("error", err))
					} else {
						log.Info("saved index loaded", slog.String("path", path))
					}
				}
			}

			pingers := buildPingers(a)

			srv, err := server.New(sess, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("PDFQA_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")
	cmd.Flags().StringVarP(&storePath, "store", "s", "", "Saved index artifact to load at startup (default: ~/.pdfqa/index.db)")

	return cmd
}
