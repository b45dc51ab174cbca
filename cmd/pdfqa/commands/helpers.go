package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/54b3r/pdfqa-go/internal/embedder"
	"github.com/54b3r/pdfqa-go/internal/generator"
	"github.com/54b3r/pdfqa-go/internal/provider"
	"github.com/54b3r/pdfqa-go/internal/rag"
	"github.com/54b3r/pdfqa-go/internal/server"
	"github.com/54b3r/pdfqa-go/internal/session"
	"github.com/54b3r/pdfqa-go/internal/splitter"
	"github.com/54b3r/pdfqa-go/internal/store"
)

// buildEmbedder validates the embedding environment and constructs the
// embedder selected by EMBEDDING_PROVIDER / MODEL_PROVIDER.
func buildEmbedder(log *slog.Logger) (rag.Embedder, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, err
	}
	log.Info("embedder initialised",
		slog.String("provider", getEnvOrDefault("EMBEDDING_PROVIDER", getEnvOrDefault("MODEL_PROVIDER", "ollama"))),
		slog.Int("dimensions", emb.Dimensions()),
	)
	return emb, nil
}

// buildStore selects the vector store backend: Qdrant when QDRANT_COLLECTION
// is set, the in-process flat store otherwise. The returned close function
// releases the store.
func buildStore(ctx context.Context, emb rag.Embedder, log *slog.Logger) (rag.VectorStore, func(), error) {
	floor := getEnvFloat32("RETRIEVAL_FLOOR", store.DefaultFloor)

	if collection := os.Getenv("QDRANT_COLLECTION"); collection != "" {
		host := getEnvOrDefault("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		qs, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
			Host:           host,
			Port:           port,
			Collection:     collection,
			VectorSize:     uint64(emb.Dimensions()), //nolint:gosec // dimensions are bounded
			ScoreThreshold: floor,
			APIKey:         os.Getenv("QDRANT_API_KEY"),
			UseTLS:         os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
		}
		log.Info("qdrant store ready",
			slog.String("host", host), slog.Int("port", port), slog.String("collection", collection))
		return qs, func() { _ = qs.Close() }, nil
	}

	fs := store.NewFlatStore(floor)
	return fs, func() { _ = fs.Close() }, nil
}

// buildGenerator constructs the chat model, descending the MODEL_FALLBACKS
// ladder when the primary fails to load, and wraps it in the answer generator.
func buildGenerator(ctx context.Context, log *slog.Logger) (*generator.Generator, error) {
	cfg := provider.ConfigFromEnv()
	chatModel, name, err := provider.NewWithFallback(ctx, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	log.Info("provider initialised",
		slog.String("provider", string(cfg.Backend)),
		slog.String("model", name),
	)

	return generator.New(chatModel, generator.Config{
		MaxRetries: getEnvInt("MODEL_MAX_RETRIES", 0),
	}), nil
}

// buildSplitter constructs the passage splitter from the environment.
func buildSplitter() *splitter.Splitter {
	return splitter.New(
		getEnvInt("SPLITTER_CHUNK_SIZE", splitter.DefaultChunkSize),
		getEnvInt("SPLITTER_CHUNK_OVERLAP", splitter.DefaultChunkOverlap),
	)
}

// app bundles the assembled pipeline components so commands can reach the
// parts they need (the serve command wires pingers from them).
type app struct {
	sess  *session.Session
	emb   rag.Embedder
	store rag.VectorStore
	close func()
}

// buildApp assembles the full pipeline from the environment. The close
// function releases the vector store.
func buildApp(ctx context.Context, log *slog.Logger) (*app, error) {
	emb, err := buildEmbedder(log)
	if err != nil {
		return nil, err
	}

	vs, closeStore, err := buildStore(ctx, emb, log)
	if err != nil {
		return nil, err
	}

	gen, err := buildGenerator(ctx, log)
	if err != nil {
		closeStore()
		return nil, err
	}

	sess, err := session.New(session.Config{
		Embedder: emb,
		Store:    vs,
		Answerer: gen,
		Splitter: buildSplitter(),
		TopK:     getEnvInt("RETRIEVAL_TOP_K", 0),
	})
	if err != nil {
		closeStore()
		return nil, err
	}
	return &app{sess: sess, emb: emb, store: vs, close: closeStore}, nil
}

// buildSession assembles a full session from the environment. The returned
// close function releases the vector store.
func buildSession(ctx context.Context, log *slog.Logger) (*session.Session, func(), error) {
	a, err := buildApp(ctx, log)
	if err != nil {
		return nil, nil, err
	}
	return a.sess, a.close, nil
}

// buildPingers derives readiness probes from the assembled components. The
// embedders expose Ping, the Qdrant store shares its client with a dedicated
// probe, and the in-process flat store needs none.
func buildPingers(a *app) []server.Pinger {
	var pingers []server.Pinger
	if p, ok := a.emb.(interface{ Ping(context.Context) error }); ok {
		pingers = append(pingers, server.NewDependencyPinger(p, "embedder"))
	}
	if qs, ok := a.store.(*rag.QdrantStore); ok {
		pingers = append(pingers, server.NewQdrantPinger(qs.Client()))
	}
	return pingers
}

// defaultStorePath resolves the artifact path: PDFQA_STORE when set,
// ~/.pdfqa/index.db otherwise.
func defaultStorePath() (string, error) {
	if p := os.Getenv("PDFQA_STORE"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve home directory: %w", err)
	}
	return filepath.Join(home, ".pdfqa", "index.db"), nil
}

// getEnvOrDefault returns the value of the environment variable or fallback
// when unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the environment variable or fallback
// when unset or unparsable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvFloat32 returns the float value of the environment variable or
// fallback when unset or unparsable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
