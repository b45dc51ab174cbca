package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/pdfqa-go/internal/logging"
)

// ErrExhausted indicates that the primary model and every fallback model
// failed to load.
var ErrExhausted = errors.New("provider: all models failed to load")

// Builder constructs a ChatModel from a Config. Injectable so the fallback
// ladder can be tested without live backends; nil means New.
type Builder func(ctx context.Context, cfg *Config) (model.ToolCallingChatModel, error)

// NewWithFallback constructs a ChatModel, trying the primary model first and
// then each entry of cfg.FallbackModels in order. It returns the model
// together with the name that succeeded. When every attempt fails the error
// wraps ErrExhausted and carries the last cause.
func NewWithFallback(ctx context.Context, cfg *Config, build Builder) (model.ToolCallingChatModel, string, error) {
	if build == nil {
		build = New
	}
	log := logging.FromContext(ctx)

	candidates := append([]string{cfg.ModelName()}, cfg.FallbackModels...)

	var lastErr error
	for i, name := range candidates {
		attempt := cfg
		if i > 0 {
			attempt = cfg.WithModel(name)
			log.Warn("provider: falling back to smaller model",
				"model", name,
				"attempt", i+1,
				"of", len(candidates),
			)
		}

		m, err := build(ctx, attempt)
		if err == nil {
			log.Info("provider: model loaded", "backend", string(cfg.Backend), "model", name)
			return m, name, nil
		}

		log.Warn("provider: model failed to load", "model", name, "error", err)
		lastErr = err
	}

	return nil, "", fmt.Errorf("%w: tried %d model(s): %v", ErrExhausted, len(candidates), lastErr)
}
