// Package generator turns retrieved context and a question into a grounded
// answer. It builds the prompt, enforces the token budget, drives the chat
// model with a decoding policy, and post-processes the raw output with a
// bounded retry loop.
package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/pdfqa-go/internal/budget"
	"github.com/54b3r/pdfqa-go/internal/logging"
	"github.com/54b3r/pdfqa-go/internal/rag"
)

// ErrGeneration indicates the chat model could not produce any answer, as
// opposed to producing one that failed the quality checks.
var ErrGeneration = errors.New("generator: model call failed")

// defaultMaxRetries bounds generation attempts per question.
const defaultMaxRetries = 3

// ChatModel is the narrow slice of the chat transport the generator needs.
// Satisfied by any eino ToolCallingChatModel.
type ChatModel interface {
	Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Config tunes a Generator. The zero value is usable.
type Config struct {
	// MaxRetries bounds generation attempts per question. Defaults to 3.
	MaxRetries int
	// Cleanup, when set, runs between attempts. Backends that hold
	// per-request resources (caches, sessions) can release them here.
	Cleanup func()
	// Estimator measures and truncates prompts. Defaults to a shared
	// heuristic estimator.
	Estimator *budget.Estimator
}

// Generator produces answers from a chat model and retrieved context.
type Generator struct {
	model   ChatModel
	retries int
	cleanup func()
	est     *budget.Estimator
}

// New returns a Generator driving the given chat model.
func New(m ChatModel, cfg Config) *Generator {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	est := cfg.Estimator
	if est == nil {
		est = budget.NewEstimator()
	}
	return &Generator{
		model:   m,
		retries: retries,
		cleanup: cfg.Cleanup,
		est:     est,
	}
}

// Answer generates a grounded answer to question from the retrieved context.
// The prompt is truncated to the model's input budget before each call.
// Attempts that produce an answer failing the quality checks are retried up
// to the configured limit; when every attempt falls short the insufficiency
// message is returned rather than an error. Transport failures on every
// attempt return ErrGeneration.
func (g *Generator) Answer(ctx context.Context, question string, results []rag.Result, requireDetail bool) (string, error) {
	if g.model == nil {
		return "", fmt.Errorf("generator: no chat model configured")
	}

	log := logging.FromContext(ctx)

	prompt := BuildPrompt(question, results, requireDetail)
	prompt = g.est.Truncate(prompt, budget.DefaultMaxPromptTokens)

	policy := DefaultPolicy()
	if requireDetail {
		policy = DetailPolicy()
	}
	messages := []*schema.Message{schema.UserMessage(prompt)}
	log.Debug("prompt assembled",
		"passages", len(results),
		"est_tokens", budget.EstimateMessages(messages))

	var lastErr error
	for attempt := 1; attempt <= g.retries; attempt++ {
		if attempt > 1 && g.cleanup != nil {
			g.cleanup()
		}

		reply, err := g.model.Generate(ctx, messages, policy.Options()...)
		if err != nil {
			lastErr = err
			log.Warn("generation attempt failed",
				"attempt", attempt, "max_retries", g.retries, "error", err)
			continue
		}

		post := PostProcess(reply.Content)
		if post.Outcome == OutcomeAccept {
			return post.Answer, nil
		}
		lastErr = nil
		log.Warn("answer rejected, retrying",
			"attempt", attempt, "max_retries", g.retries, "reason", post.Reason)
	}

	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, lastErr)
	}
	log.Warn("no acceptable answer within retry budget", "max_retries", g.retries)
	return InsufficientAnswer, nil
}
