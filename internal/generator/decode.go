package generator

import (
	"github.com/cloudwego/eino/components/model"
)

// DecodingPolicy captures the full set of decoding parameters for an answer
// generation call. Only the parameters the chat transport supports
// (max tokens, temperature, top-p) are applied as eino options; the rest are
// carried so backends with extended option surfaces can consume them.
type DecodingPolicy struct {
	// MaxTokens caps the generated answer length.
	MaxTokens int
	// MinTokens is the desired minimum answer length. Not enforceable
	// through the transport; the post-processing word floor covers it.
	MinTokens int
	// Temperature controls sampling randomness.
	Temperature float32
	// TopP is the nucleus sampling threshold.
	TopP float32
	// NumBeams is the beam search width.
	NumBeams int
	// NoRepeatNgram forbids repeating n-grams of this size.
	NoRepeatNgram int
	// LengthPenalty biases beam scoring toward longer answers when > 1.
	LengthPenalty float32
	// RepetitionPenalty discourages repeated tokens when > 1.
	RepetitionPenalty float32
	// EarlyStopping ends beam search as soon as all beams finish.
	EarlyStopping bool
}

// DefaultPolicy returns the decoding parameters for standard answers.
func DefaultPolicy() DecodingPolicy {
	return DecodingPolicy{
		MaxTokens:         768,
		MinTokens:         100,
		Temperature:       0.75,
		TopP:              0.92,
		NumBeams:          5,
		NoRepeatNgram:     3,
		LengthPenalty:     1.2,
		RepetitionPenalty: 1.2,
		EarlyStopping:     false,
	}
}

// DetailPolicy returns the decoding parameters for detail-mode answers:
// a longer budget and slightly higher temperature.
func DetailPolicy() DecodingPolicy {
	p := DefaultPolicy()
	p.MaxTokens = 1024
	p.Temperature = 0.85
	return p
}

// Options converts the policy into eino model options for the parameters the
// transport accepts.
func (p DecodingPolicy) Options() []model.Option {
	return []model.Option{
		model.WithMaxTokens(p.MaxTokens),
		model.WithTemperature(p.Temperature),
		model.WithTopP(p.TopP),
	}
}
