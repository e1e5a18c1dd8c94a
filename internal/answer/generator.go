package answer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/calder-n/notewise/internal/budget"
	"github.com/calder-n/notewise/internal/fault"
	"github.com/calder-n/notewise/internal/logging"
	"github.com/calder-n/notewise/internal/provider"
)

// Variant selects between the two generation model tiers.
type Variant string

const (
	// VariantFast is the low-latency default model.
	VariantFast Variant = "fast"
	// VariantAdvanced is the high-capability large-context model.
	VariantAdvanced Variant = "advanced"
)

// ResolveVariant maps a caller-supplied variant token to a Variant.
// The legacy aliases "llama" and "llama-70b" are accepted for the fast
// and advanced tiers. Any unrecognized token degrades to fast — variant
// selection never fails.
func ResolveVariant(token string) Variant {
	switch token {
	case string(VariantAdvanced), "llama-70b":
		return VariantAdvanced
	default:
		return VariantFast
	}
}

// Models pairs each variant with a constructed chat model and the model
// identifier surfaced to callers.
type Models struct {
	// Fast is the low-latency model.
	Fast provider.ChatModel
	// FastID is the model identifier reported when Fast answers.
	FastID string
	// Advanced is the high-capability model.
	Advanced provider.ChatModel
	// AdvancedID is the model identifier reported when Advanced answers.
	AdvancedID string
}

// Result is a completed generation.
type Result struct {
	// Text is the generated answer.
	Text string
	// Model is the identifier of the model that actually answered, so
	// callers can audit which variant served the request.
	Model string
}

// Generator invokes a chat model with the composed message sequence.
// It holds only read-only fields and is safe to share across requests.
type Generator struct {
	// models holds the per-variant chat models.
	models Models
}

// NewGenerator constructs a Generator. Both variants must be provided;
// pointing both at the same model is a valid single-tier deployment.
func NewGenerator(models Models) (*Generator, error) {
	if models.Fast == nil || models.Advanced == nil {
		return nil, fmt.Errorf("answer: both fast and advanced models are required")
	}
	if models.FastID == "" || models.AdvancedID == "" {
		return nil, fmt.Errorf("answer: model identifiers are required")
	}
	return &Generator{models: models}, nil
}

// Generate answers the question using the model tier named by variant.
// contextBlock, when non-empty, is injected as its own system message
// ahead of the fixed instruction message. Failures of the upstream call,
// and empty generations, are classified as generation faults.
func (g *Generator) Generate(ctx context.Context, question, contextBlock string, variant Variant) (Result, error) {
	model, modelID := g.models.Fast, g.models.FastID
	if variant == VariantAdvanced {
		model, modelID = g.models.Advanced, g.models.AdvancedID
	}

	messages := buildMessages(question, contextBlock)

	start := time.Now()
	msg, err := model.Generate(ctx, messages)
	if err != nil {
		return Result{}, fault.Wrap(fault.KindGeneration, "generation failed", err)
	}
	if msg == nil || msg.Content == "" {
		return Result{}, fault.New(fault.KindGeneration, "model returned no text")
	}

	logging.FromContext(ctx).Debug("generation completed",
		slog.String("model", modelID),
		slog.Int("prompt_tokens_est", budget.EstimateMessages(messages)),
		slog.Duration("latency", time.Since(start)),
	)

	return Result{Text: msg.Content, Model: modelID}, nil
}

// ModelID returns the identifier that would serve the given variant,
// without invoking the model. Used to surface the resolved model in
// response headers before generation completes.
func (g *Generator) ModelID(variant Variant) string {
	if variant == VariantAdvanced {
		return g.models.AdvancedID
	}
	return g.models.FastID
}

// buildMessages composes the message sequence:
// [context system message if present] + [instruction system message] +
// [user message]. The context message is omitted, never sent empty.
func buildMessages(question, contextBlock string) []*schema.Message {
	messages := make([]*schema.Message, 0, 3)
	if contextBlock != "" {
		messages = append(messages, schema.SystemMessage(contextBlock))
	}
	messages = append(messages,
		schema.SystemMessage(instruction),
		schema.UserMessage(question),
	)
	return messages
}
