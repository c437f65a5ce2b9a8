// Package openai implements core.Oracle on the OpenAI Chat Completions and
// Embeddings APIs. Completions are streamed and concatenated so the caller
// always sees one final string; the adapter also works against
// OpenAI-compatible gateways via a custom base URL.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/townlet-ai/townlet/core"
)

// Options configure the OpenAI oracle adapter. Fields mirror a subset of the
// Chat Completion parameters intentionally kept minimal; extend via
// functional options without breaking callers.
type Options struct {
	Model               string
	EmbeddingModel      string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
	BaseURL             string
}

// Oracle wraps the OpenAI client behind the core.Oracle interface.
type Oracle struct {
	client     *openai.Client
	opts       Options
	configured bool
}

// NewOracle creates an OpenAI oracle. Without an API key the adapter still
// constructs but every call returns core.ErrOracleUnavailable, so the engine
// can degrade instead of panicking at wiring time.
func NewOracle(optFns ...func(o *Options)) *Oracle {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		EmbeddingModel:      "text-embedding-v1",
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(clientOpts...)

	return &Oracle{client: &client, opts: opts, configured: opts.APIKey != ""}
}

// NewOracleFromClient wraps an existing client, assumed to be configured.
func NewOracleFromClient(client *openai.Client, optFns ...func(o *Options)) *Oracle {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		EmbeddingModel:      "text-embedding-v1",
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Oracle{client: client, opts: opts, configured: true}
}

// Complete streams a chat completion and returns the concatenated text. An
// empty model falls back to the adapter default.
func (o *Oracle) Complete(ctx context.Context, prompt, model string) (string, error) {
	if !o.configured {
		return "", core.ErrOracleUnavailable
	}
	if model == "" {
		model = o.opts.Model
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:               model,
		Temperature:         openai.Float(o.opts.Temperature),
		MaxCompletionTokens: openai.Int(o.opts.MaxCompletionTokens),
	}

	stream := o.client.Chat.Completions.NewStreaming(ctx, params)
	var sb strings.Builder
	for stream.Next() {
		ck := stream.Current()
		for _, ch := range ck.Choices {
			if ch.Delta.Content != "" {
				sb.WriteString(ch.Delta.Content)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", &core.OracleCallError{Model: model, Err: err}
	}
	return sb.String(), nil
}

// Embed returns the provider-native embedding for text. Callers canonicalize
// the width with core.CanonicalEmbedding.
func (o *Oracle) Embed(ctx context.Context, text string) ([]float64, error) {
	if !o.configured {
		return nil, core.ErrOracleUnavailable
	}

	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: o.opts.EmbeddingModel,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
	})
	if err != nil {
		return nil, &core.OracleCallError{Model: o.opts.EmbeddingModel, Err: err}
	}
	if len(resp.Data) == 0 {
		return nil, &core.OracleCallError{
			Model: o.opts.EmbeddingModel,
			Err:   fmt.Errorf("no embedding returned"),
		}
	}
	return resp.Data[0].Embedding, nil
}
