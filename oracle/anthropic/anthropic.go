// Package anthropic implements core.Oracle on the Anthropic Messages API.
// Anthropic serves completions only; Embed reports unavailability and the
// engine degrades semantic retrieval for residents bound to this oracle.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/townlet-ai/townlet/core"
)

// Options configures the Anthropic oracle adapter (model id, temperature,
// max tokens, API key).
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Oracle wraps the Anthropic Messages API behind the core.Oracle interface.
type Oracle struct {
	client     *anthropic.Client
	opts       Options
	configured bool
}

// NewOracle creates an Anthropic oracle using the official client.
func NewOracle(optFns ...func(o *Options)) *Oracle {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Oracle{client: &client, opts: opts, configured: opts.APIKey != ""}
}

// NewOracleFromClient wraps an existing client, assumed to be configured.
func NewOracleFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Oracle {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Oracle{client: client, opts: opts, configured: true}
}

// Complete sends prompt as a single user message and concatenates the text
// blocks of the response. An empty model falls back to the adapter default.
func (o *Oracle) Complete(ctx context.Context, prompt, model string) (string, error) {
	if !o.configured {
		return "", core.ErrOracleUnavailable
	}
	m := o.opts.Model
	if model != "" {
		m = anthropic.Model(model)
	}

	resp, err := o.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       m,
		MaxTokens:   o.opts.MaxTokens,
		Temperature: anthropic.Float(o.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", &core.OracleCallError{Model: string(m), Err: err}
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return sb.String(), nil
}

// Embed is not served by the Anthropic API.
func (o *Oracle) Embed(_ context.Context, _ string) ([]float64, error) {
	return nil, fmt.Errorf("anthropic: embeddings not supported: %w", core.ErrOracleUnavailable)
}
