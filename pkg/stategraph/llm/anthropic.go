package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const decideSystemPrompt = "You are a workflow router. Given the current " +
	"state of a workflow and a list of possible next steps, pick the single " +
	"most appropriate next step. Reply with the step name only."

// Options configures the Anthropic decider.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Anthropic is a Decider backed by the Anthropic Messages API.
type Anthropic struct {
	client *anthropic.Client
	opts   Options
}

var _ Decider = (*Anthropic)(nil)

// NewAnthropic creates an Anthropic decider using the official client.
// Without WithAPIKey the client reads ANTHROPIC_API_KEY from the environment.
func NewAnthropic(optFns ...func(o *Options)) *Anthropic {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0,
		MaxTokens:   64,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Anthropic{client: &client, opts: opts}
}

// NewAnthropicFromClient creates a decider from an existing client.
func NewAnthropicFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Anthropic {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0,
		MaxTokens:   64,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Anthropic{client: client, opts: opts}
}

// Decide asks the model to pick one of targets given the state snapshot.
func (a *Anthropic) Decide(ctx context.Context, state map[string]any, targets []string) (string, error) {
	if len(targets) == 0 {
		return "", fmt.Errorf("llm: no targets to decide between")
	}
	if len(targets) == 1 {
		return targets[0], nil
	}

	params := anthropic.MessageNewParams{
		Model:       a.opts.Model,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: anthropic.Float(a.opts.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: decideSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(state, targets))),
		},
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm: anthropic api error: %w", err)
	}

	var reply string
	for _, block := range resp.Content {
		if block.Type == "text" {
			reply += block.AsText().Text
		}
	}
	return parseTarget(reply, targets)
}
