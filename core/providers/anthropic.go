package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements CompletionService against Anthropic's
// Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	config AnthropicConfig
}

// NewAnthropicProvider creates a new Anthropic provider with the given configuration
func NewAnthropicProvider(config AnthropicConfig) (*AnthropicProvider, error) {
	defaults := DefaultAnthropicConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaults.MaxTokens
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	client := anthropic.NewClient(opts...)

	return &AnthropicProvider{
		client: &client,
		config: config,
	}, nil
}

// Name returns the provider identifier
func (p *AnthropicProvider) Name() string {
	return string(ProviderTypeAnthropic)
}

// Complete generates a reply to the conversation.
func (p *AnthropicProvider) Complete(ctx context.Context, systemPrompt string, messages []Message, opts CompletionOptions) (*Completion, error) {
	params := p.buildParams(systemPrompt, messages, opts)

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic complete: %w", err)
	}

	var content string
	for _, block := range msg.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += b.Text
		}
	}

	return &Completion{
		Text:       content,
		TokensUsed: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}, nil
}

// CompleteStructured asks the model to use a single tool whose input
// schema matches schema, and returns the parsed tool input.
func (p *AnthropicProvider) CompleteStructured(ctx context.Context, prompt string, schema map[string]any) (map[string]any, error) {
	params := p.buildParams("", []Message{{Role: RoleUser, Content: prompt}}, CompletionOptions{})
	params.Tools = []anthropic.ToolUnionParam{
		{
			OfTool: &anthropic.ToolParam{
				Name:        structuredToolName,
				Description: anthropic.String("Record the structured answer."),
				InputSchema: buildAnthropicSchema(schema),
			},
		},
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic structured: %w", err)
	}

	for _, block := range msg.Content {
		if b, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			args, err := b.Input.MarshalJSON()
			if err != nil {
				return nil, fmt.Errorf("anthropic structured: read tool input: %w", err)
			}
			var parsed map[string]any
			if err := json.Unmarshal(args, &parsed); err != nil {
				return nil, fmt.Errorf("anthropic structured: parse tool input: %w", err)
			}
			return parsed, nil
		}
	}
	return nil, fmt.Errorf("anthropic structured: no tool use in response")
}

// buildParams constructs Anthropic API parameters
func (p *AnthropicProvider) buildParams(systemPrompt string, messages []Message, opts CompletionOptions) anthropic.MessageNewParams {
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: int64(maxTokens),
		Messages:  p.convertMessages(messages),
	}

	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}

	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	} else if p.config.Temperature > 0 {
		params.Temperature = anthropic.Float(p.config.Temperature)
	}

	return params
}

// convertMessages converts generic messages to Anthropic format. System
// turns travel as user messages since the API takes system text
// separately.
func (p *AnthropicProvider) convertMessages(messages []Message) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		default:
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	return result
}

func buildAnthropicSchema(params map[string]any) anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{
		Type:       "object",
		Properties: params["properties"],
		Required:   extractRequiredFields(params),
	}
}

func extractRequiredFields(params map[string]any) []string {
	req, ok := params["required"].([]any)
	if !ok {
		return nil
	}
	result := make([]string, 0, len(req))
	for _, r := range req {
		if s, ok := r.(string); ok {
			result = append(result, s)
		}
	}
	return result
}
