package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// structuredToolName is the function tool used to force structured output.
const structuredToolName = "respond"

// OpenAIProvider implements CompletionService and EmbeddingService
// against OpenAI's API.
type OpenAIProvider struct {
	client *openai.Client
	config OpenAIConfig
}

// NewOpenAIProvider creates a new OpenAI provider with the given configuration
func NewOpenAIProvider(config OpenAIConfig) (*OpenAIProvider, error) {
	defaults := DefaultOpenAIConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = defaults.EmbeddingModel
	}
	if config.EmbeddingDimension == 0 {
		config.EmbeddingDimension = defaults.EmbeddingDimension
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

	if config.Organization != "" {
		opts = append(opts, option.WithHeader("OpenAI-Organization", config.Organization))
	}

	if config.Project != "" {
		opts = append(opts, option.WithHeader("OpenAI-Project", config.Project))
	}

	client := openai.NewClient(opts...)

	return &OpenAIProvider{
		client: &client,
		config: config,
	}, nil
}

// Name returns the provider identifier
func (p *OpenAIProvider) Name() string {
	return string(ProviderTypeOpenAI)
}

// Complete generates a reply to the conversation.
func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt string, messages []Message, opts CompletionOptions) (*Completion, error) {
	params := p.buildResponseParams(systemPrompt, messages, opts)

	result, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai complete: %w", err)
	}

	return &Completion{
		Text:       result.OutputText(),
		TokensUsed: int(result.Usage.TotalTokens),
	}, nil
}

// CompleteStructured asks the model to call a single function tool whose
// parameters match schema, and returns the parsed arguments.
func (p *OpenAIProvider) CompleteStructured(ctx context.Context, prompt string, schema map[string]any) (map[string]any, error) {
	params := p.buildResponseParams("", []Message{{Role: RoleUser, Content: prompt}}, CompletionOptions{})
	params.Tools = []responses.ToolUnionParam{
		responses.ToolParamOfFunction(structuredToolName, ensureObjectType(schema), true),
	}

	result, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai structured: %w", err)
	}

	for _, item := range result.Output {
		if item.Type != "function_call" {
			continue
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(item.Arguments), &parsed); err != nil {
			return nil, fmt.Errorf("openai structured: parse tool arguments: %w", err)
		}
		return parsed, nil
	}

	// Some models answer with bare JSON text instead of calling the tool.
	var parsed map[string]any
	if err := json.Unmarshal([]byte(result.OutputText()), &parsed); err != nil {
		return nil, fmt.Errorf("openai structured: no tool call in response")
	}
	return parsed, nil
}

// Embed converts a single text into a vector.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch converts texts into vectors with a single API call.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.config.EmbeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}
	if p.config.EmbeddingDimension > 0 {
		params.Dimensions = openai.Int(int64(p.config.EmbeddingDimension))
	}

	result, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed: got %d vectors for %d texts", len(result.Data), len(texts))
	}

	vectors := make([][]float32, len(result.Data))
	for i, item := range result.Data {
		vec := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimension returns the configured embedding vector size.
func (p *OpenAIProvider) Dimension() int {
	return p.config.EmbeddingDimension
}

// buildResponseParams constructs OpenAI API parameters
func (p *OpenAIProvider) buildResponseParams(systemPrompt string, messages []Message, opts CompletionOptions) responses.ResponseNewParams {
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(p.config.Model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: p.convertMessages(messages, systemPrompt),
		},
		MaxOutputTokens: openai.Int(int64(maxTokens)),
	}

	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	} else if p.config.Temperature > 0 {
		params.Temperature = openai.Float(p.config.Temperature)
	}

	return params
}

func (p *OpenAIProvider) convertMessages(messages []Message, systemPrompt string) responses.ResponseInputParam {
	result := make(responses.ResponseInputParam, 0, len(messages)+1)

	if systemPrompt != "" {
		result = append(result, responses.ResponseInputItemParamOfMessage(systemPrompt, responses.EasyInputMessageRoleSystem))
	}

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			result = append(result, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleSystem))
		case RoleUser:
			result = append(result, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleUser))
		case RoleAssistant:
			result = append(result, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleAssistant))
		}
	}

	return result
}

func ensureObjectType(params map[string]any) map[string]any {
	if params == nil {
		return map[string]any{"type": "object"}
	}
	if _, hasType := params["type"]; !hasType {
		params["type"] = "object"
	}
	return params
}
