package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

type anthropicProvider struct {
	client       anthropic.Client
	defaultModel string
}

func newAnthropicProvider(apiKey, apiBase, defaultModel string) (*anthropicProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if apiBase = strings.TrimSpace(apiBase); apiBase != "" {
		opts = append(opts, option.WithBaseURL(apiBase))
	}

	if strings.TrimSpace(defaultModel) == "" {
		defaultModel = defaultAnthropicModel
	}

	return &anthropicProvider{
		client:       anthropic.NewClient(opts...),
		defaultModel: defaultModel,
	}, nil
}

func (p *anthropicProvider) GetDefaultModel() string {
	return p.defaultModel
}

func (p *anthropicProvider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, model string, options map[string]interface{}) (*LLMResponse, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		model = p.defaultModel
	}

	anthropicMsgs, systemBlocks, err := convertToAnthropicMessages(messages)
	if err != nil {
		return nil, fmt.Errorf("convert anthropic messages: %w", err)
	}

	maxTokens := int64(1024)
	if mt, ok := optionAsInt(options, "max_tokens"); ok {
		maxTokens = int64(mt)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  anthropicMsgs,
		MaxTokens: maxTokens,
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if temp, ok := optionAsFloat(options, "temperature"); ok {
		params.Temperature = anthropic.Float(temp)
	}
	if len(tools) > 0 {
		params.Tools = convertToAnthropicTools(tools)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	return parseAnthropicMessage(msg), nil
}

// convertToAnthropicMessages maps the neutral message form onto the
// Anthropic API shape: system turns become system blocks, assistant tool
// calls become tool_use content blocks, and tool results become
// tool_result blocks in a user message.
func convertToAnthropicMessages(messages []Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam, error) {
	var systemBlocks []anthropic.TextBlockParam
	out := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Content})

		case "user":
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))

		case "assistant":
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls))
			if strings.TrimSpace(msg.Content) != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				input := map[string]interface{}{}
				if tc.Function != nil && strings.TrimSpace(tc.Function.Arguments) != "" {
					if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
						return nil, nil, fmt.Errorf("decode tool call %s arguments: %w", tc.ID, err)
					}
				} else if tc.Arguments != nil {
					input = tc.Arguments
				}
				name := tc.Name
				if name == "" && tc.Function != nil {
					name = tc.Function.Name
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, name))
			}
			if len(blocks) == 0 {
				blocks = append(blocks, anthropic.NewTextBlock(""))
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))

		case "tool":
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))

		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return out, systemBlocks, nil
}

func convertToAnthropicTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		schema := anthropic.ToolInputSchemaParam{
			// Type defaults to "object" when omitted
			Properties: tool.Function.Parameters["properties"],
		}
		if required, ok := tool.Function.Parameters["required"]; ok {
			schema.Required = toStringSlice(required)
		}
		param := anthropic.ToolUnionParamOfTool(schema, tool.Function.Name)
		if tool.Function.Description != "" {
			param.OfTool.Description = anthropic.String(tool.Function.Description)
		}
		out = append(out, param)
	}
	return out
}

func toStringSlice(v interface{}) []string {
	switch typed := v.(type) {
	case []string:
		return typed
	case []interface{}:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func parseAnthropicMessage(msg *anthropic.Message) *LLMResponse {
	var textParts []string
	var toolCalls []ToolCall

	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			textParts = append(textParts, variant.Text)
		case anthropic.ToolUseBlock:
			arguments := map[string]interface{}{}
			if len(variant.Input) > 0 {
				if err := json.Unmarshal(variant.Input, &arguments); err != nil {
					arguments["raw"] = string(variant.Input)
				}
			}
			toolCalls = append(toolCalls, ToolCall{
				ID:        variant.ID,
				Type:      "function",
				Name:      variant.Name,
				Arguments: arguments,
			})
		}
	}

	return &LLMResponse{
		Content:      strings.Join(textParts, ""),
		ToolCalls:    toolCalls,
		FinishReason: string(msg.StopReason),
		Usage: &UsageInfo{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}
