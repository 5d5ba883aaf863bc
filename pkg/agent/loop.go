// TableTalk - group chat relay with a resident AI participant
// License: MIT
//
// Copyright (c) 2026 TableTalk contributors

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tabletalk-io/tabletalk/pkg/config"
	"github.com/tabletalk-io/tabletalk/pkg/logger"
	"github.com/tabletalk-io/tabletalk/pkg/providers"
	"github.com/tabletalk-io/tabletalk/pkg/tools"
	"github.com/tabletalk-io/tabletalk/pkg/utils"
)

const (
	// responseStillProcessing is surfaced when a response cycle exceeds
	// its wall-clock budget. The group sees something instead of silence.
	responseStillProcessing = "I'm still working on that one - it's taking longer than expected. Ask me again in a moment."

	// responseApology is surfaced when the cycle fails outright.
	responseApology = "Sorry, I ran into a problem while putting that answer together. Please try again."

	// responseExhausted is the fallback when even the degraded final call
	// returns nothing.
	responseExhausted = "I gathered some information but couldn't pull together a full answer. Here's what I'd suggest: try asking me again with a bit more detail."
)

// AgentLoop drives the multi-turn conversation with the model for one
// response cycle: call, execute requested tools, feed results back, repeat
// until the model answers in plain text or the iteration cap is reached.
type AgentLoop struct {
	provider      providers.LLMProvider
	tools         *tools.ToolRegistry
	model         string
	maxTokens     int
	maxIterations int
	timeout       time.Duration
}

func NewAgentLoop(cfg *config.Config, provider providers.LLMProvider, registry *tools.ToolRegistry) *AgentLoop {
	maxIterations := cfg.Responder.MaxToolIterations
	if maxIterations <= 0 {
		maxIterations = 8
	}
	maxTokens := cfg.Responder.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	timeout := time.Duration(cfg.Responder.LoopTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &AgentLoop{
		provider:      provider,
		tools:         registry,
		model:         cfg.Responder.Model,
		maxTokens:     maxTokens,
		maxIterations: maxIterations,
		timeout:       timeout,
	}
}

// Respond runs one bounded response cycle and always returns displayable
// text: the model's answer, a degraded answer at the iteration cap, a
// still-processing note on timeout, or an apology on failure.
func (al *AgentLoop) Respond(ctx context.Context, messages []providers.Message) string {
	ctx, cancel := context.WithTimeout(ctx, al.timeout)
	defer cancel()

	turnID := "turn-" + uuid.NewString()
	start := time.Now()

	text, err := al.run(ctx, turnID, messages)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.WarnCF("agent", "Response cycle timed out",
				map[string]interface{}{
					"turn_id":     turnID,
					"timeout_sec": al.timeout.Seconds(),
				})
			return responseStillProcessing
		}
		logger.ErrorCF("agent", "Response cycle failed",
			map[string]interface{}{
				"turn_id": turnID,
				"error":   err.Error(),
			})
		return responseApology
	}

	logger.InfoCF("agent", fmt.Sprintf("Response: %s", utils.Truncate(text, 120)),
		map[string]interface{}{
			"turn_id":     turnID,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	return text
}

func (al *AgentLoop) run(ctx context.Context, turnID string, messages []providers.Message) (string, error) {
	callOpts := map[string]interface{}{
		"max_tokens":  al.maxTokens,
		"temperature": 0.7,
	}
	providerToolDefs := al.tools.ToProviderDefs()

	for iteration := 1; iteration <= al.maxIterations; iteration++ {
		logger.DebugCF("agent", "LLM iteration",
			map[string]interface{}{
				"turn_id":   turnID,
				"iteration": iteration,
				"max":       al.maxIterations,
			})

		response, err := al.provider.Chat(ctx, messages, providerToolDefs, al.model, callOpts)
		if err != nil {
			return "", fmt.Errorf("LLM call failed: %w", err)
		}

		if len(response.ToolCalls) == 0 {
			content := strings.TrimSpace(response.Content)
			if content == "" {
				content = responseExhausted
			}
			logger.InfoCF("agent", "LLM response without tool calls (direct answer)",
				map[string]interface{}{
					"turn_id":       turnID,
					"iteration":     iteration,
					"content_chars": len(content),
				})
			return content, nil
		}

		toolNames := make([]string, 0, len(response.ToolCalls))
		for _, tc := range response.ToolCalls {
			toolNames = append(toolNames, tc.Name)
		}
		logger.InfoCF("agent", "LLM requested tool calls",
			map[string]interface{}{
				"turn_id":   turnID,
				"iteration": iteration,
				"tools":     toolNames,
			})

		messages = append(messages, assistantToolCallMessage(response))

		for _, tc := range response.ToolCalls {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			result := al.tools.Execute(ctx, tc.Name, tc.Arguments)
			contentForLLM := result.ForLLM
			if contentForLLM == "" && result.Err != nil {
				contentForLLM = result.Err.Error()
			}
			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    contentForLLM,
				ToolCallID: tc.ID,
			})
		}
	}

	return al.degradedAnswer(ctx, turnID, messages)
}

// degradedAnswer makes one final call without tools after the iteration
// cap, so the group still gets whatever was learned along the way.
func (al *AgentLoop) degradedAnswer(ctx context.Context, turnID string, messages []providers.Message) (string, error) {
	logger.WarnCF("agent", "Iteration cap reached, requesting final answer without tools",
		map[string]interface{}{
			"turn_id": turnID,
			"cap":     al.maxIterations,
		})

	messages = append(messages, providers.Message{
		Role:    "user",
		Content: "You've used all your tool calls for this turn. Give your best final answer now using what you've already gathered.",
	})

	response, err := al.provider.Chat(ctx, messages, nil, al.model, map[string]interface{}{
		"max_tokens":  al.maxTokens,
		"temperature": 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("final answer after iteration cap: %w", err)
	}

	content := strings.TrimSpace(response.Content)
	if content == "" {
		content = responseExhausted
	}
	return content, nil
}

func assistantToolCallMessage(response *providers.LLMResponse) providers.Message {
	msg := providers.Message{
		Role:    "assistant",
		Content: response.Content,
	}
	for _, tc := range response.ToolCalls {
		argumentsJSON, _ := json.Marshal(tc.Arguments)
		msg.ToolCalls = append(msg.ToolCalls, providers.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Name: tc.Name,
			Function: &providers.FunctionCall{
				Name:      tc.Name,
				Arguments: string(argumentsJSON),
			},
		})
	}
	return msg
}
