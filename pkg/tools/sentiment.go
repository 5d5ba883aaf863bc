package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tabletalk-io/tabletalk/pkg/providers"
)

// PreferenceCategories orders food sentiment from best to worst. A food
// lives in exactly one category per user; re-categorizing moves it.
var PreferenceCategories = []string{"loved", "liked", "neutral", "dislike", "hated"}

// PreferenceStore persists per-user food preferences.
type PreferenceStore interface {
	SetPreference(ctx context.Context, user, food, category string) error
	Preferences(ctx context.Context, user string) (map[string][]string, error)
}

const sentimentSystemPrompt = `You are a food sentiment analyzer. Analyze messages to detect:
1. Food items mentioned
2. The user's sentiment toward each food

Sentiment categories:
- loved: Very positive (e.g., "I would kill for", "obsessed with", "love", "amazing")
- liked: Positive (e.g., "like", "good", "enjoy", "pretty good")
- neutral: Neutral mentions (just naming food without opinion)
- dislike: Negative (e.g., "don't like", "not a fan", "meh")
- hated: Very negative (e.g., "hate", "disgusting", "can't stand", "terrible")

Return ONLY a JSON object with this format:
{
  "foods_detected": [
    {"food": "kebab", "sentiment": "loved"},
    {"food": "sushi", "sentiment": "liked"}
  ]
}

If no food is mentioned, return: {"foods_detected": []}

Be smart about detecting food - include cuisines (italian, chinese), specific dishes (pizza, pasta, burger), ingredients, etc.`

type detectedFood struct {
	Food      string `json:"food"`
	Sentiment string `json:"sentiment"`
}

// parseSentimentResponse decodes the analyzer's JSON, tolerating prose or
// code fences around the object.
func parseSentimentResponse(raw string) ([]detectedFood, error) {
	raw = strings.TrimSpace(raw)
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}

	var payload struct {
		FoodsDetected []detectedFood `json:"foods_detected"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode sentiment response: %w", err)
	}
	return payload.FoodsDetected, nil
}

func validPreferenceCategory(category string) bool {
	for _, c := range PreferenceCategories {
		if c == category {
			return true
		}
	}
	return false
}

type analyzeSentimentTool struct {
	provider providers.LLMProvider
	model    string
	store    PreferenceStore
}

// NewAnalyzeSentimentTool analyzes messages for food mentions via the LLM
// and records detected preferences. An empty model uses the provider default.
func NewAnalyzeSentimentTool(provider providers.LLMProvider, model string, store PreferenceStore) Tool {
	return &analyzeSentimentTool{provider: provider, model: model, store: store}
}

func (t *analyzeSentimentTool) Name() string { return "analyze_message_sentiment" }

func (t *analyzeSentimentTool) Description() string {
	return "Analyze a chat message for food mentions and sentiment, recording any detected preferences."
}

func (t *analyzeSentimentTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"user": map[string]interface{}{
				"type":        "string",
				"description": "Name of the user who sent the message",
			},
			"message": map[string]interface{}{
				"type":        "string",
				"description": "The message text to analyze",
			},
		},
		"required": []string{"user", "message"},
	}
}

func (t *analyzeSentimentTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	user := stringArg(args, "user")
	message := stringArg(args, "message")

	response, err := t.provider.Chat(ctx,
		[]providers.Message{
			{Role: "system", Content: sentimentSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Analyze this message from %s: %q", user, message)},
		},
		nil, t.model, map[string]interface{}{"max_tokens": 300})
	if err != nil {
		return ErrorResult(fmt.Sprintf("error analyzing sentiment: %v", err)).WithError(err)
	}

	foods, err := parseSentimentResponse(response.Content)
	if err != nil {
		return ErrorResult(fmt.Sprintf("error parsing sentiment analysis: %s", response.Content)).WithError(err)
	}
	if len(foods) == 0 {
		return SilentResult(fmt.Sprintf("No food mentions detected in message from %s", user))
	}

	var updates []string
	for _, item := range foods {
		food := strings.TrimSpace(item.Food)
		sentiment := strings.ToLower(strings.TrimSpace(item.Sentiment))
		if food == "" || !validPreferenceCategory(sentiment) {
			continue
		}
		if err := t.store.SetPreference(ctx, user, food, sentiment); err != nil {
			return ErrorResult(fmt.Sprintf("error saving preference: %v", err)).WithError(err)
		}
		updates = append(updates, fmt.Sprintf("%s %s %s", user, sentiment, food))
	}

	if len(updates) == 0 {
		return SilentResult("No valid food sentiments detected")
	}
	return SilentResult("Updated preferences: " + strings.Join(updates, ", "))
}

type userPreferencesTool struct {
	store PreferenceStore
}

func NewUserPreferencesTool(store PreferenceStore) Tool {
	return &userPreferencesTool{store: store}
}

func (t *userPreferencesTool) Name() string { return "get_user_preferences" }

func (t *userPreferencesTool) Description() string {
	return "Get all recorded food preferences for a user, grouped by sentiment."
}

func (t *userPreferencesTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"user": map[string]interface{}{
				"type":        "string",
				"description": "Name of the user",
			},
		},
		"required": []string{"user"},
	}
}

func (t *userPreferencesTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	user := stringArg(args, "user")

	preferences, err := t.store.Preferences(ctx, user)
	if err != nil {
		return ErrorResult(fmt.Sprintf("error reading preferences: %v", err)).WithError(err)
	}

	lines := []string{fmt.Sprintf("Food preferences for %s:", user)}
	for _, category := range PreferenceCategories {
		foods := preferences[category]
		if len(foods) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", category, strings.Join(foods, ", ")))
	}

	if len(lines) == 1 {
		return SilentResult(fmt.Sprintf("No food preferences found for %s", user))
	}
	return SilentResult(strings.Join(lines, "\n"))
}
