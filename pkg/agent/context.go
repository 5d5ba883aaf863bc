package agent

import (
	"fmt"
	"math"
	"strings"

	"github.com/tabletalk-io/tabletalk/pkg/providers"
	"github.com/tabletalk-io/tabletalk/pkg/transcript"
)

const responderSystemPrompt = `You are a helpful AI assistant in a group chat.

Key behaviors:
- Be conversational and friendly
- Keep responses concise (2-3 sentences max)
- Respond directly to what people are discussing
- If people are talking about food/restaurants, be helpful with suggestions
- Don't be overly formal or verbose

You've been mentioned with %s, so provide a helpful response based on the conversation.`

// WeightedMessage pairs a chat message with its recency importance.
type WeightedMessage struct {
	Sender  string
	Message string
	Weight  float64
}

// ContextBuilder turns the transcript tail into provider messages. Recency
// importance follows a Gaussian centered on the newest message: positions
// are normalized to [-1, 1] and weighted by exp(-(p-1)^2 / (2*sigma^2)),
// so a smaller sigma drops older messages off more aggressively.
type ContextBuilder struct {
	triggerWord string
	sigma       float64
	threshold   float64
	maxMessages int
}

func NewContextBuilder(triggerWord string, sigma, threshold float64, maxMessages int) *ContextBuilder {
	if sigma <= 0 {
		sigma = 0.3
	}
	if threshold <= 0 {
		threshold = 0.6
	}
	if maxMessages <= 0 {
		maxMessages = 100
	}
	return &ContextBuilder{
		triggerWord: triggerWord,
		sigma:       sigma,
		threshold:   threshold,
		maxMessages: maxMessages,
	}
}

func gaussianWeight(position, total int, sigma float64) float64 {
	if total == 1 {
		return 1.0
	}
	normalized := (2*float64(position))/float64(total-1) - 1
	return math.Exp(-((normalized - 1) * (normalized - 1)) / (2 * sigma * sigma))
}

// Weigh limits records to the window tail and assigns each its weight.
func (cb *ContextBuilder) Weigh(records []transcript.Record) []WeightedMessage {
	if len(records) > cb.maxMessages {
		records = records[len(records)-cb.maxMessages:]
	}
	weighted := make([]WeightedMessage, 0, len(records))
	for i, rec := range records {
		weighted = append(weighted, WeightedMessage{
			Sender:  rec.Sender,
			Message: rec.Message,
			Weight:  gaussianWeight(i, len(records), cb.sigma),
		})
	}
	return weighted
}

// RenderContext formats weighted messages into the two-tier context block,
// splitting at the importance threshold.
func (cb *ContextBuilder) RenderContext(weighted []WeightedMessage) string {
	if len(weighted) == 0 {
		return "No prior conversation history."
	}

	var recent, older []string
	for _, msg := range weighted {
		formatted := fmt.Sprintf("%s: %s", msg.Sender, msg.Message)
		if msg.Weight >= cb.threshold {
			recent = append(recent, formatted)
		} else {
			older = append(older, formatted)
		}
	}

	var b strings.Builder
	if len(recent) > 0 {
		b.WriteString("Recent conversation (high importance):\n")
		b.WriteString(strings.Join(recent, "\n"))
	}
	if len(older) > 0 {
		if len(recent) > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Earlier messages (background context):\n")
		b.WriteString(strings.Join(older, "\n"))
	}
	return b.String()
}

// BuildMessages assembles the system prompt and weighted context into the
// provider conversation for one response cycle.
func (cb *ContextBuilder) BuildMessages(records []transcript.Record) []providers.Message {
	context := cb.RenderContext(cb.Weigh(records))

	prompt := fmt.Sprintf("%s\n\nSomeone mentioned %s asking for your input. Provide a helpful, conversational response based on the recent discussion.",
		context, cb.triggerWord)

	return []providers.Message{
		{Role: "system", Content: fmt.Sprintf(responderSystemPrompt, cb.triggerWord)},
		{Role: "user", Content: prompt},
	}
}
