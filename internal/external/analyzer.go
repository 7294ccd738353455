// Package external holds the clients for the three capabilities the
// engine consumes but does not own: deep content scoring, audio channel
// token issuance and speech synthesis. Every client degrades to a
// fallback value on failure instead of surfacing an error to the user.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/havenward/sanctum/internal/domain"
	"github.com/havenward/sanctum/lib/logger/sl"
	openai "github.com/sashabaranov/go-openai"
)

const scoringSystemPrompt = `You are a content safety scorer for an anonymous peer support platform.
Score the user's message on four dimensions, each a number between 0 and 1:
toxicity, self_harm, spam, inappropriate.
Respond with a single JSON object only, no prose:
{"toxicity":0.0,"self_harm":0.0,"spam":0.0,"inappropriate":0.0,"recommended_action":"none","reason":""}`

// OpenAIAnalyzer implements moderation.Analyzer on top of a chat
// completion model.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
	log    *slog.Logger
}

func NewOpenAIAnalyzer(apiKey, model string, log *slog.Logger) (*OpenAIAnalyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("content analyzer api key is empty")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if log == nil {
		log = slog.Default()
	}
	return &OpenAIAnalyzer{
		client: openai.NewClient(apiKey),
		model:  model,
		log:    log,
	}, nil
}

func (a *OpenAIAnalyzer) Score(ctx context.Context, content string) (domain.ContentScores, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: scoringSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
	})
	if err != nil {
		return domain.ContentScores{}, fmt.Errorf("content scoring call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.ContentScores{}, fmt.Errorf("content scoring returned no choices")
	}

	scores, err := parseScores(resp.Choices[0].Message.Content)
	if err != nil {
		a.log.Warn("unparseable scoring response", sl.Err(err))
		return domain.ContentScores{}, err
	}
	return scores, nil
}

// parseScores tolerates models that wrap the JSON in a code fence.
func parseScores(raw string) (domain.ContentScores, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var scores domain.ContentScores
	if err := json.Unmarshal([]byte(raw), &scores); err != nil {
		return domain.ContentScores{}, fmt.Errorf("decode scores: %w", err)
	}
	return clampScores(scores), nil
}

func clampScores(s domain.ContentScores) domain.ContentScores {
	clamp := func(x float64) float64 {
		if x < 0 {
			return 0
		}
		if x > 1 {
			return 1
		}
		return x
	}
	s.Toxicity = clamp(s.Toxicity)
	s.SelfHarm = clamp(s.SelfHarm)
	s.Spam = clamp(s.Spam)
	s.Inappropriate = clamp(s.Inappropriate)
	return s
}
