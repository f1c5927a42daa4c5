package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// chatCompleter is the part of the OpenAI client the AI service uses
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type AIService struct {
	client chatCompleter
	model  string
	now    func() time.Time
}

// TaskDraft is a task proposed by the model. Drafts are never persisted directly.
type TaskDraft struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Score       uint       `json:"score"`
	DateStart   *time.Time `json:"date_start"`
	DateEnd     *time.Time `json:"date_end"`
}

func NewAIService(apiKey string) *AIService {
	return newAIService(openai.NewClient(apiKey))
}

func newAIService(client chatCompleter) *AIService {
	return &AIService{
		client: client,
		model:  openai.GPT4o,
		now:    time.Now,
	}
}

// GenerateTaskDrafts asks the model to turn free text into volunteer task drafts
func (s *AIService) GenerateTaskDrafts(ctx context.Context, text string) ([]TaskDraft, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	currentTime := s.now().UTC().Format(time.RFC3339)
	prompt := fmt.Sprintf(`You help organizers of a volunteer group plan their work. Extract concrete volunteer tasks from the text below.

Current time: %s

Text:
%s

Return a JSON array of tasks in this shape:
[
  {
    "title": "short task title (at most 100 characters)",
    "description": "what volunteers should do",
    "score": 10,
    "date_start": "start time in RFC3339, e.g. 2025-10-28T09:00:00Z, or null",
    "date_end": "end time in RFC3339, or null"
  }
]

Rules:
- Return [] when the text contains no tasks
- score is a positive integer reflecting the effort involved
- Convert relative dates ("tomorrow", "next week") to absolute times
- Return only JSON, no commentary`, currentTime, text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)

	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)

	var drafts []TaskDraft
	if err := json.Unmarshal([]byte(content), &drafts); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	return drafts, nil
}

// stripCodeFence removes a ```json fence the model sometimes wraps its answer in
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
