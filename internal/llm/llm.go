package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ExtractedTask holds a single task extracted from free-form notes.
type ExtractedTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Assignee    string `json:"assignee"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"` // YYYY-MM-DD or empty
}

// Client wraps the Anthropic API for task extraction.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildPrompt constructs the system and user prompts for task extraction.
func buildPrompt(content string, members []string) (system string, user string) {
	system = `You extract actionable tasks from meeting notes, checklists and other markdown. Return ONLY a JSON array of objects with these fields:
- "title": concise task title, at most 100 characters
- "description": short description, at most 500 characters (empty string if the title says it all)
- "assignee": the person responsible, or empty string when nobody is named
- "priority": one of "low", "medium", "high"
- "due_date": the due date as YYYY-MM-DD, or empty string when none is given

Rules:
- Each numbered/bulleted action item is one task
- Default priority to "medium" unless the text signals urgency ("asap", "blocker", "urgent" = high) or that it can wait ("someday", "nice to have" = low)
- Match assignee names to the known team members list when possible
- Skip items that are already marked done (e.g. "[x]")
- Never create placeholder tasks like "none" or "N/A"
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	if len(members) > 0 {
		sb.WriteString("Known team members: ")
		sb.WriteString(strings.Join(members, ", "))
		sb.WriteString("\n\n")
	}
	sb.WriteString("Extract tasks from this markdown:\n\n")
	sb.WriteString(content)
	user = sb.String()
	return
}

// ExtractTasks sends markdown content to the LLM and returns structured tasks.
func (c *Client) ExtractTasks(ctx context.Context, content string, members []string) ([]ExtractedTask, error) {
	systemPrompt, userPrompt := buildPrompt(content, members)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	return parseTasks(text)
}

// parseTasks decodes the model's reply, tolerating markdown fencing.
func parseTasks(text string) ([]ExtractedTask, error) {
	text = stripFences(text)
	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}
	var tasks []ExtractedTask
	if err := json.Unmarshal([]byte(text), &tasks); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	return tasks, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
