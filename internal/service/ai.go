package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/model"

	"github.com/sony/gobreaker"
)

// AIService wraps a chat-completions endpoint. Each call is one request and one reply.
type AIService struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewAIService(baseURL, apiKey, modelName string, timeout time.Duration) *AIService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AIService{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   modelName,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "ai",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("ai.breaker", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

func (s *AIService) Enabled() bool { return s != nil && s.baseURL != "" && s.apiKey != "" }

func (s *AIService) doChat(ctx context.Context, system, user string) (string, error) {
	body := map[string]any{
		"model": s.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm call: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm status %d: %s", resp.StatusCode, data)
	}
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return result.Choices[0].Message.Content, nil
}

// Generate sends prompt and returns the reply. With a schema hint the model is asked for JSON of
// that shape and code fences are stripped from the reply.
func (s *AIService) Generate(ctx context.Context, prompt, schemaHint string) (string, error) {
	if !s.Enabled() {
		return "", model.ErrAINotConfigured
	}
	system := "You are a concise project-management assistant."
	if schemaHint != "" {
		system += " Reply with JSON only, matching this shape: " + schemaHint
	}
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.doChat(ctx, system, prompt)
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	text := out.(string)
	if schemaHint != "" {
		text = stripFences(text)
	}
	return text, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

const taskDraftSchema = `{"tasks":[{"title":"string","description":"string","priority":"low|medium|high|urgent","due_in_days":0,"subtasks":["string"],"tags":["string"]}]}`

// GenerateTasks breaks goal into task drafts.
func (s *AIService) GenerateTasks(ctx context.Context, goal string) ([]model.TaskDraft, error) {
	prompt := "Break the following goal into 3 to 8 concrete tasks with realistic priorities and due offsets in days.\nGoal: " + goal
	text, err := s.Generate(ctx, prompt, taskDraftSchema)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Tasks []model.TaskDraft `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("decode task drafts: %w", err)
	}
	drafts := parsed.Tasks[:0]
	for _, d := range parsed.Tasks {
		d.Title = strings.TrimSpace(d.Title)
		if d.Title == "" {
			continue
		}
		if p, err := model.ParsePriority(string(d.Priority)); err == nil {
			d.Priority = p
		} else {
			d.Priority = model.PriorityMedium
		}
		if d.DueInDays < 0 {
			d.DueInDays = 0
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

// Summarize writes a short status summary of tasks.
func (s *AIService) Summarize(ctx context.Context, spaceName string, tasks []model.Task, today model.Date) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Summarize the state of the %q workspace in a few bullet points: progress, risks, overdue work.\n", spaceName)
	for _, t := range tasks {
		fmt.Fprintf(&sb, "- [%s] %s (priority %s, due %s", t.Status.Label(), t.Title, t.Priority, t.DueDate)
		if t.Overdue(today) {
			sb.WriteString(", overdue")
		}
		if t.BlockedByID != nil {
			fmt.Fprintf(&sb, ", blocked by #%d", *t.BlockedByID)
		}
		sb.WriteString(")\n")
	}
	if len(tasks) == 0 {
		sb.WriteString("(no tasks)\n")
	}
	return s.Generate(ctx, sb.String(), "")
}

// DraftPatch turns a draft into an insert payload for spaceID, due relative to today.
func DraftPatch(d model.TaskDraft, spaceID int64, today model.Date) model.TaskPatch {
	title, desc, prio := d.Title, d.Description, d.Priority
	due := today.AddDays(d.DueInDays)
	tags := append([]string{}, d.Tags...)
	subs := make([]model.Subtask, 0, len(d.Subtasks))
	for _, st := range d.Subtasks {
		if st = strings.TrimSpace(st); st != "" {
			subs = append(subs, model.Subtask{Title: st})
		}
	}
	return model.TaskPatch{
		SpaceID:     &spaceID,
		Title:       &title,
		Description: &desc,
		Priority:    &prio,
		DueDate:     &due,
		Tags:        &tags,
		Subtasks:    &subs,
	}
}
