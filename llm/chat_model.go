package llm

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// ChatModel adapts a chat-completion Provider bound to one model into a
// ModelProvider.
type ChatModel struct {
	provider Provider
	model    string
	logger   *zap.Logger
}

// NewChatModel creates a ChatModel. An empty model lets the provider use its default.
func NewChatModel(provider Provider, model string, logger *zap.Logger) *ChatModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatModel{
		provider: provider,
		model:    model,
		logger: logger.With(
			zap.String("component", "chat_model"),
			zap.String("provider", provider.Name()),
			zap.String("model", model),
		),
	}
}

// Provider returns the wrapped provider.
func (m *ChatModel) Provider() Provider { return m.provider }

// Model returns the bound model name.
func (m *ChatModel) Model() string { return m.model }

// GenerateText implements ModelProvider.
func (m *ChatModel) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	resp, err := m.provider.Completion(ctx, &ChatRequest{
		Model:     m.model,
		Messages:  []Message{{Role: RoleUser, Content: req.Prompt}},
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	content, err := m.firstContent(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// GenerateStructured implements ModelProvider. The schema is sent both as a
// json_schema response format and inside the system prompt, so providers that
// ignore response_format still see it.
func (m *ChatModel) GenerateStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	name := req.SchemaName
	if name == "" {
		name = "decision"
	}

	var system strings.Builder
	if req.SystemPrompt != "" {
		system.WriteString(req.SystemPrompt)
		system.WriteString("\n\n")
	}
	system.WriteString("You must respond with valid JSON that conforms to the following JSON Schema:\n")
	system.Write(req.Schema)
	system.WriteString("\n\nRespond only with the JSON object, no additional text.")

	resp, err := m.provider.Completion(ctx, &ChatRequest{
		Model: m.model,
		Messages: []Message{
			{Role: RoleSystem, Content: system.String()},
			{Role: RoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		ResponseFormat: &ResponseFormat{
			Type:       "json_schema",
			JSONSchema: &JSONSchemaFormat{Name: name, Schema: req.Schema},
		},
	})
	if err != nil {
		return nil, err
	}
	content, err := m.firstContent(resp)
	if err != nil {
		return nil, err
	}

	raw := ExtractJSON(content)
	m.logger.Debug("structured completion received",
		zap.String("schema", name),
		zap.Int("raw_len", len(content)),
	)
	return json.RawMessage(raw), nil
}

func (m *ChatModel) firstContent(resp *ChatResponse) (string, error) {
	choice, err := FirstChoice(resp, m.provider.Name())
	if err != nil {
		return "", err
	}
	return choice.Message.Content, nil
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// ExtractJSON pulls the JSON document out of a reply that may wrap it in a
// markdown code fence or surround it with prose.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)

	if strings.Contains(response, "```") {
		if matches := codeFenceRe.FindStringSubmatch(response); len(matches) > 1 {
			return strings.TrimSpace(matches[1])
		}
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		return response[start : end+1]
	}
	return response
}

var _ ModelProvider = (*ChatModel)(nil)
