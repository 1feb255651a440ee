package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/turnkeeper/llm"
	"github.com/BaSui01/turnkeeper/types"
)

// DefaultReplyMaxTokens caps one generated agent turn.
const DefaultReplyMaxTokens = 400

// ModelReplies role-plays the selected agent with a text model over the
// compressed history. It backs the reference loop when no external agent
// runtime is wired in.
type ModelReplies struct {
	model      llm.ModelProvider
	compressor ContextCompressor
	maxTokens  int
}

// NewModelReplies creates a ReplyGenerator. maxTokens <= 0 uses DefaultReplyMaxTokens.
func NewModelReplies(model llm.ModelProvider, compressor ContextCompressor, maxTokens int) *ModelReplies {
	if maxTokens <= 0 {
		maxTokens = DefaultReplyMaxTokens
	}
	return &ModelReplies{model: model, compressor: compressor, maxTokens: maxTokens}
}

// Reply implements ReplyGenerator.
func (r *ModelReplies) Reply(ctx context.Context, agent types.Agent, state types.ConversationState) (string, error) {
	transcript, err := r.compressor.Compress(ctx, state.Messages)
	if err != nil {
		return "", fmt.Errorf("compress history: %w", err)
	}
	out, err := r.model.GenerateText(ctx, llm.TextRequest{
		Prompt:    buildReplyPrompt(agent, state.Agents, transcript),
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	// 模型常带上 "A: " 前缀，去掉避免重复
	out = strings.TrimSpace(strings.TrimPrefix(out, agent.ID+":"))
	if out == "" {
		return "", types.NewError(types.ErrUpstreamError, "empty reply from model")
	}
	return out, nil
}

func buildReplyPrompt(agent types.Agent, roster []types.Agent, transcript string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s (id: %s) in a group chat", agent.Name, agent.ID)
	if len(roster) > 1 {
		others := make([]string, 0, len(roster)-1)
		for _, a := range roster {
			if a.ID != agent.ID {
				others = append(others, a.Name)
			}
		}
		fmt.Fprintf(&sb, " with %s and one human user", strings.Join(others, ", "))
	}
	sb.WriteString(".\n")
	if agent.Characteristics != "" {
		fmt.Fprintf(&sb, "Your characteristics: %s\n", agent.Characteristics)
	}
	sb.WriteString("\nConversation so far:\n")
	if transcript == "" {
		sb.WriteString("(no messages yet)")
	} else {
		sb.WriteString(transcript)
	}
	sb.WriteString("\n\nWrite your next message only, without a speaker prefix.")
	return sb.String()
}
