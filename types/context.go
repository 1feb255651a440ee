package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyConversationID contextKey = "conversation_id"
	keyDecisionID     contextKey = "decision_id"
)

// WithConversationID adds the conversation id to context.
func WithConversationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyConversationID, id)
}

// ConversationID extracts the conversation id from context.
func ConversationID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyConversationID).(string)
	return v, ok && v != ""
}

// WithDecisionID adds the decision id to context.
func WithDecisionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyDecisionID, id)
}

// DecisionID extracts the decision id from context.
func DecisionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyDecisionID).(string)
	return v, ok && v != ""
}
