package types

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, ok := ConversationID(ctx)
	assert.False(t, ok)

	ctx = WithConversationID(ctx, "conv-1")
	ctx = WithDecisionID(ctx, "dec-1")

	conv, ok := ConversationID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "conv-1", conv)

	dec, ok := DecisionID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "dec-1", dec)

	_, ok = DecisionID(WithDecisionID(context.Background(), ""))
	assert.False(t, ok)
}
