package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/turnkeeper/types"
	"go.uber.org/zap"
)

// ReplyGenerator produces an agent's next message. Reply generation lives
// outside the scheduler; the loop only sequences it.
type ReplyGenerator interface {
	Reply(ctx context.Context, agent types.Agent, state types.ConversationState) (string, error)
}

// ReplyFunc adapts a function to ReplyGenerator.
type ReplyFunc func(ctx context.Context, agent types.Agent, state types.ConversationState) (string, error)

// Reply implements ReplyGenerator.
func (f ReplyFunc) Reply(ctx context.Context, agent types.Agent, state types.ConversationState) (string, error) {
	return f(ctx, agent, state)
}

// LoopConfig configures the reference chat loop.
type LoopConfig struct {
	// MaxRounds 单次 Run 最多的发言轮数，0 表示不限制
	MaxRounds int `yaml:"max_rounds" env:"MAX_ROUNDS"`
	// Timeout 单次 Run 的总超时，0 表示不限制
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// DefaultLoopConfig returns 10 rounds and a 10 minute timeout.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxRounds: 10,
		Timeout:   10 * time.Minute,
	}
}

// Stop reasons reported in LoopResult.
const (
	StopPaused    = "paused"
	StopEmpty     = "empty_roster"
	StopMaxRounds = "max_rounds"
)

// LoopResult is the outcome of one Run.
type LoopResult struct {
	ConversationID string                     `json:"conversation_id"`
	Messages       []types.Message            `json:"messages"`
	Selections     []types.AgentSelection     `json:"selections"`
	Termination    *types.TerminationDecision `json:"termination,omitempty"`
	Rounds         int                        `json:"rounds"`
	State          TurnState                  `json:"state"`
	StopReason     string                     `json:"stop_reason"`
	StartTime      time.Time                  `json:"start_time"`
	EndTime        time.Time                  `json:"end_time"`
}

// Loop is a reference driver of the turn state machine: select, reply,
// append, check termination, until paused.
type Loop struct {
	scheduler TurnScheduler
	replies   ReplyGenerator
	config    LoopConfig
	logger    *zap.Logger
}

// NewLoop creates a Loop.
func NewLoop(scheduler TurnScheduler, replies ReplyGenerator, config LoopConfig, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		scheduler: scheduler,
		replies:   replies,
		config:    config,
		logger:    logger.With(zap.String("component", "chat_loop")),
	}
}

// Run drives the conversation from AWAITING_SELECTION until it pauses, hits
// MaxRounds, or ctx ends. The returned result carries the grown history even
// when an error is returned.
func (l *Loop) Run(ctx context.Context, state types.ConversationState) (*LoopResult, error) {
	if l.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.config.Timeout)
		defer cancel()
	}

	state = state.Snapshot()
	result := &LoopResult{
		ConversationID: state.ConversationID,
		State:          StateAwaitingSelection,
		StartTime:      time.Now(),
	}
	finish := func(reason string, err error) (*LoopResult, error) {
		result.Messages = state.Messages
		result.StopReason = reason
		result.EndTime = time.Now()
		l.logger.Info("chat loop stopped",
			zap.String("conversation_id", state.ConversationID),
			zap.String("reason", reason),
			zap.Int("rounds", result.Rounds),
			zap.Error(err),
		)
		return result, err
	}

	l.logger.Info("chat loop started",
		zap.String("conversation_id", state.ConversationID),
		zap.Int("agents", len(state.Agents)),
	)

	for {
		if l.config.MaxRounds > 0 && result.Rounds >= l.config.MaxRounds {
			return finish(StopMaxRounds, nil)
		}
		if err := ctx.Err(); err != nil {
			return finish("canceled", err)
		}

		sel, err := l.scheduler.SelectNext(ctx, state)
		if err != nil {
			return finish("canceled", err)
		}
		if sel == nil {
			if err := l.transition(result, EventNoSelection); err != nil {
				return finish("invalid_state", err)
			}
			return finish(StopEmpty, nil)
		}
		result.Selections = append(result.Selections, *sel)
		if err := l.transition(result, EventAgentSelected); err != nil {
			return finish("invalid_state", err)
		}

		agent, _ := state.AgentByID(sel.AgentID)
		content, err := l.replies.Reply(ctx, agent, state.Snapshot())
		if err != nil {
			return finish("reply_failed", fmt.Errorf("agent %s reply: %w", agent.ID, err))
		}
		state.Messages = append(state.Messages, types.NewAgentMessage(agent.ID, content))
		result.Rounds++
		if err := l.transition(result, EventReplyAppended); err != nil {
			return finish("invalid_state", err)
		}

		d, err := l.scheduler.ShouldTerminate(ctx, state)
		if err != nil {
			return finish("canceled", err)
		}
		result.Termination = &d
		if d.ShouldTerminate {
			if err := l.transition(result, EventTerminate); err != nil {
				return finish("invalid_state", err)
			}
			return finish(StopPaused, nil)
		}
		if err := l.transition(result, EventContinue); err != nil {
			return finish("invalid_state", err)
		}
	}
}

// Resume appends a new user message to a paused conversation and runs the
// loop again.
func (l *Loop) Resume(ctx context.Context, state types.ConversationState, userMessage string) (*LoopResult, error) {
	state = state.Snapshot()
	state.Messages = append(state.Messages, types.NewUserMessage(userMessage))
	return l.Run(ctx, state)
}

func (l *Loop) transition(result *LoopResult, ev TurnEvent) error {
	next, err := result.State.Next(ev)
	if err != nil {
		return err
	}
	l.logger.Debug("turn state",
		zap.String("conversation_id", result.ConversationID),
		zap.String("from", string(result.State)),
		zap.String("to", string(next)),
	)
	result.State = next
	return nil
}
