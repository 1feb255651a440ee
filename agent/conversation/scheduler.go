package conversation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"sync"

	"github.com/BaSui01/turnkeeper/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TurnScheduler is what a chat loop needs from the core.
type TurnScheduler interface {
	SelectNext(ctx context.Context, state types.ConversationState) (*types.AgentSelection, error)
	ShouldTerminate(ctx context.Context, state types.ConversationState) (types.TerminationDecision, error)
}

// Scheduler combines the selector and the evaluator. Decisions of one
// conversation run one at a time; concurrent requests over an identical
// snapshot (same conversation id, roster and messages) share a single
// decision. Different conversations never wait for each other, and
// snapshots without a conversation id are never serialised.
type Scheduler struct {
	selector  *SpeakerSelector
	evaluator *TerminationEvaluator
	group     singleflight.Group
	locks     *keyedMutex
	logger    *zap.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(selector *SpeakerSelector, evaluator *TerminationEvaluator, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		selector:  selector,
		evaluator: evaluator,
		locks:     newKeyedMutex(),
		logger:    logger.With(zap.String("component", "scheduler")),
	}
}

// SelectNext implements TurnScheduler.
func (s *Scheduler) SelectNext(ctx context.Context, state types.ConversationState) (*types.AgentSelection, error) {
	snap := state.Snapshot()
	v, err := s.do(ctx, "select", snap, func(ctx context.Context) (any, error) {
		return s.selector.SelectNext(ctx, snap)
	})
	if err != nil {
		return nil, err
	}
	sel, _ := v.(*types.AgentSelection)
	if sel == nil {
		return nil, nil
	}
	out := *sel
	return &out, nil
}

// ShouldTerminate implements TurnScheduler.
func (s *Scheduler) ShouldTerminate(ctx context.Context, state types.ConversationState) (types.TerminationDecision, error) {
	snap := state.Snapshot()
	v, err := s.do(ctx, "terminate", snap, func(ctx context.Context) (any, error) {
		return s.evaluator.ShouldTerminate(ctx, snap)
	})
	if err != nil {
		return types.TerminationDecision{}, err
	}
	d, _ := v.(types.TerminationDecision)
	return d, nil
}

// do runs fn under the conversation lock, deduplicated by snapshot digest.
func (s *Scheduler) do(ctx context.Context, op string, state types.ConversationState, fn func(context.Context) (any, error)) (any, error) {
	key := op + ":" + state.ConversationID + ":" + snapshotDigest(state)
	for {
		ch := s.group.DoChan(key, func() (any, error) {
			if state.ConversationID != "" {
				unlock, err := s.locks.lock(ctx, state.ConversationID)
				if err != nil {
					return nil, err
				}
				defer unlock()
			}
			return fn(ctx)
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil && isCancellation(res.Err) && ctx.Err() == nil {
				// 共享调用被发起方取消，而本调用方仍然有效：重新发起
				s.logger.Debug("shared decision canceled by another caller, retrying",
					zap.String("key", key))
				continue
			}
			if res.Shared {
				s.logger.Debug("decision shared", zap.String("key", key))
			}
			return res.Val, res.Err
		}
	}
}

// snapshotDigest 对名册与消息内容取 sha256，字段带长度前缀避免拼接歧义
func snapshotDigest(state types.ConversationState) string {
	h := sha256.New()
	write := func(v string) {
		h.Write([]byte(strconv.Itoa(len(v))))
		h.Write([]byte{':'})
		h.Write([]byte(v))
	}
	write(strconv.Itoa(len(state.Agents)))
	for _, a := range state.Agents {
		write(a.ID)
		write(a.Name)
		write(a.Characteristics)
	}
	write(strconv.Itoa(len(state.Messages)))
	for _, m := range state.Messages {
		write(m.Speaker)
		write(string(m.Role))
		write(m.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// keyedMutex 按对话 ID 加锁，无人使用时释放条目
type keyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{slots: make(map[string]*slot)}
}

func (k *keyedMutex) lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	sl, ok := k.slots[key]
	if !ok {
		sl = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = sl
	}
	sl.refs++
	k.mu.Unlock()

	select {
	case sl.ch <- struct{}{}:
		return func() {
			<-sl.ch
			k.release(key, sl)
		}, nil
	case <-ctx.Done():
		k.release(key, sl)
		return nil, ctx.Err()
	}
}

func (k *keyedMutex) release(key string, sl *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(k.slots, key)
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}

var _ TurnScheduler = (*Scheduler)(nil)
