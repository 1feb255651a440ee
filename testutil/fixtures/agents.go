// =============================================================================
// 📦 测试数据工厂 - Agent 与对话状态
// =============================================================================
// 提供预定义的 Agent 名册和对话快照，用于调度测试
// =============================================================================
package fixtures

import (
	"fmt"
	"time"

	"github.com/BaSui01/turnkeeper/types"
)

// baseTime 固定的测试起始时间，保证快照可比较
var baseTime = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

// =============================================================================
// 🤖 Agent 名册
// =============================================================================

// Agent 返回一个以 id 命名的 Agent
func Agent(id string) types.Agent {
	return types.Agent{
		ID:              id,
		Name:            "Agent " + id,
		Characteristics: fmt.Sprintf("%s is a concise, helpful specialist.", id),
	}
}

// Roster 按给定顺序返回 Agent 名册
func Roster(ids ...string) []types.Agent {
	agents := make([]types.Agent, 0, len(ids))
	for _, id := range ids {
		agents = append(agents, Agent(id))
	}
	return agents
}

// ThreeAgents 返回 A、B、C 三个 Agent
func ThreeAgents() []types.Agent {
	return Roster("A", "B", "C")
}

// =============================================================================
// 💬 对话历史
// =============================================================================

// Messages 按发言者顺序构造消息，"user" 生成用户消息
func Messages(speakers ...string) []types.Message {
	msgs := make([]types.Message, 0, len(speakers))
	for i, s := range speakers {
		m := types.Message{
			Speaker:   s,
			Role:      types.RoleAssistant,
			Content:   fmt.Sprintf("message %d from %s", i+1, s),
			Timestamp: baseTime.Add(time.Duration(i) * time.Minute),
		}
		if s == types.SpeakerUser {
			m.Role = types.RoleUser
		}
		msgs = append(msgs, m)
	}
	return msgs
}

// State 构造对话快照
func State(id string, agents []types.Agent, speakers ...string) types.ConversationState {
	return types.ConversationState{
		ConversationID: id,
		Agents:         agents,
		Messages:       Messages(speakers...),
	}
}
