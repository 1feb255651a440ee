// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 turnkeeper 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent/context、agent/decision、
agent/conversation、llm 等上层模块提供统一的数据契约，以避免循环依赖。

# 核心类型

  - Agent               — 参与群聊的智能体（ID / Name / Characteristics），只读
  - Message             — 对话消息（Speaker / Role / Content / Timestamp）
  - ConversationState   — 一次调度决策所使用的对话快照
  - AgentSelection      — 发言人选择结果（oracle / override / fallback）
  - TerminationDecision — 是否暂停群聊的判定结果
  - Error / ErrorCode   — 结构化错误体系，含 Retryable、Provider 标记
  - DecisionExhaustedError / UnsupportedProviderError — 调度核心的专用错误
*/
package types
