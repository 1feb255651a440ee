// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 conversation 实现群聊的轮次调度：下一位由谁发言，以及何时暂停。

# 概述

每条消息之后，外部聊天循环调用 SelectNext 选出下一位 Agent，
追加其发言后调用 ShouldTerminate 判断是否暂停等待用户。两者都向
LLM 预言机请求结构化决策，预言机失败时退回确定性结果，保证对话
不会卡死、不会无限循环、也不会被同几位 Agent 反复占据。

# 核心模型

  - LastSpeakers：纯函数，从新到旧取最多 window 个不同发言者
  - SpeakerSelector：选人；反重复覆盖与确定性兜底
  - TerminationEvaluator：终止判断；任何失败都视为继续
  - Scheduler：组合二者，按对话串行化并用 singleflight 合并重复请求
  - TurnState：AWAITING_SELECTION → AGENT_SPEAKING →
    TERMINATION_CHECK → AWAITING_SELECTION | PAUSED
  - Loop：参考聊天循环，驱动状态机直到暂停

# 错误约定

SelectNext 与 ShouldTerminate 只会返回调用方的 ctx.Err()；
其余失败全部被吸收为兜底结果并记录 Warn 日志。空名册返回 nil 选择。
*/
package conversation
