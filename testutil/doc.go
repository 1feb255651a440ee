// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供调度器测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertSpeakers / AssertJSONEqual / AssertEventuallyTrue
  - 并发辅助: RunConcurrently / WaitForChannel
  - 数据工具: MustJSON / MustParseJSON

# 子包

  - testutil/mocks: MockModel（llm.ModelProvider），支持脚本化响应、
    错误注入、延迟与调用记录
  - testutil/fixtures: Agent 名册、对话快照与预言机响应样例

# 使用示例

	model := mocks.NewMockModel().
		WithStructuredJSON(fixtures.SelectionJSON("B", "B has context"))
	state := fixtures.State("conv-1", fixtures.ThreeAgents(), "user", "A")
*/
package testutil
