// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 提供模型服务商适配的公共基础层。openaicompat 等具体实现依赖
本包完成请求/响应转换与错误映射。

# 核心类型

  - BaseProviderConfig — 所有 Provider 共享的基础配置（APIKey、BaseURL、Model、Timeout）
  - OpenAICompat* 系列 — OpenAI 兼容 API 的请求/响应结构体，含 response_format

# 核心函数

  - MapHTTPError — 将 HTTP 状态码映射为语义化的 llm.Error（含 Retryable 标记）
  - ReadErrorMessage — 解析上游错误体
  - ConvertMessagesToOpenAI / ToLLMChatResponse — 消息与响应格式转换
  - ChooseModel — 按优先级选择模型（请求 > 默认 > 兜底）
*/
package providers
