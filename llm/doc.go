// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供调度器所需的模型接入层：chat-completion Provider 抽象、
面向决策的 ModelProvider 能力接口，以及带限流与熔断的共享客户端池。

# 概述

调度器只消费两种能力：GenerateText（历史摘要、参考循环中的发言）
与 GenerateStructured（选人与终止判断）。ChatModel 把任意
chat-completion Provider 适配为 ModelProvider：结构化请求同时以
response_format: json_schema 与系统提示词中的 Schema 说明下发，
回复中的 markdown 代码块或多余文字由 ExtractJSON 剥离。

# 核心接口

  - [Provider]：Completion / HealthCheck / Name
  - [ModelProvider]：GenerateText / GenerateStructured

# 客户端池

[ClientPool] 按 (provider, model) 缓存一个 [GuardedModel]，并发首次请求
只构建一次（singleflight）。GuardedModel 在调用前经 golang.org/x/time/rate
限流，调用经 llm/circuitbreaker 熔断；熔断打开与本地限流失败映射为可重试的
[Error]，调用方取消与客户端错误不计入熔断。

# 错误

[Error] 携带 [ErrorCode]、HTTP 状态码与 Retryable 标记，
由 llm/providers.MapHTTPError 从上游响应生成。
*/
package llm
