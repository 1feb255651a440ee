// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 context 把群聊历史压缩为有界的提示词上下文。

# 概述

调度决策需要把对话历史放进预言机提示词，而历史会持续增长。
Compressor 对短历史原样输出，对长历史把较早的部分交给模型做一次
摘要，只保留最近若干条原文。

# 核心模型

  - Compressor：Compress / CompressWindow，无对话级可变状态
  - CompressorConfig：MaxVerbatim(10) / MaxSummaryTokens(1500) /
    MaxSummaryInputTokens(12000)
  - SummaryCache：摘要缓存接口，MemoryCache 为进程内实现，
    internal/cache 提供 Redis 实现
  - FormatTranscript：每条消息一行 "speaker: content"

# 行为约定

  - 消息数不超过 MaxVerbatim 时不调用模型，重复调用结果逐字节一致
  - 摘要调用失败原样返回错误，本包不重试
  - 缓存读写失败只记录日志，不影响压缩结果
  - 摘要输入超过 MaxSummaryInputTokens 时按 llm/tokenizer 从头部截断
*/
package context
