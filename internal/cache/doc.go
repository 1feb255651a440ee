// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的对话摘要缓存。

# 概述

长对话每次调度都要对较早的历史做摘要。RedisSummaryCache 实现
agent/context.SummaryCache，让多个调度进程共享同一份摘要结果，
避免对同一段历史重复调用模型。

# 核心类型

  - RedisSummaryCache：持有 go-redis 客户端，提供 Get / Set / Ping /
    Close，后台定时健康检查
  - Config：地址、密码、键前缀、TTL、连接池与健康检查间隔

# 错误语义

未命中返回 ok=false 而非错误；关闭后的调用返回 ErrClosed。
缓存错误由调用方记录并忽略，不影响调度决策。
*/
package cache
