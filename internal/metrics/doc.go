// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供调度决策的 Prometheus 指标采集。

# 概述

Collector 通过 promauto.With 注册到调用方提供的 Registry，
测试与多实例场景互不干扰。它直接实现各组件的观测接口，
无需额外适配层：

  - retry.Observer：失败的决策尝试，按错误码分组
  - decision.Recorder：预言机调用次数与耗时、决策结果与尝试次数
  - conversation.Recorder：选人来源（oracle / override / fallback）、
    终止判断结果（terminate / continue / fallback）
  - ObserveBreakerState：可作为熔断器的 OnStateChange 回调

Handler 返回对应 Registry 的 /metrics 处理器。
*/
package metrics
