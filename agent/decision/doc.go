// Package decision 向 LLM 预言机请求结构化调度决策。
//
// 每次决策是一个带 Schema 的 GenerateStructured 调用：回复经 JSON 提取、
// Schema 校验、解码后返回。校验失败与传输失败按 retry.RetryPolicy 退避重试；
// 调用方取消立即返回，不重试也不计为耗尽；不支持的 Provider 从不重试。
// 重试耗尽时返回 *types.DecisionExhaustedError。
package decision
