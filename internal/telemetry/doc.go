// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为调度决策的 span（turnkeeper.decide / select_next / should_terminate）
// 配置 OTLP gRPC 导出。遥测禁用时保持 noop，不连接任何外部服务。
package telemetry
