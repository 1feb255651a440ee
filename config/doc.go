// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package config 提供 TurnKeeper 的配置加载。
//
// 配置按 默认值 → YAML 文件 → TURNKEEPER_* 环境变量 → 验证器 的顺序生效，
// 各子系统的配置结构（压缩器、选择器、重试、缓存）直接嵌入，
// 由命令行入口统一装配。
package config
