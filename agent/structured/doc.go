// Copyright 2026 AgentFlow Authors
// Use of this source code is governed by the project license.

/*
# 概述

包 structured 为调度决策提供结构化输出的 Schema 建模、生成与校验能力。

决策类型（选人、终止判断）以 Go 结构体声明，SchemaGenerator 通过反射与
jsonschema 标签生成 JSON Schema；OutputSchema[T] 持有编译后的校验器，
对模型回复先校验后解码。

# 主要类型

  - JSONSchema — 决策所需的 JSON Schema 子集
  - SchemaGenerator — 从 Go 类型生成 JSONSchema
  - Validator — 基于 kaptinlin/jsonschema 的编译校验器
  - OutputSchema[T] — 类型、Schema 与校验器的绑定
  - ParseError — 解码或校验失败

# 典型用法

	var selection = structured.MustOutputSchema[AgentChoice]("agent_selection")
	choice, err := selection.Parse(raw)
*/
package structured
