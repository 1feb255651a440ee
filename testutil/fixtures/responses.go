// =============================================================================
// 📦 测试数据工厂 - 预言机响应
// =============================================================================
package fixtures

import "fmt"

// SelectionJSON 返回选人决策的 JSON
func SelectionJSON(agentID, reasoning string) string {
	return fmt.Sprintf(`{"agent_id":%q,"reasoning":%q}`, agentID, reasoning)
}

// TerminationJSON 返回终止判断的 JSON
func TerminationJSON(terminate bool, reason string) string {
	return fmt.Sprintf(`{"should_terminate":%t,"reason":%q}`, terminate, reason)
}

// FencedJSON 用 markdown 代码块包裹 JSON，模拟不守规矩的模型
func FencedJSON(doc string) string {
	return "Here is my decision:\n```json\n" + doc + "\n```"
}

// MalformedSelection 不符合 Schema 的选人响应
const MalformedSelection = `{"speaker":"A"}`
