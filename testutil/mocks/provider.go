// MockModel 是 llm.ModelProvider 的测试模拟实现。
//
// 支持脚本化响应队列、错误注入、延迟与调用记录。
package mocks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/BaSui01/turnkeeper/llm"
)

// ErrScriptExhausted 脚本响应用尽且未配置默认响应时返回。
var ErrScriptExhausted = errors.New("mock: no scripted response left")

// Reply 是一条脚本化响应：Err 非空时返回错误，否则返回 Content。
type Reply struct {
	Content string
	Err     error
}

// MockModelCall 记录单次调用
type MockModelCall struct {
	Kind       string // "text" 或 "structured"
	Text       *llm.TextRequest
	Structured *llm.StructuredRequest
	Err        error
}

// MockModel 是 llm.ModelProvider 的模拟实现
type MockModel struct {
	mu sync.Mutex

	// 结构化响应脚本，按调用顺序消费
	structured []Reply
	// 文本响应脚本（摘要）
	text []Reply

	defaultStructured *Reply
	defaultText       *Reply

	structuredFunc func(ctx context.Context, req llm.StructuredRequest) (json.RawMessage, error)
	textFunc       func(ctx context.Context, req llm.TextRequest) (string, error)

	delay time.Duration
	calls []MockModelCall
}

// --- 构造函数和 Builder 方法 ---

// NewMockModel 创建新的 MockModel
func NewMockModel() *MockModel {
	return &MockModel{}
}

// WithStructuredReplies 追加结构化响应脚本
func (m *MockModel) WithStructuredReplies(replies ...Reply) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.structured = append(m.structured, replies...)
	return m
}

// WithStructuredJSON 追加若干成功的结构化响应
func (m *MockModel) WithStructuredJSON(docs ...string) *MockModel {
	replies := make([]Reply, len(docs))
	for i, d := range docs {
		replies[i] = Reply{Content: d}
	}
	return m.WithStructuredReplies(replies...)
}

// WithTextReplies 追加文本响应脚本
func (m *MockModel) WithTextReplies(replies ...Reply) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = append(m.text, replies...)
	return m
}

// WithDefaultStructured 脚本用尽后的结构化响应
func (m *MockModel) WithDefaultStructured(r Reply) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultStructured = &r
	return m
}

// WithDefaultText 脚本用尽后的文本响应
func (m *MockModel) WithDefaultText(r Reply) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultText = &r
	return m
}

// WithStructuredFunc 设置自定义结构化生成函数，优先于脚本
func (m *MockModel) WithStructuredFunc(fn func(ctx context.Context, req llm.StructuredRequest) (json.RawMessage, error)) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.structuredFunc = fn
	return m
}

// WithTextFunc 设置自定义文本生成函数，优先于脚本
func (m *MockModel) WithTextFunc(fn func(ctx context.Context, req llm.TextRequest) (string, error)) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textFunc = fn
	return m
}

// WithDelay 设置响应延迟，延迟期间尊重 ctx 取消
func (m *MockModel) WithDelay(d time.Duration) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// --- ModelProvider 接口实现 ---

// GenerateStructured 实现 llm.ModelProvider
func (m *MockModel) GenerateStructured(ctx context.Context, req llm.StructuredRequest) (json.RawMessage, error) {
	if err := m.wait(ctx); err != nil {
		m.record(MockModelCall{Kind: "structured", Structured: &req, Err: err})
		return nil, err
	}

	m.mu.Lock()
	fn := m.structuredFunc
	var reply Reply
	if fn == nil {
		reply = m.next(&m.structured, m.defaultStructured)
	}
	m.mu.Unlock()

	if fn != nil {
		out, err := fn(ctx, req)
		m.record(MockModelCall{Kind: "structured", Structured: &req, Err: err})
		return out, err
	}
	m.record(MockModelCall{Kind: "structured", Structured: &req, Err: reply.Err})
	if reply.Err != nil {
		return nil, reply.Err
	}
	return json.RawMessage(reply.Content), nil
}

// GenerateText 实现 llm.ModelProvider
func (m *MockModel) GenerateText(ctx context.Context, req llm.TextRequest) (string, error) {
	if err := m.wait(ctx); err != nil {
		m.record(MockModelCall{Kind: "text", Text: &req, Err: err})
		return "", err
	}

	m.mu.Lock()
	fn := m.textFunc
	var reply Reply
	if fn == nil {
		reply = m.next(&m.text, m.defaultText)
	}
	m.mu.Unlock()

	if fn != nil {
		out, err := fn(ctx, req)
		m.record(MockModelCall{Kind: "text", Text: &req, Err: err})
		return out, err
	}
	m.record(MockModelCall{Kind: "text", Text: &req, Err: reply.Err})
	return reply.Content, reply.Err
}

// next 弹出脚本头部；调用方持有锁
func (m *MockModel) next(queue *[]Reply, def *Reply) Reply {
	if len(*queue) > 0 {
		r := (*queue)[0]
		*queue = (*queue)[1:]
		return r
	}
	if def != nil {
		return *def
	}
	return Reply{Err: ErrScriptExhausted}
}

func (m *MockModel) wait(ctx context.Context) error {
	m.mu.Lock()
	d := m.delay
	m.mu.Unlock()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *MockModel) record(c MockModelCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// --- 查询方法 ---

// Calls 返回所有调用记录的副本
func (m *MockModel) Calls() []MockModelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockModelCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// StructuredCalls 返回结构化调用次数
func (m *MockModel) StructuredCalls() int { return m.count("structured") }

// TextCalls 返回文本调用次数
func (m *MockModel) TextCalls() int { return m.count("text") }

func (m *MockModel) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// LastStructuredRequest 返回最后一次结构化请求
func (m *MockModel) LastStructuredRequest() *llm.StructuredRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Kind == "structured" {
			return m.calls[i].Structured
		}
	}
	return nil
}

// Reset 清空脚本与调用记录
func (m *MockModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.structured = nil
	m.text = nil
	m.calls = nil
}

var _ llm.ModelProvider = (*MockModel)(nil)
