package structured

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

// ParseError represents a decode or validation failure of an oracle reply.
type ParseError struct {
	Stage   string `json:"stage"` // "decode" or "validate"
	Message string `json:"message"`
	Raw     string `json:"raw,omitempty"`
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("structured output %s failed: %s", e.Stage, e.Message)
}

// Validator checks JSON documents against one compiled schema.
// It is safe for concurrent use once built.
type Validator struct {
	schema *jsonschema.Schema
}

// CompileValidator compiles a raw JSON Schema document.
func CompileValidator(raw json.RawMessage) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate decodes data and validates it against the schema.
func (v *Validator) Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return &ParseError{Stage: "decode", Message: err.Error(), Raw: truncate(string(data), 512)}
	}
	result := v.schema.Validate(doc)
	if !result.IsValid() {
		return &ParseError{Stage: "validate", Message: result.Error(), Raw: truncate(string(data), 512)}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// 回退到 UTF-8 字符边界
	for n > 0 && (s[n]&0xC0) == 0x80 {
		n--
	}
	return s[:n] + "..."
}
