package structured

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// OutputSchema binds a Go type to its generated JSON Schema and a compiled
// validator. Build it once and share it; it holds no mutable state.
type OutputSchema[T any] struct {
	name      string
	schema    *JSONSchema
	raw       json.RawMessage
	validator *Validator
}

// NewOutputSchema generates the schema for T and compiles its validator.
func NewOutputSchema[T any](name string) (*OutputSchema[T], error) {
	var zero T
	schema, err := NewSchemaGenerator().GenerateSchema(reflect.TypeOf(zero))
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema for type %T: %w", zero, err)
	}
	return NewOutputSchemaWithSchema[T](name, schema)
}

// NewOutputSchemaWithSchema uses a caller-supplied schema for T.
func NewOutputSchemaWithSchema[T any](name string, schema *JSONSchema) (*OutputSchema[T], error) {
	if schema == nil {
		return nil, fmt.Errorf("schema cannot be nil")
	}
	raw, err := schema.ToJSON()
	if err != nil {
		return nil, err
	}
	validator, err := CompileValidator(raw)
	if err != nil {
		return nil, err
	}
	return &OutputSchema[T]{name: name, schema: schema, raw: raw, validator: validator}, nil
}

// MustOutputSchema is NewOutputSchema for package-level schemas.
func MustOutputSchema[T any](name string) *OutputSchema[T] {
	s, err := NewOutputSchema[T](name)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name sent to the provider.
func (s *OutputSchema[T]) Name() string { return s.name }

// Schema returns the schema definition.
func (s *OutputSchema[T]) Schema() *JSONSchema { return s.schema }

// Raw returns the serialised schema.
func (s *OutputSchema[T]) Raw() json.RawMessage { return s.raw }

// Parse validates data against the schema and decodes it into T.
func (s *OutputSchema[T]) Parse(data []byte) (T, error) {
	var out T
	if err := s.validator.Validate(data); err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, &ParseError{Stage: "decode", Message: err.Error(), Raw: truncate(string(data), 512)}
	}
	return out, nil
}
