package structured

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SchemaGenerator 通过反射从 Go 类型生成 JSON Schema.
type SchemaGenerator struct {
	// 记录正在处理的类型，用于处理递归类型
	visited map[reflect.Type]bool
}

// NewSchemaGenerator 创建 SchemaGenerator.
func NewSchemaGenerator() *SchemaGenerator {
	return &SchemaGenerator{
		visited: make(map[reflect.Type]bool),
	}
}

// GenerateSchema 从 Go 类型生成 JSON Schema，支持结构体、切片、map、指针和基本类型。
// 字段名取自 json 标签，约束取自 jsonschema 标签：
//   - required
//   - enum=a,b,c
//   - minimum=0 / maximum=100
//   - minLength=1 / maxLength=100
//   - pattern=^[a-z]+$
//   - minItems=1 / maxItems=10
//   - description=...
//   - default=...
func (g *SchemaGenerator) GenerateSchema(t reflect.Type) (*JSONSchema, error) {
	// 每次顶层调用重置 visited
	g.visited = make(map[reflect.Type]bool)
	return g.generateSchema(t)
}

// generateSchema 递归实现.
func (g *SchemaGenerator) generateSchema(t reflect.Type) (*JSONSchema, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot generate schema for nil type")
	}

	// 解引用指针
	if t.Kind() == reflect.Ptr {
		return g.generateSchema(t.Elem())
	}

	// 检查递归类型
	if g.visited[t] {
		// 递归类型返回占位对象
		return &JSONSchema{Type: TypeObject}, nil
	}

	switch t.Kind() {
	case reflect.String:
		return &JSONSchema{Type: TypeString}, nil

	case reflect.Bool:
		return &JSONSchema{Type: TypeBoolean}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &JSONSchema{Type: TypeInteger}, nil

	case reflect.Float32, reflect.Float64:
		return &JSONSchema{Type: TypeNumber}, nil

	case reflect.Slice, reflect.Array:
		return g.generateArraySchema(t)

	case reflect.Map:
		return g.generateMapSchema(t)

	case reflect.Struct:
		return g.generateStructSchema(t)

	case reflect.Interface:
		// 接口映射为任意类型
		return &JSONSchema{}, nil

	default:
		return nil, fmt.Errorf("unsupported type: %s", t.Kind())
	}
}

// generateArraySchema 处理切片/数组.
func (g *SchemaGenerator) generateArraySchema(t reflect.Type) (*JSONSchema, error) {
	elemSchema, err := g.generateSchema(t.Elem())
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema for array element: %w", err)
	}
	return &JSONSchema{Type: TypeArray, Items: elemSchema}, nil
}

// generateMapSchema 处理 map.
func (g *SchemaGenerator) generateMapSchema(t reflect.Type) (*JSONSchema, error) {
	// map 映射为带 additionalProperties 的对象
	valueSchema, err := g.generateSchema(t.Elem())
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema for map value: %w", err)
	}

	schema := NewObjectSchema()
	schema.AdditionalProperties = &AdditionalProperties{
		Allowed: true,
		Schema:  valueSchema,
	}
	return schema, nil
}

// generateStructSchema 处理结构体.
func (g *SchemaGenerator) generateStructSchema(t reflect.Type) (*JSONSchema, error) {
	g.visited[t] = true
	defer func() { g.visited[t] = false }()

	// 决策对象不接受额外字段，兼容 OpenAI strict 模式
	schema := NewObjectSchema()
	schema.AdditionalProperties = &AdditionalProperties{Allowed: false}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		// 跳过未导出字段
		if !field.IsExported() {
			continue
		}

		fieldName := getJSONFieldName(field)
		if fieldName == "-" {
			continue // Skip fields with json:"-"
		}

		fieldSchema, err := g.generateSchema(field.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to generate schema for field %s: %w", field.Name, err)
		}

		if err := applyJSONSchemaTag(fieldSchema, field); err != nil {
			return nil, fmt.Errorf("failed to apply jsonschema tag for field %s: %w", field.Name, err)
		}

		if isFieldRequired(field) {
			schema.Required = append(schema.Required, fieldName)
		}

		schema.Properties[fieldName] = fieldSchema
	}

	return schema, nil
}

// getJSONFieldName 取 json 标签中的字段名，缺省为结构体字段名.
func getJSONFieldName(field reflect.StructField) string {
	jsonTag := field.Tag.Get("json")
	if jsonTag == "" {
		return field.Name
	}

	parts := strings.Split(jsonTag, ",")
	name := parts[0]

	if name == "" {
		return field.Name
	}

	return name
}

// isFieldRequired 检查 jsonschema 标签中的 required.
func isFieldRequired(field reflect.StructField) bool {
	_, required := parseTagOptions(field.Tag.Get("jsonschema"))["required"]
	return required
}

// applyJSONSchemaTag 将 jsonschema 标签约束应用到 schema.
func applyJSONSchemaTag(schema *JSONSchema, field reflect.StructField) error {
	options := parseTagOptions(field.Tag.Get("jsonschema"))
	if len(options) == 0 {
		return nil
	}

	if desc, ok := options["description"]; ok {
		schema.Description = desc
	}
	if def, ok := options["default"]; ok {
		schema.Default = parseDefaultValue(def, field.Type)
	}
	if enumStr, ok := options["enum"]; ok {
		for _, v := range strings.Split(enumStr, ",") {
			schema.Enum = append(schema.Enum, strings.TrimSpace(v))
		}
	}
	if pattern, ok := options["pattern"]; ok {
		schema.Pattern = pattern
	}

	var err error
	if schema.MinLength, err = intOption(options, "minLength"); err != nil {
		return err
	}
	if schema.MaxLength, err = intOption(options, "maxLength"); err != nil {
		return err
	}
	if schema.MinItems, err = intOption(options, "minItems"); err != nil {
		return err
	}
	if schema.MaxItems, err = intOption(options, "maxItems"); err != nil {
		return err
	}
	if schema.Minimum, err = floatOption(options, "minimum"); err != nil {
		return err
	}
	if schema.Maximum, err = floatOption(options, "maximum"); err != nil {
		return err
	}
	return nil
}

func intOption(options map[string]string, key string) (*int, error) {
	raw, ok := options[key]
	if !ok {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s=%q: %w", key, raw, err)
	}
	return &v, nil
}

func floatOption(options map[string]string, key string) (*float64, error) {
	raw, ok := options[key]
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s=%q: %w", key, raw, err)
	}
	return &v, nil
}

// parseTagOptions 解析 "opt1,opt2=v2,opt3=v3" 格式的标签.
// enum=a,b,c 中的逗号属于值：逗号后的片段既不含 "=" 也不是已知布尔选项时，并入前一个值。
func parseTagOptions(tag string) map[string]string {
	options := make(map[string]string)
	lastKey := ""
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		switch {
		case hasValue && isTagKey(key):
			options[key] = value
			lastKey = key
		case boolTagOptions[part]:
			options[part] = ""
			lastKey = ""
		case lastKey != "":
			options[lastKey] += "," + part
		default:
			options[part] = ""
		}
	}
	return options
}

var boolTagOptions = map[string]bool{"required": true}

func isTagKey(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

// parseDefaultValue 按字段类型解析默认值.
func parseDefaultValue(value string, t reflect.Type) any {
	// 引用指针
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return value
	case reflect.Bool:
		return value == "true"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			return v
		}
	case reflect.Float32, reflect.Float64:
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return value
}

// GenerateSchemaFromValue 从值的类型生成 JSON Schema.
func (g *SchemaGenerator) GenerateSchemaFromValue(v any) (*JSONSchema, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot generate schema from nil value")
	}
	return g.GenerateSchema(reflect.TypeOf(v))
}
