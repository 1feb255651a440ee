package structured

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pick struct {
	AgentID   string `json:"agent_id" jsonschema:"required,minLength=1,description=id of the next speaker"`
	Reasoning string `json:"reasoning" jsonschema:"required"`
}

type verdict struct {
	Stop   bool   `json:"stop" jsonschema:"required"`
	Mood   string `json:"mood,omitempty" jsonschema:"enum=calm,tense,done"`
	Rounds int    `json:"rounds,omitempty" jsonschema:"minimum=0,maximum=50"`
}

func TestGenerateSchema_Struct(t *testing.T) {
	schema, err := NewSchemaGenerator().GenerateSchema(reflect.TypeOf(pick{}))
	require.NoError(t, err)

	assert.Equal(t, TypeObject, schema.Type)
	assert.ElementsMatch(t, []string{"agent_id", "reasoning"}, schema.Required)
	require.NotNil(t, schema.AdditionalProperties)
	assert.False(t, schema.AdditionalProperties.Allowed)

	id := schema.Property("agent_id")
	require.NotNil(t, id)
	assert.Equal(t, TypeString, id.Type)
	assert.Equal(t, "id of the next speaker", id.Description)
	require.NotNil(t, id.MinLength)
	assert.Equal(t, 1, *id.MinLength)
}

func TestGenerateSchema_TagOptions(t *testing.T) {
	schema, err := NewSchemaGenerator().GenerateSchema(reflect.TypeOf(&verdict{}))
	require.NoError(t, err)

	assert.Equal(t, []string{"stop"}, schema.Required)
	assert.Equal(t, []any{"calm", "tense", "done"}, schema.Property("mood").Enum)
	rounds := schema.Property("rounds")
	require.NotNil(t, rounds.Minimum)
	assert.Equal(t, 0.0, *rounds.Minimum)
	assert.Equal(t, 50.0, *rounds.Maximum)
}

func TestParseTagOptions(t *testing.T) {
	tests := []struct {
		tag  string
		want map[string]string
	}{
		{"", map[string]string{}},
		{"required", map[string]string{"required": ""}},
		{"required,enum=a,b,c", map[string]string{"required": "", "enum": "a,b,c"}},
		{"enum=a,b,required", map[string]string{"required": "", "enum": "a,b"}},
		{"description=one, two,minLength=1", map[string]string{"description": "one,two", "minLength": "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTagOptions(tt.tag))
		})
	}
}

func TestGenerateSchema_BadTag(t *testing.T) {
	type bad struct {
		N int `json:"n" jsonschema:"minimum=abc"`
	}
	_, err := NewSchemaGenerator().GenerateSchema(reflect.TypeOf(bad{}))
	require.Error(t, err)
}

func TestOutputSchema_Parse(t *testing.T) {
	s, err := NewOutputSchema[pick]("agent_selection")
	require.NoError(t, err)
	assert.Equal(t, "agent_selection", s.Name())
	assert.True(t, json.Valid(s.Raw()))

	got, err := s.Parse([]byte(`{"agent_id":"bob","reasoning":"bob has not spoken"}`))
	require.NoError(t, err)
	assert.Equal(t, pick{AgentID: "bob", Reasoning: "bob has not spoken"}, got)
}

func TestOutputSchema_ParseFailures(t *testing.T) {
	s := MustOutputSchema[pick]("agent_selection")

	tests := []struct {
		name      string
		data      string
		wantStage string
	}{
		{"not json", `agent bob`, "decode"},
		{"missing required", `{"agent_id":"bob"}`, "validate"},
		{"wrong type", `{"agent_id":7,"reasoning":"x"}`, "validate"},
		{"empty id", `{"agent_id":"","reasoning":"x"}`, "validate"},
		{"extra field", `{"agent_id":"a","reasoning":"x","mood":"calm"}`, "validate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Parse([]byte(tt.data))
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, tt.wantStage, pe.Stage)
		})
	}
}

func TestNewOutputSchemaWithSchema(t *testing.T) {
	_, err := NewOutputSchemaWithSchema[pick]("x", nil)
	require.Error(t, err)

	schema := NewObjectSchema()
	schema.Properties["ok"] = &JSONSchema{Type: TypeBoolean}
	schema.Required = []string{"ok"}
	s, err := NewOutputSchemaWithSchema[map[string]bool]("flag", schema)
	require.NoError(t, err)

	v, err := s.Parse([]byte(`{"ok":true}`))
	require.NoError(t, err)
	assert.True(t, v["ok"])
}

func TestAdditionalProperties_JSON(t *testing.T) {
	data, err := json.Marshal(&AdditionalProperties{Allowed: false})
	require.NoError(t, err)
	assert.Equal(t, "false", string(data))

	var ap AdditionalProperties
	require.NoError(t, json.Unmarshal([]byte(`{"type":"string"}`), &ap))
	assert.True(t, ap.Allowed)
	assert.Equal(t, TypeString, ap.Schema.Type)

	assert.Error(t, ap.UnmarshalJSON([]byte(`"nope"`)))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	out := truncate(strings.Repeat("你", 4), 4)
	assert.Equal(t, "你...", out)
}
