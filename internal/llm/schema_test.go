package llm

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["ok", "text", "tags"],
  "properties": {
    "ok": {"type": "boolean"},
    "text": {"type": "string"},
    "tags": {"type": "array", "items": {"type": "string"}},
    "score": {"type": "integer"}
  }
}`

func mustSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := ParseSchema("test_schema", []byte(testSchema))
	require.NoError(t, err)
	return s
}

func TestParseSchema(t *testing.T) {
	s := mustSchema(t)
	assert.Equal(t, "test_schema", s.Name)
	assert.NotContains(t, string(s.Raw()), "\n")
}

func TestParseSchemaRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"root not object", `{"type":"string"}`},
		{"required not a list", `{"type":"object","required":"x"}`},
		{"items not a schema", `{"type":"object","properties":{"a":{"type":"array","items":7}}}`},
		{"unsupported type", `{"type":"object","properties":{"a":{"type":"date"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchema("s", []byte(tt.raw))
			assert.Error(t, err)
		})
	}

	_, err := ParseSchema(" ", []byte(testSchema))
	assert.Error(t, err)
}

func TestSchemaCheck(t *testing.T) {
	s := mustSchema(t)

	tests := []struct {
		name    string
		data    string
		wantErr []string
	}{
		{name: "valid", data: `{"ok":true,"text":"hi","tags":[]}`},
		{name: "valid with optional", data: `{"ok":false,"text":"","tags":["a"],"score":3}`},
		{name: "not json", data: `nope`, wantErr: []string{"not valid JSON"}},
		{name: "trailing value", data: `{"ok":true,"text":"","tags":[]} {}`, wantErr: []string{"not valid JSON"}},
		{name: "trailing brace", data: `{"ok":true,"text":"","tags":[]}}`, wantErr: []string{"not valid JSON"}},
		{name: "trailing bracket", data: `{"ok":true,"text":"","tags":[]}]`, wantErr: []string{"not valid JSON"}},
		{name: "array root", data: `[]`, wantErr: []string{"$: ", "want object"}},
		{name: "missing field", data: `{"ok":true,"text":"hi"}`, wantErr: []string{"missing", "tags"}},
		{name: "extra field", data: `{"ok":true,"text":"hi","tags":[],"extra":1}`, wantErr: []string{"extra", "not allowed"}},
		{name: "null field", data: `{"ok":true,"text":null,"tags":[]}`, wantErr: []string{"$.text: ", "got null"}},
		{name: "null tags", data: `{"ok":true,"text":"","tags":null}`, wantErr: []string{"$.tags: ", "got null"}},
		{name: "wrong type", data: `{"ok":"yes","text":"","tags":[]}`, wantErr: []string{"$.ok: ", "want boolean"}},
		{name: "wrong item type", data: `{"ok":true,"text":"","tags":[1]}`, wantErr: []string{"$.tags[0]: ", "want string"}},
		{name: "fractional integer", data: `{"ok":true,"text":"","tags":[],"score":1.5}`, wantErr: []string{"$.score: ", "want integer"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Check([]byte(tt.data))
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchemaViolation))
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestDecodeStrict(t *testing.T) {
	s := mustSchema(t)

	type out struct {
		OK   bool     `json:"ok"`
		Text string   `json:"text"`
		Tags []string `json:"tags"`
	}

	got, err := DecodeStrict[out](s, []byte(`{"ok":true,"text":"hello","tags":["x","y"]}`))
	require.NoError(t, err)
	assert.Equal(t, out{OK: true, Text: "hello", Tags: []string{"x", "y"}}, got)

	_, err = DecodeStrict[out](s, []byte(`{"ok":true}`))
	var sv *SchemaViolationError
	require.True(t, errors.As(err, &sv))
}
