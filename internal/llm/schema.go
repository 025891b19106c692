package llm

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Schema is a JSON schema sent with a structured call and used to check the
// answer locally before anything is decoded.
type Schema struct {
	Name     string
	raw      json.RawMessage
	compiled *jsonschema.Schema
}

var messages = message.NewPrinter(language.English)

func ParseSchema(name string, raw []byte) (*Schema, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("schema name must not be empty")
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "parse schema %s", name)
	}
	root, ok := doc.(map[string]any)
	if !ok || root["type"] != "object" {
		return nil, errors.Newf("schema %s: root must be an object schema", name)
	}

	url := name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, errors.Wrapf(err, "schema %s", name)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, errors.Wrapf(err, "compile schema %s", name)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, errors.Wrapf(err, "compact schema %s", name)
	}

	return &Schema{Name: name, raw: compact.Bytes(), compiled: compiled}, nil
}

// Raw returns the schema document as sent to the provider.
func (s *Schema) Raw() json.RawMessage {
	out := make(json.RawMessage, len(s.raw))
	copy(out, s.raw)
	return out
}

// Check reports whether data is a single JSON value matching the schema.
// Every failure is a *SchemaViolationError.
func (s *Schema) Check(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return schemaViolation("output is not valid JSON: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return schemaViolation("output is not valid JSON: unexpected data after the top-level value")
	}

	if err := s.compiled.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return violationFrom(ve)
		}
		return schemaViolation("%v", err)
	}
	return nil
}

// DecodeStrict checks data against s and decodes it into T.
func DecodeStrict[T any](s *Schema, data []byte) (T, error) {
	var out T
	if err := s.Check(data); err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, schemaViolation("decode: %v", err)
	}
	return out, nil
}

// violationFrom reports the first leaf cause, located like "$.tags[0]".
func violationFrom(ve *jsonschema.ValidationError) *SchemaViolationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return schemaViolation("%s: %s", instancePath(ve.InstanceLocation), ve.ErrorKind.LocalizedString(messages))
}

func instancePath(loc []string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range loc {
		if _, err := strconv.Atoi(seg); err == nil {
			b.WriteString("[" + seg + "]")
			continue
		}
		b.WriteString("." + seg)
	}
	return b.String()
}
