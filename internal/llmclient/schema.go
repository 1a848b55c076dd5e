package llmclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaMismatch is returned when a model's object does not fit the schema.
var ErrSchemaMismatch = errors.New("response does not match schema")

// Kind is the value type of a schema field. Only these three are ever requested.
type Kind int

const (
	KindString Kind = iota
	KindBoolean
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindEnum:
		return "enum"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Field is one named answer slot.
type Field struct {
	Name    string
	Kind    Kind
	Options []string
}

// Schema is an ordered set of fields with unique names.
type Schema struct {
	Fields []Field
}

// Add appends a field. A field whose name is already present is ignored and
// false is returned.
func (s *Schema) Add(f Field) bool {
	if s.Has(f.Name) {
		return false
	}
	s.Fields = append(s.Fields, f)
	return true
}

// Has reports whether a field with the given name exists.
func (s Schema) Has(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Names returns the field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// JSONSchema renders the schema as a strict JSON Schema object: every field is
// required and no other properties are allowed.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		switch f.Kind {
		case KindBoolean:
			props[f.Name] = map[string]any{"type": "boolean"}
		case KindEnum:
			props[f.Name] = map[string]any{"type": "string", "enum": append([]string(nil), f.Options...)}
		default:
			props[f.Name] = map[string]any{"type": "string"}
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             s.Names(),
		"additionalProperties": false,
	}
}

// Decode parses raw model output and validates it.
func (s Schema) Decode(raw string) (map[string]any, error) {
	raw = stripFence(raw)
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %v", ErrSchemaMismatch, err)
	}
	return s.Validate(obj)
}

// Validate checks obj against the schema and returns only the declared
// fields. Unknown keys are dropped; missing keys and wrong types are errors.
func (s Schema) Validate(obj map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		v, ok := obj[f.Name]
		if !ok {
			return nil, fmt.Errorf("%w: missing field %q", ErrSchemaMismatch, f.Name)
		}
		switch f.Kind {
		case KindBoolean:
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: field %q must be a boolean", ErrSchemaMismatch, f.Name)
			}
			out[f.Name] = b
		case KindEnum:
			str, ok := v.(string)
			if !ok || !contains(f.Options, str) {
				return nil, fmt.Errorf("%w: field %q must be one of %q", ErrSchemaMismatch, f.Name, f.Options)
			}
			out[f.Name] = str
		default:
			str, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: field %q must be a string", ErrSchemaMismatch, f.Name)
			}
			out[f.Name] = str
		}
	}
	return out, nil
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

// stripFence removes a surrounding markdown code fence some models add even
// in JSON mode.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
