package ai

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

// Defaulter is implemented by output types that pre-fill fields the model
// may omit. SetDefaults runs on a fresh value before decoding.
type Defaulter interface {
	SetDefaults()
}

type outputSchema struct {
	name   string
	schema map[string]interface{}
	text   string
}

func reflectSchema(t reflect.Type) (*outputSchema, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
		Anonymous:      true,
	}
	data, err := json.Marshal(r.ReflectFromType(t))
	if err != nil {
		return nil, fmt.Errorf("reflect schema for %s: %w", t, err)
	}
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("reflect schema for %s: %w", t, err)
	}
	delete(m, "$schema")
	delete(m, "$id")
	text, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	name := t.Name()
	if name == "" {
		name = "response"
	}
	return &outputSchema{name: name, schema: m, text: string(text)}, nil
}

// SchemaFor describes the JSON schema the client asks models to follow for
// values of v's type.
func SchemaFor(v interface{}) (string, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return "", fmt.Errorf("nil schema value")
	}
	s, err := reflectSchema(t)
	if err != nil {
		return "", err
	}
	return s.text, nil
}

func (s *outputSchema) instruction(mode Mode) string {
	if mode == ModeJSON {
		return "Respond only with a JSON value that conforms to this JSON schema:\n" + s.text
	}
	return "Respond with a JSON value that conforms to this JSON schema:\n```json\n" + s.text +
		"\n```\nReturn it inside a single ```json fenced code block."
}

func withInstruction(messages []Message, instruction string) []Message {
	out := make([]Message, 0, len(messages)+1)
	if len(messages) > 0 && messages[0].Role == RoleSystem {
		first := messages[0]
		first.Content = strings.TrimRight(first.Content, "\n") + "\n\n" + instruction
		out = append(out, first)
		return append(out, messages[1:]...)
	}
	out = append(out, Message{Role: RoleSystem, Content: instruction})
	return append(out, messages...)
}

// decodeInto parses payload into a fresh value of out's element type and
// only assigns it to out once it validates.
func decodeInto(v *validator.Validate, payload string, out reflect.Value) error {
	elemType := out.Elem().Type()
	fresh := reflect.New(elemType)
	if d, ok := fresh.Interface().(Defaulter); ok {
		d.SetDefaults()
	}
	if err := json.Unmarshal([]byte(payload), fresh.Interface()); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	if elemType.Kind() == reflect.Struct {
		if err := v.Struct(fresh.Interface()); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
	}
	out.Elem().Set(fresh.Elem())
	return nil
}
