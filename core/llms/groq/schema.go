package groq

import (
	"reflect"

	"github.com/invopop/jsonschema"
)

type ChatResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

type JSONSchema struct {
	// Name further identifies the schema in the response.
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Schema      jsonschema.Schema `json:"schema"`
	// Strict determines whether to enforce the schema upon the generated
	// content.
	Strict bool `json:"strict"`
}

// responseFormatFor reflects a json_schema response format from a prototype
// value or pointer.
func responseFormatFor(prototype any) *ChatResponseFormat {
	reflector := jsonschema.Reflector{DoNotReference: true}

	var (
		schema *jsonschema.Schema
		name   string
	)
	prototypeType := reflect.TypeOf(prototype)
	if prototypeType.Kind() == reflect.Ptr {
		schema = reflector.ReflectFromType(prototypeType.Elem())
		name = prototypeType.Elem().Name()
	} else {
		schema = reflector.Reflect(prototype)
		name = prototypeType.Name()
	}

	return &ChatResponseFormat{
		Type: "json_schema",
		JSONSchema: &JSONSchema{
			Name:   name,
			Schema: *schema,
			Strict: true,
		},
	}
}
