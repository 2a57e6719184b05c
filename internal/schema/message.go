package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"mcaplog/internal/core"
)

// Descriptor is the self-describing schema of a record type, registered
// once per sink per type.
type Descriptor struct {
	Name     string
	Encoding string
	Data     []byte
}

// Message is the capability every publishable record must expose: a
// stable type name with its schema, and a serialize-to-bytes operation.
type Message interface {
	Descriptor() Descriptor
	MarshalRecord() ([]byte, error)
}

// typed adapts an arbitrary struct to the Message capability. The
// descriptor is derived by reflection and cached per concrete type, so
// repeated publishes of the same type skip schema derivation.
type typed struct {
	v any
}

// Wrap makes any JSON-serializable value publishable. The schema name
// is the concrete type's name.
func Wrap(v any) Message {
	return typed{v: v}
}

var descriptorCache sync.Map // reflect.Type -> Descriptor

func (t typed) Descriptor() Descriptor {
	rt := reflect.TypeOf(t.v)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil {
		return Descriptor{Name: "null", Encoding: core.SchemaEncoding, Data: []byte(`{}`)}
	}

	if cached, ok := descriptorCache.Load(rt); ok {
		return cached.(Descriptor)
	}

	name := rt.Name()
	if name == "" {
		name = rt.String()
	}

	body, err := json.Marshal(deriveSchema(rt, 0))
	if err != nil {
		// The derived schema is built from plain maps and strings;
		// marshalling it cannot fail for any input type.
		body = []byte(`{}`)
	}

	d := Descriptor{Name: name, Encoding: core.SchemaEncoding, Data: body}
	descriptorCache.Store(rt, d)
	return d
}

func (t typed) MarshalRecord() ([]byte, error) {
	data, err := json.Marshal(t.v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", t.v, err)
	}
	return data, nil
}

const maxSchemaDepth = 8

// deriveSchema builds a jsonschema fragment for a Go type. Recursion is
// depth-limited so self-referential types degrade to an open object
// instead of looping.
func deriveSchema(rt reflect.Type, depth int) map[string]any {
	if depth > maxSchemaDepth {
		return map[string]any{"type": "object"}
	}

	switch rt.Kind() {
	case reflect.Pointer:
		return deriveSchema(rt.Elem(), depth)

	case reflect.Bool:
		return map[string]any{"type": "boolean"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}

	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}

	case reflect.String:
		return map[string]any{"type": "string"}

	case reflect.Slice, reflect.Array:
		return map[string]any{
			"type":  "array",
			"items": deriveSchema(rt.Elem(), depth+1),
		}

	case reflect.Map:
		return map[string]any{
			"type":                 "object",
			"additionalProperties": deriveSchema(rt.Elem(), depth+1),
		}

	case reflect.Struct:
		props := map[string]any{}
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if !f.IsExported() {
				continue
			}
			name, skip := jsonFieldName(f)
			if skip {
				continue
			}
			props[name] = deriveSchema(f.Type, depth+1)
		}
		out := map[string]any{"type": "object"}
		if rt.Name() != "" {
			out["title"] = rt.Name()
		}
		if len(props) > 0 {
			out["properties"] = props
		}
		return out

	default:
		// interfaces, channels, funcs: no static shape
		return map[string]any{}
	}
}

func jsonFieldName(f reflect.StructField) (name string, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	name = f.Name
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			tag = tag[:i]
			break
		}
	}
	if tag != "" {
		name = tag
	}
	return name, false
}
