package gemini

import "google.golang.org/genai"

// buildSchema converts a JSON Schema definition map to a genai.Schema so
// the model's structured-output mode enforces the same shape the
// validation step checks.
func buildSchema(def map[string]any) *genai.Schema {
	schema := &genai.Schema{}

	if t, ok := def["type"].(string); ok {
		schema.Type = mapType(t)
	}
	if desc, ok := def["description"].(string); ok {
		schema.Description = desc
	}

	if props, ok := def["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, v := range props {
			if propDef, ok := v.(map[string]any); ok {
				schema.Properties[name] = buildSchema(propDef)
			}
		}
	}

	if items, ok := def["items"].(map[string]any); ok {
		schema.Items = buildSchema(items)
	}

	if required, ok := def["required"].([]any); ok {
		for _, r := range required {
			if name, ok := r.(string); ok {
				schema.Required = append(schema.Required, name)
			}
		}
	}

	if enum, ok := def["enum"].([]any); ok {
		for _, e := range enum {
			if val, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, val)
			}
		}
	}

	return schema
}

func mapType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}
