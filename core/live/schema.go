package live

import (
	"strings"

	"google.golang.org/genai"
)

// openAPISchema rewrites a JSON schema into the OpenAPI subset accepted for
// function parameters: type names are upper-cased and keys the API rejects
// are dropped.
func openAPISchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}

	out := make(map[string]any, len(schema))
	for key, value := range schema {
		switch key {
		case "$schema", "$id", "$ref", "additionalProperties":
			continue
		case "type":
			if name, ok := value.(string); ok {
				value = strings.ToUpper(name)
			}
		case "properties":
			if properties, ok := value.(map[string]any); ok {
				converted := make(map[string]any, len(properties))
				for name, property := range properties {
					if nested, ok := property.(map[string]any); ok {
						converted[name] = openAPISchema(nested)
					}
				}
				value = converted
			}
		case "items":
			if nested, ok := value.(map[string]any); ok {
				value = openAPISchema(nested)
			}
		}
		out[key] = value
	}
	return out
}

// genaiSchema converts a normalized schema into the SDK's typed form.
func genaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	schema = openAPISchema(schema)

	out := &genai.Schema{}
	if name, ok := schema["type"].(string); ok {
		out.Type = genai.Type(name)
	}
	if description, ok := schema["description"].(string); ok {
		out.Description = description
	}
	if minimum, ok := number(schema["minimum"]); ok {
		out.Minimum = &minimum
	}
	if maximum, ok := number(schema["maximum"]); ok {
		out.Maximum = &maximum
	}
	out.Required = stringList(schema["required"])
	out.Enum = stringList(schema["enum"])
	if properties, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(properties))
		for name, property := range properties {
			if nested, ok := property.(map[string]any); ok {
				out.Properties[name] = genaiSchema(nested)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = genaiSchema(items)
	}
	return out
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
