package tools

import (
	"context"
	"fmt"
	"strings"
)

// Tool is the interface that all tools must implement.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *ToolResult
}

// ClosableTool is an optional interface for tools that hold runtime resources
// and require explicit teardown when the agent stops.
type ClosableTool interface {
	Tool
	Close() error
}

func ToolToSchema(tool Tool) map[string]interface{} {
	return map[string]interface{}{
		"type": "function",
		"function": map[string]interface{}{
			"name":        tool.Name(),
			"description": tool.Description(),
			"parameters":  tool.Parameters(),
		},
	}
}

// ValidateArgs checks the supplied arguments against the tool's declared
// parameter schema: required keys must be present, and values must match
// the declared primitive type where one is given.
func ValidateArgs(tool Tool, args map[string]interface{}) error {
	schema := tool.Parameters()
	if schema == nil {
		return nil
	}

	properties, _ := schema["properties"].(map[string]interface{})

	if required, ok := schema["required"].([]string); ok {
		for _, key := range required {
			if _, present := args[key]; !present {
				return fmt.Errorf("missing required argument %q", key)
			}
		}
	} else if required, ok := schema["required"].([]interface{}); ok {
		for _, item := range required {
			key, _ := item.(string)
			if key == "" {
				continue
			}
			if _, present := args[key]; !present {
				return fmt.Errorf("missing required argument %q", key)
			}
		}
	}

	for key, value := range args {
		prop, ok := properties[key].(map[string]interface{})
		if !ok {
			continue
		}
		declared, _ := prop["type"].(string)
		if declared == "" || value == nil {
			continue
		}
		if !matchesSchemaType(value, declared) {
			return fmt.Errorf("argument %q has wrong type: expected %s", key, declared)
		}
	}
	return nil
}

func matchesSchemaType(value interface{}, declared string) bool {
	switch declared {
	case "string":
		_, ok := value.(string)
		return ok
	case "number", "integer":
		switch value.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		switch value.(type) {
		case []interface{}, []string:
			return true
		}
		return false
	case "object":
		_, ok := value.(map[string]interface{})
		return ok
	}
	return true
}

func stringArg(args map[string]interface{}, key string) string {
	v, ok := args[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return fallback
	}
}

func floatArg(args map[string]interface{}, key string, fallback float64) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return fallback, false
	}
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	default:
		return nil
	}
}
