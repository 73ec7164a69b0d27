package openrouter

import "strings"

// Pre-flight request validation. Everything here runs before any network
// I/O and is purely a function of its inputs: the same request always
// produces the same pass/fail outcome.

var validRoles = map[Role]bool{
	RoleSystem:    true,
	RoleUser:      true,
	RoleAssistant: true,
	RoleDeveloper: true,
	RoleTool:      true,
}

// validateMessages checks the conversation shape: at least one message, every
// message carrying a known role and non-blank content.
func validateMessages(messages []Message) error {
	if len(messages) == 0 {
		return validationErr("messages cannot be empty")
	}
	for i, m := range messages {
		if m.Role == "" {
			return validationErr("message at index %d missing role", i)
		}
		if !validRoles[m.Role] {
			return validationErr("invalid role %q at index %d; must be one of: system, user, assistant, developer, tool", m.Role, i)
		}
		if strings.TrimSpace(m.Content) == "" {
			return validationErr("message at index %d missing or empty content", i)
		}
	}
	return nil
}

// validateResponseFormat checks the strict json_schema envelope. A nil format
// means free-text content is acceptable and passes.
func validateResponseFormat(rf *ResponseFormat) error {
	if rf == nil {
		return nil
	}
	if rf.Type != "json_schema" {
		return validationErr("response_format type must be %q", "json_schema")
	}
	js := rf.JSONSchema
	if strings.TrimSpace(js.Name) == "" {
		return validationErr("json_schema must have non-empty name")
	}
	if !js.Strict {
		return validationErr("json_schema must have strict set to true")
	}
	if js.Schema == nil {
		return validationErr("json_schema must contain schema object")
	}
	if t, _ := js.Schema["type"].(string); t != "object" {
		return validationErr("schema type must be %q", "object")
	}
	props, ok := js.Schema["properties"].(map[string]any)
	if !ok || len(props) == 0 {
		return validationErr("schema must contain non-empty properties map")
	}
	return nil
}

// validateParameters range-checks the recognized tuning knobs. Unrecognized
// keys pass through unvalidated.
func validateParameters(params map[string]any) error {
	for key, value := range params {
		ok := true
		switch key {
		case "temperature":
			v, isNum := asFloat(value)
			ok = isNum && v >= 0 && v <= 2
		case "top_p":
			v, isNum := asFloat(value)
			ok = isNum && v >= 0 && v <= 1
		case "top_k":
			v, isInt := asInt(value)
			ok = isInt && v > 0
		case "max_tokens":
			v, isInt := asInt(value)
			ok = isInt && v > 0
		case "frequency_penalty", "presence_penalty":
			v, isNum := asFloat(value)
			ok = isNum && v >= -2 && v <= 2
		case "seed":
			_, ok = asInt(value)
		case "stream":
			_, ok = value.(bool)
		}
		if !ok {
			return validationErr("invalid value for parameter %q", key)
		}
	}
	return nil
}

// asFloat accepts any numeric representation (JSON decodes numbers as
// float64, but callers may pass native ints).
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// asInt accepts integers and whole-valued floats.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}
