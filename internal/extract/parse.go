package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/docupull/pdf2excel/internal/common"
	"github.com/docupull/pdf2excel/internal/schema"
)

// ParseJSONResponse recovers the JSON object from a provider reply. Providers
// are told to return bare JSON but routinely wrap it in markdown fences or
// prose, so three strategies run in order:
//  1. the whole reply is the object
//  2. the first ```json fenced block
//  3. the substring from the first '{' to the last '}'
func ParseJSONResponse(reply string) (map[string]any, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, common.NewAppError("EMPTY_RESPONSE", "provider returned an empty reply", common.ErrParse)
	}

	if m, err := decodeObject(reply); err == nil {
		return m, nil
	}

	if fenced, ok := extractFencedJSON(reply); ok {
		if m, err := decodeObject(fenced); err == nil {
			return m, nil
		}
	}

	if first, last := strings.Index(reply, "{"), strings.LastIndex(reply, "}"); first >= 0 && last > first {
		if m, err := decodeObject(reply[first : last+1]); err == nil {
			return m, nil
		}
	}

	return nil, common.NewAppError("UNPARSEABLE_RESPONSE",
		fmt.Sprintf("no JSON object found in reply (%d bytes)", len(reply)), common.ErrParse)
}

func decodeObject(s string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("null object")
	}
	return m, nil
}

func extractFencedJSON(s string) (string, bool) {
	const fence = "```json"
	start := strings.Index(s, fence)
	if start < 0 {
		return "", false
	}
	rest := s[start+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// BuildFieldsJSONSchema derives a JSON Schema for the expected provider
// output. Every field is nullable; unexpected extra keys are allowed so a
// chatty provider does not fail validation outright.
func BuildFieldsJSONSchema(defs []schema.FieldDefinition) map[string]any {
	props := make(map[string]any, len(defs))
	for _, d := range defs {
		var typ string
		switch d.DataType {
		case schema.TypeNumber:
			typ = "number"
		default:
			typ = "string"
		}
		props[d.Name] = map[string]any{
			"type": []any{typ, "null"},
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

// ValidateAgainstSchema checks a parsed provider object against the derived
// schema. Failures are reported but tolerated by callers: coercion downgrades
// wrong-typed values instead of dropping the document.
func ValidateAgainstSchema(data map[string]any, schemaDoc map[string]any) error {
	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		return common.WrapError(err, "marshal field schema")
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("fields.json", strings.NewReader(string(raw))); err != nil {
		return common.WrapError(err, "add field schema resource")
	}
	compiled, err := compiler.Compile("fields.json")
	if err != nil {
		return common.WrapError(err, "compile field schema")
	}

	if err := compiled.Validate(toValidatable(data)); err != nil {
		return common.NewAppError("SCHEMA_MISMATCH", "provider output failed schema validation", err)
	}
	return nil
}

// toValidatable round-trips through encoding/json so the validator sees the
// canonical interface types.
func toValidatable(data map[string]any) any {
	b, err := json.Marshal(data)
	if err != nil {
		return data
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return data
	}
	return out
}

// CoerceFields converts a raw provider object to typed values. Declared
// fields missing from the reply become nulls; extra keys the provider
// volunteered are kept as strings.
func CoerceFields(raw map[string]any, defs []schema.FieldDefinition) map[string]schema.FieldValue {
	out := make(map[string]schema.FieldValue, len(raw))
	for _, d := range defs {
		v, ok := raw[d.Name]
		if !ok {
			out[d.Name] = schema.Null()
			continue
		}
		out[d.Name] = schema.CoerceValue(v, d.DataType)
	}
	for name, v := range raw {
		if _, declared := out[name]; declared {
			continue
		}
		out[name] = schema.CoerceValue(v, schema.TypeString)
	}
	return out
}
