package fields

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildReceiptSchema returns the JSON-Schema the output boundary is
// validated against before a record is persisted.
func BuildReceiptSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"purchased_at":  map[string]any{"type": []any{"string", "null"}},
			"merchant_name": map[string]any{"type": "string", "minLength": 1},
			"total_amount":  map[string]any{"type": "number", "minimum": 0.0},
		},
		"required": []any{"purchased_at", "merchant_name", "total_amount"},
	}
}

// ValidateReceiptJSON validates a serialized ParsedReceipt against
// BuildReceiptSchema.
func ValidateReceiptJSON(data []byte) error {
	b, err := json.Marshal(BuildReceiptSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("receipt.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("receipt.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return nil
}
