package lidl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const receiptSchemaURL = "lidl-receipt.json"

var (
	receiptSchemaOnce sync.Once
	receiptSchema     *jsonschema.Schema
	receiptSchemaErr  error
)

// BuildReceiptJSONSchema describes the ticket payload. Numeric fields are
// required to be strings; a bare JSON number there is a structural error.
func BuildReceiptJSONSchema() map[string]any {
	numeric := map[string]any{"type": "string", "minLength": 1}

	discount := map[string]any{
		"type":       "object",
		"properties": map[string]any{"amount": numeric},
		"required":   []string{"amount"},
	}

	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"currentUnitPrice": numeric,
			"quantity":         numeric,
			"originalAmount":   numeric,
			"isWeight":         map[string]any{"type": "boolean"},
			"name":             map[string]any{"type": "string"},
			"codeInput":        map[string]any{"type": "string", "minLength": 1},
			"discounts":        map[string]any{"type": "array", "items": discount},
		},
		"required": []string{"currentUnitPrice", "quantity", "isWeight", "name", "codeInput"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":   map[string]any{"type": "string", "minLength": 1},
			"date": map[string]any{"type": "string", "minLength": 1},
			"store": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":   map[string]any{"type": "string"},
					"name": map[string]any{"type": "string"},
				},
			},
			"currency": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"code":   map[string]any{"type": "string", "minLength": 1},
					"symbol": map[string]any{"type": "string"},
				},
				"required": []string{"code"},
			},
			"itemsLine": map[string]any{"type": "array", "items": item},
		},
		"required": []string{"id", "date", "currency", "itemsLine"},
	}
}

func compiledReceiptSchema() (*jsonschema.Schema, error) {
	receiptSchemaOnce.Do(func() {
		b, err := json.Marshal(BuildReceiptJSONSchema())
		if err != nil {
			receiptSchemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(receiptSchemaURL, bytes.NewReader(b)); err != nil {
			receiptSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		receiptSchema, receiptSchemaErr = compiler.Compile(receiptSchemaURL)
	})
	return receiptSchema, receiptSchemaErr
}

// ValidatePayload checks data against the receipt schema.
func ValidatePayload(data []byte) error {
	schema, err := compiledReceiptSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return &ParseError{Kind: KindMalformed, Detail: "json", Err: err}
	}
	if err := schema.Validate(v); err != nil {
		return &ParseError{Kind: KindSchema, Err: err}
	}
	return nil
}
