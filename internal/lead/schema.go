package lead

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const leadSchemaJSON = `{
  "title": "Lead",
  "type": "object",
  "properties": {
    "side": { "type": "string", "enum": ["BUY", "SELL"] },
    "product": { "type": "string", "minLength": 2 },
    "price": {
      "type": "object",
      "properties": {
        "amount": { "type": "number" },
        "currency": { "type": "string", "pattern": "^[A-Z]{3}$" },
        "per": { "type": "string", "enum": ["mt", "kg"] }
      },
      "required": ["amount", "currency", "per"]
    },
    "quantity": {
      "type": "object",
      "properties": {
        "amount": { "type": "number" },
        "unit": { "type": "string", "enum": ["mt", "kg"] }
      },
      "required": ["amount", "unit"]
    },
    "paymentTerms": { "type": "string", "minLength": 2 },
    "incoterm": {
      "type": "string",
      "enum": ["EXW","FCA","CPT","CIP","DAP","DPU","DDP","FAS","FOB","CFR","CIF"]
    },
    "loadingLocation": { "type": "string" },
    "deliveryLocation": { "type": "string" },
    "loadingCountry": { "type": "string" },
    "deliveryCountry": { "type": "string" },
    "packaging": { "type": "string" },
    "transportMode": { "type": "string" },
    "priceValidity": { "type": "string" },
    "availabilityTime": { "type": "string" },
    "availabilityQty": { "type": "string" },
    "deliveryTimeframe": { "type": "string" },
    "summary": { "type": "string" },
    "notes": { "type": "string" },
    "specialNotes": { "type": "string" },
    "traderName": { "type": "string" }
  },
  "required": ["side","product","price","quantity","paymentTerms","incoterm"],
  "anyOf": [
    { "required": ["loadingLocation"] },
    { "required": ["deliveryLocation"] }
  ]
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(leadSchemaJSON))
	})
	return schema, schemaErr
}

// ValidationError lists every schema violation found in a candidate lead.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "invalid lead: " + strings.Join(e.Issues, "; ")
}

// Validate checks a candidate lead against the Lead JSON Schema. A
// *ValidationError is returned for schema violations; other errors indicate
// the document could not be evaluated at all.
func Validate(data map[string]any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile lead schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("validate lead: %w", err)
	}

	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return &ValidationError{Issues: issues}
	}
	return nil
}
