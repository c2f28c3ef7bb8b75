// Package servo is the wire codec for typed records: Apache Avro schemaless
// encoding driven by the self-describing schema carried on every BLOCK.
package servo

import (
	"encoding/json"
	"fmt"

	"github.com/hamba/avro/v2"
)

// Serialize encodes dict under the given record schema.
func Serialize(dict map[string]any, schema map[string]any) ([]byte, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("servo: marshal schema: %w", err)
	}
	return SerializeWithSchemaJSON(dict, string(raw))
}

// SerializeWithSchemaJSON encodes dict under a JSON-encoded record schema.
func SerializeWithSchemaJSON(dict map[string]any, schemaJSON string) ([]byte, error) {
	parsed, err := avro.Parse(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("servo: parse schema: %w", err)
	}
	data, err := avro.Marshal(parsed, dict)
	if err != nil {
		return nil, fmt.Errorf("servo: serialize: %w", err)
	}
	return data, nil
}

// Deserialize decodes data under the given record schema.
func Deserialize(data []byte, schema map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("servo: marshal schema: %w", err)
	}
	return DeserializeWithSchemaJSON(data, string(raw))
}

// DeserializeWithSchemaJSON decodes data under a JSON-encoded record schema,
// as received inline on a BLOCK message.
func DeserializeWithSchemaJSON(data []byte, schemaJSON string) (map[string]any, error) {
	parsed, err := avro.Parse(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("servo: parse schema: %w", err)
	}
	var out map[string]any
	if err := avro.Unmarshal(parsed, data, &out); err != nil {
		return nil, fmt.Errorf("servo: deserialize: %w", err)
	}
	return out, nil
}
