package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// parseEnvelopeSchema constrains the wrapped parse response. Items only
// have to be objects; a bad candidate fails when it is created.
var parseEnvelopeSchema = map[string]any{
	"type":     "object",
	"required": []string{"code"},
	"properties": map[string]any{
		"code":    map[string]any{"type": "integer"},
		"message": map[string]any{"type": []string{"string", "null"}},
		"data": map[string]any{
			"type":  []string{"array", "null"},
			"items": map[string]any{"type": "object"},
		},
	},
}

var (
	compiledOnce sync.Once
	compiled     *jsonschema.Schema
	compileErr   error
)

func parseSchema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		b, err := json.Marshal(parseEnvelopeSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("parse_envelope.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile("parse_envelope.json")
	})
	return compiled, compileErr
}

// validateParseEnvelope checks raw against the parse envelope schema.
func validateParseEnvelope(raw []byte) error {
	schema, err := parseSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}
