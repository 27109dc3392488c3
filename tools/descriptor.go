package tools

import (
	"encoding/json"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/mcpclient"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
)

// Descriptor describes one tool advertised by a backend. Descriptors are
// immutable once advertised; a backend that changes its catalog advertises a
// new set on the next discovery.
type Descriptor struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// FromDefinition converts a wire tool definition into a Descriptor.
func FromDefinition(def mcpclient.ToolDefinition) (Descriptor, error) {
	d := Descriptor{
		Name:        def.Name,
		Description: def.Description,
	}
	if d.Name == "" {
		return Descriptor{}, errors.New("tool definition has no name")
	}
	if len(def.InputSchema) > 0 {
		var sc jsonschema.Schema
		if err := json.Unmarshal(def.InputSchema, &sc); err != nil {
			return Descriptor{}, errors.Wrapf(err, "invalid input schema: %s", def.Name)
		}
		d.InputSchema = &sc
	}
	return d, nil
}

// LLMTool projects the descriptor onto the provider tool surface.
func (d Descriptor) LLMTool() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.InputSchema,
		},
	}
}
