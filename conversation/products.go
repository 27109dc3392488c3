package conversation

import (
	"encoding/json"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llmutils"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// products accumulates user-facing product data across the tool rounds of
// one run. Successful tool payloads carrying a top-level "products" array
// contribute their elements; everything else is ignored.
type products struct {
	items []string
}

// Collect probes one tool success payload for product data. Payloads that
// wrap their JSON in prose or markdown fences are salvaged first.
func (p *products) Collect(content string) {
	content = string(llmutils.CleanJSON([]byte(content)))
	if !gjson.Valid(content) {
		return
	}
	res := gjson.Get(content, "products")
	if !res.IsArray() {
		return
	}
	for _, item := range res.Array() {
		p.items = append(p.items, item.Raw)
	}
}

// Empty reports whether any product data was accumulated.
func (p *products) Empty() bool {
	return len(p.items) == 0
}

// JSON renders the accumulated products as one JSON array, in collection
// order.
func (p *products) JSON() json.RawMessage {
	out := "[]"
	for _, item := range p.items {
		out, _ = sjson.SetRaw(out, "-1", item)
	}
	return json.RawMessage(out)
}
