package conversation

import (
	"encoding/json"
	"strings"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/store"
	"github.com/bububa/ljson"
)

// Rehydrate converts persisted turns back into model messages. Turns written
// by this package carry marshaled llms.Message JSON and round-trip exactly;
// anything else, including rows written before structured persistence, is
// carried as a raw text part under the persisted role.
func Rehydrate(turns []store.Turn) []llms.Message {
	msgs := make([]llms.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, rehydrateTurn(t))
	}
	return msgs
}

// rehydrateTurn parses structured content when possible. A row damaged by an
// interrupted write is repaired leniently before falling back to raw text,
// so one bad row degrades instead of poisoning the whole history.
func rehydrateTurn(t store.Turn) llms.Message {
	content := strings.TrimSpace(t.Content)
	if strings.HasPrefix(content, "{") {
		var msg llms.Message
		if err := json.Unmarshal([]byte(content), &msg); err != nil {
			msg = llms.Message{}
			if err := ljson.Unmarshal([]byte(content), &msg); err != nil {
				msg = llms.Message{}
			}
		}
		if len(msg.Parts) > 0 {
			if msg.Role == "" {
				msg.Role = t.Role
			}
			return msg
		}
	}
	return llms.MessageFromTextParts(t.Role, t.Content)
}
