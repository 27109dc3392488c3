package llms

import (
	"encoding/base64"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// JSON models for the persisted wire shape of messages. A single-text-part
// message collapses to {role, text}; anything else serializes as
// {role, parts: [...]} with a type discriminator per part.

// MessageJSON is the simplified JSON structure for a single-text Message.
type MessageJSON struct {
	Role Role   `json:"role"`
	Text string `json:"text,omitempty"`
}

// ContentPartJSON is the JSON structure for polymorphic content parts.
type ContentPartJSON struct {
	Type         string            `json:"type"`
	Text         string            `json:"text,omitempty"`
	ImageURL     *ImageURLJSON     `json:"image_url,omitempty"`
	Binary       *BinaryJSON       `json:"binary,omitempty"`
	ToolCall     *ToolCallJSON     `json:"tool_call,omitempty"`
	ToolResponse *ToolResponseJSON `json:"tool_response,omitempty"`
}

// ImageURLJSON is the JSON structure for image URL content.
type ImageURLJSON struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// BinaryJSON is the JSON structure for binary content.
type BinaryJSON struct {
	Data     string `json:"data"`
	MIMEType string `json:"mime_type"`
}

// ToolCallJSON is the JSON structure for tool call content.
type ToolCallJSON struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	FunctionCall *FunctionCall `json:"function"`
}

// ToolResponseJSON is the JSON structure for tool response content.
type ToolResponseJSON struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
}

type messageWithPartsJSON struct {
	Role  Role          `json:"role"`
	Parts []ContentPart `json:"parts"`
}

// MarshalJSON implements json.Marshaler for Message.
func (m Message) MarshalJSON() ([]byte, error) {
	// Single text part collapses to {role, text}.
	if len(m.Parts) == 1 {
		if tp, ok := m.Parts[0].(TextContent); ok {
			return json.Marshal(MessageJSON{
				Role: m.Role,
				Text: tp.Text,
			})
		}
	}
	return json.Marshal(messageWithPartsJSON{
		Role:  m.Role,
		Parts: m.Parts,
	})
}

// UnmarshalJSON implements json.Unmarshaler for Message.
func (m *Message) UnmarshalJSON(data []byte) error {
	var msgJSON MessageJSON
	if err := json.Unmarshal(data, &msgJSON); err != nil {
		return err
	}

	m.Role = msgJSON.Role

	if msgJSON.Text != "" {
		m.Parts = []ContentPart{TextContent{Text: msgJSON.Text}}
		return nil
	}

	// Parts are polymorphic and need manual decoding.
	var raw struct {
		Parts []json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for _, partData := range raw.Parts {
		var partJSON ContentPartJSON
		if err := json.Unmarshal(partData, &partJSON); err != nil {
			return err
		}
		part, err := unmarshalContentPart(partJSON)
		if err != nil {
			return err
		}
		m.Parts = append(m.Parts, part)
	}

	return nil
}

func unmarshalContentPart(partJSON ContentPartJSON) (ContentPart, error) {
	switch partJSON.Type {
	case "text", "":
		return TextContent{Text: partJSON.Text}, nil
	case "image_url":
		if partJSON.ImageURL == nil {
			return nil, errors.New("image_url field is required for image_url type")
		}
		return ImageURLContent{
			URL:    partJSON.ImageURL.URL,
			Detail: partJSON.ImageURL.Detail,
		}, nil
	case "binary":
		if partJSON.Binary == nil {
			return nil, errors.New("binary field is required for binary type")
		}
		decoded, err := base64.StdEncoding.DecodeString(partJSON.Binary.Data)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode binary data")
		}
		return BinaryContent{
			MIMEType: partJSON.Binary.MIMEType,
			Data:     decoded,
		}, nil
	case "tool_call":
		if partJSON.ToolCall == nil {
			return nil, errors.New("tool_call field is required for tool_call type")
		}
		return ToolCall{
			ID:           partJSON.ToolCall.ID,
			Type:         partJSON.ToolCall.Type,
			FunctionCall: partJSON.ToolCall.FunctionCall,
		}, nil
	case "tool_response":
		if partJSON.ToolResponse == nil {
			return nil, errors.New("tool_response field is required for tool_response type")
		}
		return ToolCallResponse{
			ToolCallID: partJSON.ToolResponse.ToolCallID,
			Name:       partJSON.ToolResponse.Name,
			Content:    partJSON.ToolResponse.Content,
		}, nil
	default:
		return nil, errors.Newf("unknown content type: '%s'", partJSON.Type)
	}
}

// MarshalJSON implements json.Marshaler for TextContent.
func (tc TextContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(ContentPartJSON{
		Type: "text",
		Text: tc.Text,
	})
}

// UnmarshalJSON implements json.Unmarshaler for TextContent.
func (tc *TextContent) UnmarshalJSON(data []byte) error {
	var partJSON ContentPartJSON
	if err := json.Unmarshal(data, &partJSON); err != nil {
		return err
	}
	if partJSON.Type != "text" {
		return errors.Newf("invalid type for TextContent: %v", partJSON.Type)
	}
	tc.Text = partJSON.Text
	return nil
}

// MarshalJSON implements json.Marshaler for ImageURLContent.
func (iuc ImageURLContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(ContentPartJSON{
		Type: "image_url",
		ImageURL: &ImageURLJSON{
			URL:    iuc.URL,
			Detail: iuc.Detail,
		},
	})
}

// UnmarshalJSON implements json.Unmarshaler for ImageURLContent.
func (iuc *ImageURLContent) UnmarshalJSON(data []byte) error {
	var partJSON ContentPartJSON
	if err := json.Unmarshal(data, &partJSON); err != nil {
		return err
	}
	if partJSON.Type != "image_url" {
		return errors.Newf("invalid type for ImageURLContent: %v", partJSON.Type)
	}
	if partJSON.ImageURL == nil || partJSON.ImageURL.URL == "" {
		return errors.New("missing url field in ImageURLContent")
	}
	iuc.URL = partJSON.ImageURL.URL
	iuc.Detail = partJSON.ImageURL.Detail
	return nil
}

// MarshalJSON implements json.Marshaler for BinaryContent.
func (bc BinaryContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(ContentPartJSON{
		Type: "binary",
		Binary: &BinaryJSON{
			MIMEType: bc.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(bc.Data),
		},
	})
}

// UnmarshalJSON implements json.Unmarshaler for BinaryContent.
func (bc *BinaryContent) UnmarshalJSON(data []byte) error {
	var partJSON ContentPartJSON
	if err := json.Unmarshal(data, &partJSON); err != nil {
		return err
	}
	if partJSON.Type != "binary" {
		return errors.Newf("invalid type for BinaryContent: %v", partJSON.Type)
	}
	if partJSON.Binary == nil || partJSON.Binary.Data == "" {
		return errors.New("missing data field in BinaryContent")
	}
	if partJSON.Binary.MIMEType == "" {
		return errors.New("missing mime_type field in BinaryContent")
	}
	decoded, err := base64.StdEncoding.DecodeString(partJSON.Binary.Data)
	if err != nil {
		return errors.Wrap(err, "error decoding base64 data")
	}
	bc.MIMEType = partJSON.Binary.MIMEType
	bc.Data = decoded
	return nil
}

// MarshalJSON implements json.Marshaler for ToolCall.
func (tc ToolCall) MarshalJSON() ([]byte, error) {
	return json.Marshal(ContentPartJSON{
		Type: "tool_call",
		ToolCall: &ToolCallJSON{
			ID:           tc.ID,
			Type:         tc.Type,
			FunctionCall: tc.FunctionCall,
		},
	})
}

// UnmarshalJSON implements json.Unmarshaler for ToolCall.
func (tc *ToolCall) UnmarshalJSON(data []byte) error {
	var partJSON ContentPartJSON
	if err := json.Unmarshal(data, &partJSON); err != nil {
		return err
	}
	if partJSON.Type != "tool_call" {
		return errors.Newf("invalid type for ToolCall: %v", partJSON.Type)
	}
	if partJSON.ToolCall == nil || partJSON.ToolCall.ID == "" {
		return errors.New("missing id field in ToolCall")
	}
	if partJSON.ToolCall.Type == "" {
		return errors.New("missing type field in ToolCall")
	}
	tc.ID = partJSON.ToolCall.ID
	tc.Type = partJSON.ToolCall.Type
	tc.FunctionCall = partJSON.ToolCall.FunctionCall
	if tc.FunctionCall == nil {
		tc.FunctionCall = &FunctionCall{}
	}
	return nil
}

// MarshalJSON implements json.Marshaler for ToolCallResponse.
func (tc ToolCallResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(ContentPartJSON{
		Type: "tool_response",
		ToolResponse: &ToolResponseJSON{
			ToolCallID: tc.ToolCallID,
			Name:       tc.Name,
			Content:    tc.Content,
		},
	})
}

// UnmarshalJSON implements json.Unmarshaler for ToolCallResponse.
func (tc *ToolCallResponse) UnmarshalJSON(data []byte) error {
	var partJSON ContentPartJSON
	if err := json.Unmarshal(data, &partJSON); err != nil {
		return err
	}
	if partJSON.Type != "tool_response" {
		return errors.Newf("invalid type for ToolCallResponse: %v", partJSON.Type)
	}
	if partJSON.ToolResponse == nil || partJSON.ToolResponse.ToolCallID == "" {
		return errors.New("missing tool_call_id field in ToolCallResponse")
	}
	if partJSON.ToolResponse.Name == "" {
		return errors.New("missing name field in ToolCallResponse")
	}
	tc.ToolCallID = partJSON.ToolResponse.ToolCallID
	tc.Name = partJSON.ToolResponse.Name
	tc.Content = partJSON.ToolResponse.Content
	return nil
}
