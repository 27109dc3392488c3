package mcpclient

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
)

// HTTPError reports a non-2xx HTTP response from the endpoint. Body carries
// the raw response body for diagnostics.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.Status)
}

// ProtocolError reports a 2xx response whose body is not a JSON-RPC envelope,
// such as an HTML login page served from a misconfigured endpoint. Location
// identifies where the response came from.
type ProtocolError struct {
	Status      int
	Location    string
	BodySnippet string
}

func (e *ProtocolError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("invalid response: status %d from %s", e.Status, e.Location)
	}
	return fmt.Sprintf("invalid response: status %d", e.Status)
}

// RPCError is the error object of a JSON-RPC response envelope.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error: code %d: %s", e.Code, e.Message)
}

// IsStatus reports whether err carries an *HTTPError with the given HTTP
// status code.
func IsStatus(err error, status int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == status
}
