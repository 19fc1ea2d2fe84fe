// Package protocol defines the wire format spoken over the daemon's
// Unix socket: newline-delimited JSON frames, UTF-8, one request and
// one response per connection. The forwarder and the daemon ship
// independently, so this surface must stay stable within one major
// version.
package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hooksd/hooksd/internal/hook"
)

// Error kinds carried in Response.Error.
const (
	ErrKindInvalidJSON           = "invalid_json"
	ErrKindInputValidationFailed = "input_validation_failed"
	ErrKindHandlerTimeout        = "handler_timeout"
	ErrKindRequestTooLarge       = "request_too_large"
	ErrKindInternal              = "internal_error"
)

// EventPing is a liveness probe the server answers before dispatch. It
// is not part of the hook event set and never reaches a handler.
const EventPing = "Ping"

// ErrFrameTooLarge reports a request frame over the configured limit.
var ErrFrameTooLarge = errors.New("protocol: request frame too large")

// Request is one framed hook event from a forwarder.
type Request struct {
	Event     string         `json:"event"`
	HookInput map[string]any `json:"hook_input"`
	RequestID string         `json:"request_id"`
}

// Result is the dispatch outcome inside a success response.
type Result struct {
	Decision string   `json:"decision"`
	Reason   *string  `json:"reason"`
	Context  []string `json:"context"`
}

// Response is one framed reply. Exactly one of Result or Error is set.
type Response struct {
	RequestID *string  `json:"request_id"`
	Result    *Result  `json:"result,omitempty"`
	TimingMS  float64  `json:"timing_ms,omitempty"`
	Error     string   `json:"error,omitempty"`
	Details   []string `json:"details,omitempty"`
	EventType *string  `json:"event_type,omitempty"`
}

// SuccessResponse builds a success frame from a dispatch result.
// Context is always a JSON array, never null; reason is null when the
// handler gave none.
func SuccessResponse(requestID string, res hook.Result, timingMS float64) *Response {
	var reason *string
	if res.Reason != "" {
		r := res.Reason
		reason = &r
	}
	ctx := res.Context
	if ctx == nil {
		ctx = []string{}
	}
	return &Response{
		RequestID: &requestID,
		Result: &Result{
			Decision: string(res.Decision),
			Reason:   reason,
			Context:  ctx,
		},
		TimingMS: timingMS,
	}
}

// ErrorResponse builds an error frame. requestID and eventType are nil
// when the request could not be decoded far enough to know them.
func ErrorResponse(requestID *string, kind string, details []string, eventType *string) *Response {
	return &Response{
		RequestID: requestID,
		Error:     kind,
		Details:   details,
		EventType: eventType,
	}
}

// TimeoutResponse is the fail-open frame for an expired handler chain:
// an allow decision with the timeout error attached.
func TimeoutResponse(requestID string, timingMS float64) *Response {
	resp := SuccessResponse(requestID, hook.Allow(), timingMS)
	resp.Error = ErrKindHandlerTimeout
	return resp
}

// ReadRequest reads one newline-terminated request frame, enforcing
// maxBytes. A frame over the limit returns ErrFrameTooLarge; malformed
// JSON returns the decode error. io.EOF means the peer closed without
// sending a frame.
func ReadRequest(r io.Reader, maxBytes int) (*Request, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxBytes)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				return nil, ErrFrameTooLarge
			}
			return nil, err
		}
		return nil, io.EOF
	}

	var req Request
	if err := json.Unmarshal(sc.Bytes(), &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}

// WriteResponse writes one newline-terminated response frame.
func WriteResponse(w io.Writer, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// WriteRequest writes one newline-terminated request frame. Used by the
// forwarder side.
func WriteRequest(w io.Writer, req *Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}

// ReadResponse reads one newline-terminated response frame. Used by the
// forwarder side; the limit is generous since responses are small.
func ReadResponse(r io.Reader) (*Response, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	var resp Response
	if err := json.Unmarshal(sc.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}
