package ipc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/geometry"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandPing          CommandType = "ping"
	CommandStatus        CommandType = "status"
	CommandReload        CommandType = "reload"
	CommandSave          CommandType = "save"
	CommandCycle         CommandType = "cycle"
	CommandApplyConfig   CommandType = "apply_config"
	CommandThumbnailMove CommandType = "thumbnail_move"
	CommandSubscribe     CommandType = "subscribe"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Cycle directions.
const (
	DirectionForward  = "forward"
	DirectionBackward = "backward"
)

type CyclePayload struct {
	Direction string `json:"direction"`
	// Group names a cycle group; empty is the default order.
	Group string `json:"group,omitempty"`
}

// CycleResult names the character a cycle request activated.
type CycleResult struct {
	Character string `json:"character"`
}

// ApplyConfigPayload replaces the active profile wholesale.
type ApplyConfigPayload struct {
	Profile config.Profile `json:"profile"`
}

// ThumbnailMovePayload moves (and optionally resizes) one character's
// preview. Zero width or height keeps the current size.
type ThumbnailMovePayload struct {
	Character string `json:"character"`
	X         int16  `json:"x"`
	Y         int16  `json:"y"`
	Width     uint16 `json:"width,omitempty"`
	Height    uint16 `json:"height,omitempty"`
}

// PreviewInfo describes one live preview.
type PreviewInfo struct {
	Character string `json:"character"`
	Window    uint32 `json:"window"`
	Source    uint32 `json:"source"`
	X         int16  `json:"x"`
	Y         int16  `json:"y"`
	Width     uint16 `json:"width"`
	Height    uint16 `json:"height"`
	Focused   bool   `json:"focused"`
	Minimized bool   `json:"minimized"`
	Hidden    bool   `json:"hidden"`
}

// StatusData represents the data returned by status
type StatusData struct {
	Profile       string        `json:"profile"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	Previews      []PreviewInfo `json:"previews"`
}

// EventType names a streamed daemon event.
type EventType string

const (
	EventLog               EventType = "log"
	EventCharacterDetected EventType = "character_detected"
	EventPositionChanged   EventType = "position_changed"
	EventError             EventType = "error"
	EventStatus            EventType = "status"
	EventHeartbeat         EventType = "heartbeat"
)

// Event is one line of a subscribe stream.
type Event struct {
	Type       EventType            `json:"type"`
	Time       time.Time            `json:"time"`
	Character  string               `json:"character,omitempty"`
	Window     uint32               `json:"window,omitempty"`
	Position   *geometry.Position   `json:"position,omitempty"`
	Dimensions *geometry.Dimensions `json:"dimensions,omitempty"`
	Level      string               `json:"level,omitempty"`
	Message    string               `json:"message,omitempty"`
	Status     *StatusData          `json:"status,omitempty"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// NewRequest builds a request, marshalling payload when it is non-nil.
func NewRequest(cmd CommandType, payload interface{}) (*Request, error) {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}
	return req, nil
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// DecodePayload unmarshals the request payload into v.
func (r *Request) DecodePayload(v interface{}) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("%s: payload is required", r.Command)
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", r.Command, err)
	}
	return nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
