package ipc

import (
	"encoding/json"
	"fmt"
	"time"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload      CommandType = "RELOAD"
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandGetTopology CommandType = "GET_TOPOLOGY"
	CommandSnapshotNow CommandType = "SNAPSHOT_NOW"
	CommandRestoreNow  CommandType = "RESTORE_NOW"
	CommandListLayouts CommandType = "LIST_LAYOUTS"
	CommandPruneLayout CommandType = "PRUNE_LAYOUT"
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

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	State         string `json:"state"`
	Fingerprint   string `json:"fingerprint"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	DaemonRunning bool   `json:"daemon_running"`
}

// MonitorInfo represents information about a single monitor
type MonitorInfo struct {
	Name    string  `json:"name"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Scale   float64 `json:"scale"`
	Primary bool    `json:"primary"`
}

// TopologyData represents the data returned by GET_TOPOLOGY
type TopologyData struct {
	Fingerprint string        `json:"fingerprint"`
	Monitors    []MonitorInfo `json:"monitors"`
}

// LayoutSummary describes one stored layout
type LayoutSummary struct {
	Fingerprint string    `json:"fingerprint"`
	Description string    `json:"description"`
	WindowCount int       `json:"window_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LayoutsData represents the data returned by LIST_LAYOUTS
type LayoutsData struct {
	Layouts []LayoutSummary `json:"layouts"`
}

// PruneLayoutPayload represents the payload for PRUNE_LAYOUT
type PruneLayoutPayload struct {
	Fingerprint string `json:"fingerprint"`
}

// PruneLayoutData represents the data returned by PRUNE_LAYOUT
type PruneLayoutData struct {
	Pruned bool `json:"pruned"`
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

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
