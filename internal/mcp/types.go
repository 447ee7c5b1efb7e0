package mcp

import "github.com/1broseidon/evepreview/internal/ipc"

// ListPreviewsInput is the input for the list_previews tool.
type ListPreviewsInput struct{}

// ListPreviewsOutput is the output for the list_previews tool.
type ListPreviewsOutput struct {
	Profile       string            `json:"profile"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Previews      []ipc.PreviewInfo `json:"previews"`
}

// CyclePreviewInput is the input for the cycle_preview tool.
type CyclePreviewInput struct {
	Direction string `json:"direction,omitempty" jsonschema:"forward (default) or backward"`
}

// CyclePreviewOutput is the output for the cycle_preview tool.
type CyclePreviewOutput struct {
	Direction string `json:"direction"`
	Character string `json:"character"`
}

// SavePositionsInput is the input for the save_positions tool.
type SavePositionsInput struct{}

// SavePositionsOutput is the output for the save_positions tool.
type SavePositionsOutput struct {
	Saved bool `json:"saved"`
}

// MovePreviewInput is the input for the move_preview tool.
type MovePreviewInput struct {
	Character string `json:"character" jsonschema:"Character name shown on the preview"`
	X         int    `json:"x" jsonschema:"Left edge in root window coordinates"`
	Y         int    `json:"y" jsonschema:"Top edge in root window coordinates"`
	Width     int    `json:"width,omitempty" jsonschema:"New width in pixels (default: keep current size)"`
	Height    int    `json:"height,omitempty" jsonschema:"New height in pixels (default: keep current size)"`
}

// MovePreviewOutput is the output for the move_preview tool.
type MovePreviewOutput struct {
	Character string `json:"character"`
	X         int16  `json:"x"`
	Y         int16  `json:"y"`
	Width     uint16 `json:"width,omitempty"`
	Height    uint16 `json:"height,omitempty"`
}

// ReloadConfigInput is the input for the reload_config tool.
type ReloadConfigInput struct{}

// ReloadConfigOutput is the output for the reload_config tool.
type ReloadConfigOutput struct {
	Profile  string `json:"profile"`
	Previews int    `json:"previews"`
}
