package mcp

import (
	"context"
	"fmt"
	"math"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/evepreview/internal/ipc"
)

func (s *Server) handleListPreviews(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListPreviewsInput) (*mcpsdk.CallToolResult, ListPreviewsOutput, error) {
	status, err := s.daemon.Status()
	if err != nil {
		return nil, ListPreviewsOutput{}, fmt.Errorf("daemon status: %w", err)
	}
	previews := status.Previews
	if previews == nil {
		previews = []ipc.PreviewInfo{}
	}
	return nil, ListPreviewsOutput{
		Profile:       status.Profile,
		UptimeSeconds: status.UptimeSeconds,
		Previews:      previews,
	}, nil
}

func (s *Server) handleCyclePreview(_ context.Context, _ *mcpsdk.CallToolRequest, args CyclePreviewInput) (*mcpsdk.CallToolResult, CyclePreviewOutput, error) {
	direction := strings.ToLower(strings.TrimSpace(args.Direction))
	switch direction {
	case "":
		direction = ipc.DirectionForward
	case ipc.DirectionForward, ipc.DirectionBackward:
	default:
		return nil, CyclePreviewOutput{}, fmt.Errorf("direction must be %q or %q, got %q", ipc.DirectionForward, ipc.DirectionBackward, args.Direction)
	}

	character, err := s.daemon.Cycle(direction)
	if err != nil {
		return nil, CyclePreviewOutput{}, fmt.Errorf("cycle %s: %w", direction, err)
	}
	return nil, CyclePreviewOutput{Direction: direction, Character: character}, nil
}

func (s *Server) handleSavePositions(_ context.Context, _ *mcpsdk.CallToolRequest, _ SavePositionsInput) (*mcpsdk.CallToolResult, SavePositionsOutput, error) {
	if err := s.daemon.Save(); err != nil {
		return nil, SavePositionsOutput{}, fmt.Errorf("save positions: %w", err)
	}
	return nil, SavePositionsOutput{Saved: true}, nil
}

func (s *Server) handleMovePreview(_ context.Context, _ *mcpsdk.CallToolRequest, args MovePreviewInput) (*mcpsdk.CallToolResult, MovePreviewOutput, error) {
	move, err := movePayload(args)
	if err != nil {
		return nil, MovePreviewOutput{}, err
	}
	if err := s.daemon.MoveThumbnail(move); err != nil {
		return nil, MovePreviewOutput{}, fmt.Errorf("move %s: %w", move.Character, err)
	}
	return nil, MovePreviewOutput{
		Character: move.Character,
		X:         move.X,
		Y:         move.Y,
		Width:     move.Width,
		Height:    move.Height,
	}, nil
}

func (s *Server) handleReloadConfig(_ context.Context, _ *mcpsdk.CallToolRequest, _ ReloadConfigInput) (*mcpsdk.CallToolResult, ReloadConfigOutput, error) {
	if err := s.daemon.Reload(); err != nil {
		return nil, ReloadConfigOutput{}, fmt.Errorf("reload config: %w", err)
	}
	status, err := s.daemon.Status()
	if err != nil {
		return nil, ReloadConfigOutput{}, fmt.Errorf("daemon status: %w", err)
	}
	return nil, ReloadConfigOutput{Profile: status.Profile, Previews: len(status.Previews)}, nil
}

// movePayload range-checks tool arguments against the X11 coordinate types.
func movePayload(args MovePreviewInput) (ipc.ThumbnailMovePayload, error) {
	name := strings.TrimSpace(args.Character)
	if name == "" {
		return ipc.ThumbnailMovePayload{}, fmt.Errorf("character is required")
	}
	if args.X < math.MinInt16 || args.X > math.MaxInt16 || args.Y < math.MinInt16 || args.Y > math.MaxInt16 {
		return ipc.ThumbnailMovePayload{}, fmt.Errorf("position %d,%d is outside the X11 coordinate range", args.X, args.Y)
	}
	if args.Width < 0 || args.Width > math.MaxUint16 || args.Height < 0 || args.Height > math.MaxUint16 {
		return ipc.ThumbnailMovePayload{}, fmt.Errorf("size %dx%d is out of range", args.Width, args.Height)
	}
	if (args.Width == 0) != (args.Height == 0) {
		return ipc.ThumbnailMovePayload{}, fmt.Errorf("width and height must be given together")
	}
	return ipc.ThumbnailMovePayload{
		Character: name,
		X:         int16(args.X),
		Y:         int16(args.Y),
		Width:     uint16(args.Width),
		Height:    uint16(args.Height),
	}, nil
}
