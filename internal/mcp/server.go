// Package mcp exposes the running daemon to MCP clients over stdio. Every
// tool is a thin wrapper around one IPC request.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/evepreview/internal/ipc"
)

const (
	ServerName    = "evepreview"
	ServerVersion = "0.1.0"
)

// Daemon is the subset of the IPC client the tools use.
type Daemon interface {
	Status() (*ipc.StatusData, error)
	Cycle(direction string) (string, error)
	Save() error
	Reload() error
	MoveThumbnail(ipc.ThumbnailMovePayload) error
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server for a running evepreview daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
}

// NewServer creates an MCP server that forwards tool calls to d.
func NewServer(d Daemon) *Server {
	s := &Server{daemon: d}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_previews",
		Description: "List the live EVE client previews with character name, source window, position, size and focus state.",
	}, s.handleListPreviews)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "cycle_preview",
		Description: "Activate the next (forward) or previous (backward) client in the configured cycle order. Returns the character that was activated.",
	}, s.handleCyclePreview)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "save_positions",
		Description: "Write the current preview positions and sizes to the configuration file.",
	}, s.handleSavePositions)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_preview",
		Description: "Move a character's preview to x,y and optionally resize it. Moving to the current position is a no-op.",
	}, s.handleMovePreview)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload_config",
		Description: "Make the daemon re-read its configuration file and restyle every preview.",
	}, s.handleReloadConfig)
}
