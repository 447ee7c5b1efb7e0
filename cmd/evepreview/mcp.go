package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/evepreview/internal/ipc"
	"github.com/1broseidon/evepreview/internal/mcp"
)

func printMCPUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: evepreview mcp [serve]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Start the MCP server on stdio. Tools talk to the running daemon over IPC.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Example:")
	fmt.Fprintln(w, "  claude mcp add evepreview -- evepreview mcp")
}

func runMCP(args []string) int {
	if len(args) > 0 {
		switch args[0] {
		case "serve":
			if len(args) > 1 {
				printMCPUsage(os.Stderr)
				return 2
			}
		case "help", "-h", "--help":
			printMCPUsage(os.Stdout)
			return 0
		default:
			fmt.Fprintf(os.Stderr, "Unknown mcp command: %s\n\n", args[0])
			printMCPUsage(os.Stderr)
			return 2
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(ipc.NewClient())
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		return 1
	}
	return 0
}
