// Command evepreview runs the preview daemon and talks to it over IPC.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		os.Exit(runDaemon(nil))
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "save":
		os.Exit(runSave(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "cycle":
		os.Exit(runCycle(os.Args[2:]))
	case "events":
		os.Exit(runEvents(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "manage":
		os.Exit(runManage(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: evepreview [command] [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Run the preview daemon (default)")
	fmt.Fprintln(w, "  save                Save preview positions now")
	fmt.Fprintln(w, "  status              List live previews")
	fmt.Fprintln(w, "  reload              Re-read the configuration file")
	fmt.Fprintln(w, "  cycle forward|backward")
	fmt.Fprintln(w, "                      Activate the next or previous client")
	fmt.Fprintln(w, "  events              Stream daemon events")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config init         Write a default configuration file")
	fmt.Fprintln(w, "  config path         Print the configuration file path")
	fmt.Fprintln(w, "  config print        Print the effective configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  manage              Edit the configuration interactively")
	fmt.Fprintln(w, "  mcp                 Start the MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'evepreview <command> --help' for command-specific options.")
}
