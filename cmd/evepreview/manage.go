package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/1broseidon/evepreview/internal/ipc"
	"github.com/1broseidon/evepreview/internal/tui"
)

func runManage(args []string) int {
	fs := pflag.NewFlagSet("manage", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "Config file path (default: ~/.config/evepreview/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: evepreview manage [--config PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Interactive editor for profiles, thumbnails, hotkeys and characters.")
		fmt.Fprintln(os.Stderr, "Saving asks a running daemon to reload.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keys:")
		fmt.Fprintln(os.Stderr, "  tab/shift-tab  Switch tabs")
		fmt.Fprintln(os.Stderr, "  1-4            Jump to tab")
		fmt.Fprintln(os.Stderr, "  e              Edit settings on the Thumbnails and Behavior tabs")
		fmt.Fprintln(os.Stderr, "  ctrl+s         Review and save changes")
		fmt.Fprintln(os.Stderr, "  q, ctrl+c      Quit")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "manage takes no arguments")
		fs.Usage()
		return 2
	}

	path, err := resolveConfigPath(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := tui.Run(path, ipc.NewClient()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
