package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/1broseidon/evepreview/internal/ipc"
	"github.com/1broseidon/evepreview/internal/runtimepath"
)

// parseNoArgs parses a subcommand that only takes flags.
func parseNoArgs(fs *pflag.FlagSet, args []string) (int, bool) {
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", fs.Name())
		fs.Usage()
		return 2, false
	}
	return 0, true
}

func runSave(args []string) int {
	fs := pflag.NewFlagSet("save", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: evepreview save")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Save preview positions. Falls back to SIGUSR1 when the IPC socket is unavailable.")
	}
	if code, ok := parseNoArgs(fs, args); !ok {
		return code
	}

	err := ipc.NewClient().Save()
	if err == nil {
		fmt.Println("positions saved")
		return 0
	}
	if !errors.Is(err, ipc.ErrNotRunning) {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if sigErr := signalSave(); sigErr != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, sigErr)
		return 1
	}
	fmt.Println("save requested")
	return 0
}

// signalSave asks the daemon recorded in the pid file to save.
func signalSave() error {
	path, err := runtimepath.PIDPath()
	if err != nil {
		return err
	}
	pid, err := runtimepath.ReadPID(path)
	if err != nil {
		return fmt.Errorf("no daemon pid: %w", err)
	}
	if err := unix.Kill(pid, unix.SIGUSR1); err != nil {
		return fmt.Errorf("signal daemon %d: %w", pid, err)
	}
	return nil
}

func runStatus(args []string) int {
	fs := pflag.NewFlagSet("status", pflag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Print JSON (default when stdout is not a terminal)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: evepreview status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List live previews via IPC.")
	}
	if code, ok := parseNoArgs(fs, args); !ok {
		return code
	}

	status, err := ipc.NewClient().Status()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON || !term.IsTerminal(int(os.Stdout.Fd())) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
	writeStatus(os.Stdout, status)
	return 0
}

// writeStatus prints a padded table of previews. Column widths account for
// wide characters in names.
func writeStatus(w io.Writer, status *ipc.StatusData) {
	fmt.Fprintf(w, "profile: %s  uptime: %s  previews: %d\n",
		status.Profile, time.Duration(status.UptimeSeconds)*time.Second, len(status.Previews))
	if len(status.Previews) == 0 {
		return
	}

	previews := append([]ipc.PreviewInfo(nil), status.Previews...)
	sort.SliceStable(previews, func(i, j int) bool { return previews[i].Character < previews[j].Character })

	header := []string{"CHARACTER", "SOURCE", "POSITION", "SIZE", "STATE"}
	rows := [][]string{header}
	for _, p := range previews {
		name := p.Character
		if name == "" {
			name = "(logged out)"
		}
		rows = append(rows, []string{
			name,
			fmt.Sprintf("0x%x", p.Source),
			fmt.Sprintf("%d,%d", p.X, p.Y),
			fmt.Sprintf("%dx%d", p.Width, p.Height),
			previewState(p),
		})
	}

	widths := make([]int, len(header))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for _, row := range rows {
		var sb strings.Builder
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]+2))
		}
		fmt.Fprintln(w, sb.String())
	}
}

func previewState(p ipc.PreviewInfo) string {
	var states []string
	if p.Focused {
		states = append(states, "focused")
	}
	if p.Minimized {
		states = append(states, "minimized")
	}
	if p.Hidden {
		states = append(states, "hidden")
	}
	if len(states) == 0 {
		return "-"
	}
	return strings.Join(states, ",")
}

func runReload(args []string) int {
	fs := pflag.NewFlagSet("reload", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: evepreview reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Make the daemon re-read its configuration file.")
	}
	if code, ok := parseNoArgs(fs, args); !ok {
		return code
	}
	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("config reloaded")
	return 0
}

func runCycle(args []string) int {
	fs := pflag.NewFlagSet("cycle", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	group := fs.StringP("group", "g", "", "Cycle group (default: cycle_order)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: evepreview cycle [--group NAME] forward|backward")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	direction := strings.ToLower(fs.Arg(0))
	if direction != ipc.DirectionForward && direction != ipc.DirectionBackward {
		fmt.Fprintf(os.Stderr, "unknown direction %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	name, err := ipc.NewClient().CycleGroup(direction, *group)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if name != "" {
		fmt.Println(name)
	}
	return 0
}

func runEvents(args []string) int {
	fs := pflag.NewFlagSet("events", pflag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Print raw JSON lines")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: evepreview events [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Stream daemon events until interrupted.")
	}
	if code, ok := parseNoArgs(fs, args); !ok {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	err := ipc.NewClient().Subscribe(ctx, func(ev ipc.Event) {
		if *asJSON {
			enc.Encode(ev)
			return
		}
		fmt.Println(formatEvent(ev))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func formatEvent(ev ipc.Event) string {
	var sb strings.Builder
	sb.WriteString(ev.Time.Format("15:04:05"))
	sb.WriteString(" ")
	sb.WriteString(string(ev.Type))
	if ev.Level != "" {
		sb.WriteString(" [" + ev.Level + "]")
	}
	if ev.Character != "" {
		sb.WriteString(" character=" + strconv.Quote(ev.Character))
	}
	if ev.Window != 0 {
		fmt.Fprintf(&sb, " window=0x%x", ev.Window)
	}
	if ev.Position != nil {
		fmt.Fprintf(&sb, " pos=%d,%d", ev.Position.X, ev.Position.Y)
	}
	if ev.Dimensions != nil {
		fmt.Fprintf(&sb, " size=%dx%d", ev.Dimensions.Width, ev.Dimensions.Height)
	}
	if ev.Message != "" {
		sb.WriteString(" " + ev.Message)
	}
	return sb.String()
}
