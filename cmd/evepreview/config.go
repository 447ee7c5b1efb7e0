package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/evepreview/internal/config"
)

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  evepreview config validate [--path PATH]")
	fmt.Fprintln(w, "  evepreview config init [--path PATH] [--force]")
	fmt.Fprintln(w, "  evepreview config path")
	fmt.Fprintln(w, "  evepreview config print [--path PATH] [--defaults]")
	fmt.Fprintln(w, "  evepreview config explain [--path PATH] <yaml.path>")
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printConfigUsage(os.Stderr)
		return 2
	}
	return runConfigCommand(os.Stdout, os.Stderr, args[0], args[1:])
}

func runConfigCommand(stdout, stderr io.Writer, cmd string, args []string) int {
	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	pathFlag := fs.String("path", "", "Config file path (default: ~/.config/evepreview/config.yaml)")
	force := false
	defaults := false
	switch cmd {
	case "init":
		fs.BoolVar(&force, "force", false, "Overwrite an existing file")
	case "print":
		fs.BoolVar(&defaults, "defaults", false, "Print built-in defaults (no files)")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	path, err := resolveConfigPath(*pathFlag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	switch cmd {
	case "path":
		fmt.Fprintln(stdout, path)
		return 0

	case "validate":
		res, err := config.LoadFromPath(path)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		if !res.Exists {
			fmt.Fprintf(stdout, "config: ok (%s not found, using defaults)\n", path)
			return 0
		}
		fmt.Fprintln(stdout, "config: ok")
		return 0

	case "init":
		if _, err := os.Stat(path); err == nil && !force {
			fmt.Fprintf(stderr, "%s already exists (use --force to overwrite)\n", path)
			return 1
		}
		if err := config.DefaultConfig().SaveToPath(path); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "wrote %s\n", path)
		return 0

	case "print":
		cfg := config.DefaultConfig()
		if !defaults {
			res, err := config.LoadFromPath(path)
			if err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprint(stdout, string(data))
		return 0

	case "explain":
		if fs.NArg() < 1 {
			fmt.Fprintln(stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)
		res, err := config.LoadFromPath(path)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "path: %s\n", queryPath)
		fmt.Fprintf(stdout, "source: %s\n", formatSource(src))
		fmt.Fprintf(stdout, "value:\n%s", string(out))
		return 0

	default:
		fmt.Fprintf(stderr, "Unknown config command: %s\n\n", cmd)
		printConfigUsage(stderr)
		return 2
	}
}

func formatSource(src config.Source) string {
	if src.Kind == config.SourceFile {
		return fmt.Sprintf("%s:%d:%d", src.File, src.Line, src.Column)
	}
	return string(src.Kind)
}
