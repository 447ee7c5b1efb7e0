package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
)

type Source struct {
	Kind   SourceKind
	File   string
	Line   int
	Column int
}

type LoadResult struct {
	Config  *Config
	Path    string
	Exists  bool
	Sources map[string]Source // YAML path -> location in the file
}

const (
	appDirName     = "evepreview"
	configFileName = "config.yaml"
)

// DefaultConfigPath returns $XDG_CONFIG_HOME/evepreview/config.yaml, falling
// back to ~/.config.
func DefaultConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appDirName, configFileName), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", appDirName, configFileName), nil
}

// Load reads the configuration from the standard location.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	res, err := LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadFromPath reads, decodes strictly, applies defaults and validates. A
// missing file yields the defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		return &LoadResult{Config: cfg, Path: path, Sources: map[string]Source{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read: %w", path, err)
	}
	return parse(path, data)
}

func parse(path string, data []byte) (*LoadResult, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: failed to parse yaml: %w", path, err)
	}

	var raw RawConfig
	if err := decodeStrictYAML(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	sources := collectSources(&doc, path)
	cfg, err := BuildEffectiveConfig(raw)
	if err != nil {
		return nil, attachSourceContext(err, sources)
	}
	if err := cfg.Validate(); err != nil {
		return nil, attachSourceContext(err, sources)
	}

	return &LoadResult{
		Config:  cfg,
		Path:    path,
		Exists:  true,
		Sources: sources,
	}, nil
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return nil
}

func collectSources(doc *yaml.Node, file string) map[string]Source {
	out := make(map[string]Source)
	if doc == nil {
		return out
	}
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	collectSourcesRec(node, file, "", out)
	return out
}

func collectSourcesRec(node *yaml.Node, file string, prefix string, out map[string]Source) {
	if node == nil {
		return
	}
	record := func(path string, n *yaml.Node) {
		out[path] = Source{
			Kind:   SourceFile,
			File:   file,
			Line:   n.Line,
			Column: n.Column,
		}
	}
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			path := keyNode.Value
			if prefix != "" {
				path = prefix + "." + keyNode.Value
			}
			record(path, valNode)
			collectSourcesRec(valNode, file, path, out)
		}
	case yaml.SequenceNode:
		// Items are addressed by index: profiles.0.name
		for i, item := range node.Content {
			path := strconv.Itoa(i)
			if prefix != "" {
				path = prefix + "." + path
			}
			record(path, item)
			collectSourcesRec(item, file, path, out)
		}
	}
}

func attachSourceContext(err error, sources map[string]Source) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr == nil {
		return err
	}
	if verr.Path == "" {
		return err
	}
	if src, ok := sources[verr.Path]; ok {
		verr.Source = src
	}
	return verr
}
