package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Explain returns the effective value at a dotted YAML path and where it came
// from. Sequence items are addressed by index:
//
//	selected_profile
//	log.level
//	profiles.0.thumbnails.opacity
//	profiles.0.characters.<name>.x
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	var root yaml.Node
	if err := root.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	node := &root
	for _, part := range strings.Split(path, ".") {
		next, err := child(node, part)
		if err != nil {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		node = next
	}

	var value any
	if err := node.Decode(&value); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return value, nil
}

func child(node *yaml.Node, key string) (*yaml.Node, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, fmt.Errorf("empty document")
		}
		return child(node.Content[0], key)
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				return node.Content[i+1], nil
			}
		}
	case yaml.SequenceNode:
		idx, err := strconv.Atoi(key)
		if err == nil && idx >= 0 && idx < len(node.Content) {
			return node.Content[idx], nil
		}
	}
	return nil, fmt.Errorf("no key %q", key)
}
