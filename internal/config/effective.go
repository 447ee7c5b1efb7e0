package config

import (
	"fmt"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig layers raw over the defaults. When the file lists
// profiles they replace the built-in default profile; each one starts from
// DefaultProfile.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Log != nil {
		set(&cfg.Log.Level, raw.Log.Level)
		set(&cfg.Log.File, raw.Log.File)
		set(&cfg.Log.MaxSizeMB, raw.Log.MaxSizeMB)
		set(&cfg.Log.MaxFiles, raw.Log.MaxFiles)
	}

	if len(raw.Profiles) > 0 {
		cfg.Profiles = make([]Profile, 0, len(raw.Profiles))
		for i, rp := range raw.Profiles {
			if rp.Name == nil {
				return nil, &ValidationError{Path: fmt.Sprintf("profiles.%d", i), Err: fmt.Errorf("profile name is required")}
			}
			p := DefaultProfile(*rp.Name)
			set(&p.Description, rp.Description)
			rp.Thumbnails.applyTo(&p.Thumbnails)
			rp.Behavior.applyTo(&p.Behavior)
			rp.Hotkeys.applyTo(&p.Hotkeys)
			if rp.CycleOrder != nil {
				p.CycleOrder = append([]string(nil), rp.CycleOrder...)
			}
			p.CycleGroups = append([]CycleGroup(nil), rp.CycleGroups...)
			p.CustomWindows = append([]CustomWindowRule(nil), rp.CustomWindows...)
			for name, cs := range rp.Characters {
				p.Characters[name] = cs
			}
			cfg.Profiles = append(cfg.Profiles, p)
		}
		cfg.SelectedProfile = cfg.Profiles[0].Name
	}

	set(&cfg.SelectedProfile, raw.SelectedProfile)
	return cfg, nil
}
