package config

import "github.com/1broseidon/evepreview/internal/geometry"

// SavedPosition returns the stored position for name.
func (p *Profile) SavedPosition(name string) (geometry.Position, bool) {
	cs, ok := p.Characters[name]
	if !ok {
		return geometry.Position{}, false
	}
	return geometry.Position{X: cs.X, Y: cs.Y}, true
}

// CharacterDimensions returns the stored size for name. Without one it
// falls back to the default size of a matching custom window rule, then to the
// shared thumbnail size. It reads the live character map, so sizes recorded
// since the profile was applied are honoured.
func (p *Profile) CharacterDimensions(name string) geometry.Dimensions {
	if cs, ok := p.Characters[name]; ok && cs.Width > 0 && cs.Height > 0 {
		return geometry.Dimensions{Width: cs.Width, Height: cs.Height}
	}
	if rule, ok := p.CustomWindow(name); ok && rule.Width > 0 && rule.Height > 0 {
		return geometry.Dimensions{Width: rule.Width, Height: rule.Height}
	}
	return geometry.Dimensions{Width: p.Thumbnails.Width, Height: p.Thumbnails.Height}
}

// SavedPositions returns every stored character position.
func (p *Profile) SavedPositions() map[string]geometry.Position {
	out := make(map[string]geometry.Position, len(p.Characters))
	for name, cs := range p.Characters {
		out[name] = geometry.Position{X: cs.X, Y: cs.Y}
	}
	return out
}

// UpdateCharacterPosition records the geometry of name, keeping its alias,
// notes and overrides. Empty names (logged-out clients) are not stored.
func (p *Profile) UpdateCharacterPosition(name string, pos geometry.Position, dims geometry.Dimensions) {
	if name == "" {
		return
	}
	if p.Characters == nil {
		p.Characters = make(map[string]CharacterSettings)
	}
	cs := p.Characters[name]
	cs.X, cs.Y = pos.X, pos.Y
	cs.Width, cs.Height = dims.Width, dims.Height
	p.Characters[name] = cs
}

// HandleCharacterChange stores the outgoing character's geometry and returns
// the saved position of the incoming one, if any.
func (p *Profile) HandleCharacterChange(oldName, newName string, pos geometry.Position, dims geometry.Dimensions) (geometry.Position, bool) {
	p.UpdateCharacterPosition(oldName, pos, dims)
	if newName == "" {
		return geometry.Position{}, false
	}
	return p.SavedPosition(newName)
}
