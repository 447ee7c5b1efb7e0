package daemon

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/geometry"
)

// Session is what the daemon remembers about each client window for as long
// as it runs: where its preview was last placed and which character was last
// logged in on it.
type Session struct {
	positions     map[xproto.Window]geometry.Position
	lastCharacter map[xproto.Window]string
}

func NewSession() *Session {
	return &Session{
		positions:     make(map[xproto.Window]geometry.Position),
		lastCharacter: make(map[xproto.Window]string),
	}
}

// Position picks where a preview for name on win should appear. A saved
// character position wins. Logged-out clients, and logged-in ones when
// preserve is set, fall back to the window's last position this session.
func (s *Session) Position(name string, win xproto.Window, saved map[string]geometry.Position, preserve bool) (geometry.Position, bool) {
	if name != "" {
		if pos, ok := saved[name]; ok {
			return pos, true
		}
		if !preserve {
			return geometry.Position{}, false
		}
	}
	pos, ok := s.positions[win]
	return pos, ok
}

func (s *Session) UpdatePosition(win xproto.Window, pos geometry.Position) {
	s.positions[win] = pos
}

// UpdateLastCharacter remembers name as the identity last seen on win.
// Logouts (empty names) leave the previous identity in place.
func (s *Session) UpdateLastCharacter(win xproto.Window, name string) {
	if name == "" {
		return
	}
	s.lastCharacter[win] = name
}

func (s *Session) LastCharacter(win xproto.Window) (string, bool) {
	name, ok := s.lastCharacter[win]
	return name, ok
}

// Remove forgets win entirely.
func (s *Session) Remove(win xproto.Window) {
	delete(s.positions, win)
	delete(s.lastCharacter, win)
}
