package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

const (
	sourceIndication = 2 // pager/direct action
	iconicState      = 3
	netWMStateAdd    = 1
)

// Activate asks the window manager to focus and raise win using
// _NET_ACTIVE_WINDOW. ts is the timestamp of the triggering input event.
func (c *Connection) Activate(win xproto.Window, ts xproto.Timestamp) error {
	if err := c.sendRootMessage(win, c.Atoms.NetActiveWindow, sourceIndication, uint32(ts), 0, 0, 0); err != nil {
		return fmt.Errorf("activate %#x: %w", win, err)
	}
	return nil
}

// Minimize asks the window manager to iconify win. Both the EWMH hidden
// state and the ICCCM WM_CHANGE_STATE request are sent because window
// managers honour one or the other.
func (c *Connection) Minimize(win xproto.Window) error {
	err := c.sendRootMessage(win, c.Atoms.NetWMState,
		netWMStateAdd, uint32(c.Atoms.NetWMStateHidden), 0, sourceIndication, 0)
	if err != nil {
		return fmt.Errorf("set hidden state on %#x: %w", win, err)
	}
	if err := c.sendRootMessage(win, c.Atoms.WMChangeState, iconicState, 0, 0, 0, 0); err != nil {
		return fmt.Errorf("iconify %#x: %w", win, err)
	}
	return nil
}

// sendRootMessage builds the client message by hand; the xgbutil ewmh
// request helpers panic on this library version.
func (c *Connection) sendRootMessage(win xproto.Window, typ xproto.Atom, data ...uint32) error {
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   typ,
		Data:   xproto.ClientMessageDataUnionData32New(data),
	}

	return xproto.SendEventChecked(
		c.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}
