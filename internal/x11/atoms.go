package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xprop"
)

// Atoms holds the property identifiers the daemon touches on every event.
type Atoms struct {
	WMName             xproto.Atom
	NetWMName          xproto.Atom
	NetWMPID           xproto.Atom
	NetWMState         xproto.Atom
	NetWMStateHidden   xproto.Atom
	NetWMStateAbove    xproto.Atom
	NetWMWindowOpacity xproto.Atom
	WMClass            xproto.Atom
	NetActiveWindow    xproto.Atom
	WMChangeState      xproto.Atom
	WMState            xproto.Atom
	UTF8String         xproto.Atom
}

func internAtoms(xu *xgbutil.XUtil) (Atoms, error) {
	var a Atoms
	targets := []struct {
		name string
		dst  *xproto.Atom
	}{
		{"WM_NAME", &a.WMName},
		{"_NET_WM_NAME", &a.NetWMName},
		{"_NET_WM_PID", &a.NetWMPID},
		{"_NET_WM_STATE", &a.NetWMState},
		{"_NET_WM_STATE_HIDDEN", &a.NetWMStateHidden},
		{"_NET_WM_STATE_ABOVE", &a.NetWMStateAbove},
		{"_NET_WM_WINDOW_OPACITY", &a.NetWMWindowOpacity},
		{"WM_CLASS", &a.WMClass},
		{"_NET_ACTIVE_WINDOW", &a.NetActiveWindow},
		{"WM_CHANGE_STATE", &a.WMChangeState},
		{"WM_STATE", &a.WMState},
		{"UTF8_STRING", &a.UTF8String},
	}
	for _, t := range targets {
		atom, err := xprop.Atm(xu, t.name)
		if err != nil {
			return Atoms{}, fmt.Errorf("intern %s: %w", t.name, err)
		}
		*t.dst = atom
	}
	return a, nil
}
