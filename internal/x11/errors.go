package x11

import (
	"errors"
	"strings"

	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"
)

// IsBadWindow reports whether err means the window (or drawable) went away
// between a request and its reply. Callers treat this as "skip", not a
// failure.
func IsBadWindow(err error) bool {
	if err == nil {
		return false
	}
	var winErr xproto.WindowError
	if errors.As(err, &winErr) {
		return true
	}
	var drawErr xproto.DrawableError
	if errors.As(err, &drawErr) {
		return true
	}
	// xgbutil flattens protocol errors into strings.
	msg := err.Error()
	return strings.Contains(msg, "BadWindow") || strings.Contains(msg, "BadDrawable")
}

// IsTeardownRace extends IsBadWindow with the errors a preview sees while its
// source is being destroyed: the server frees the damage object and source
// picture along with the window, so later requests on them fail with
// BadDamage or BadPicture.
func IsTeardownRace(err error) bool {
	if err == nil {
		return false
	}
	if IsBadWindow(err) {
		return true
	}
	var damageErr damage.BadDamageError
	if errors.As(err, &damageErr) {
		return true
	}
	var pictErr render.PictureError
	if errors.As(err, &pictErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "BadDamage") || strings.Contains(msg, "BadPicture")
}
