package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/keybind"
)

// KeycodesFor resolves a keysym name such as "Super_L" or "F12" to the
// native key codes that produce it.
func (c *Connection) KeycodesFor(name string) []uint32 {
	codes := keybind.StrToKeycodes(c.XUtil, name)
	out := make([]uint32, 0, len(codes))
	for _, kc := range codes {
		out = append(out, uint32(kc))
	}
	return out
}

// KeyName returns the keysym name for a key code under the given modifier
// state, or "" when the key has no symbol.
func (c *Connection) KeyName(scancode uint32, state uint16) string {
	return keybind.LookupString(c.XUtil, state, xproto.Keycode(scancode))
}
