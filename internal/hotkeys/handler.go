// Package hotkeys grabs global key sequences on the host root window.
package hotkeys

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/nestcomp/internal/x11"
)

// Handler manages global keyboard shortcuts. Callbacks run on the X event
// goroutine and must hand work to the compositor loop themselves.
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	logger *slog.Logger

	mu         sync.Mutex
	registered []string
}

var ignoreModsOnce sync.Once

// NewHandler creates a hotkey handler on conn's root window.
func NewHandler(conn *x11.Connection, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(conn.XUtil)
	})
	return &Handler{
		xu:     conn.XUtil,
		root:   conn.Root,
		logger: logger,
	}
}

// RegisterFunc grabs keySequence and calls callback on every press. An
// empty sequence is ignored.
func (h *Handler) RegisterFunc(name, keySequence string, callback func()) error {
	if keySequence == "" {
		return nil
	}
	err := keybind.KeyPressFun(func(_ *xgbutil.XUtil, _ xevent.KeyPressEvent) {
		h.logger.Debug("hotkey triggered", "hotkey", name, "keys", keySequence)
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
	if err != nil {
		return fmt.Errorf("register %s hotkey %q: %w", name, keySequence, err)
	}

	h.mu.Lock()
	h.registered = append(h.registered, keySequence)
	h.mu.Unlock()
	h.logger.Info("hotkey registered", "hotkey", name, "keys", keySequence)
	return nil
}

// UnregisterAll releases every grab made by this handler.
func (h *Handler) UnregisterAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, seq := range h.registered {
		mods, codes, err := keybind.ParseString(h.xu, seq)
		if err != nil {
			continue
		}
		for _, code := range codes {
			keybind.Ungrab(h.xu, h.root, mods, code)
		}
	}
	keybind.Detach(h.xu, h.root)
	h.registered = nil
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}
	for _, mask := range ignoreMasks(base) {
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

// ignoreMasks returns every non-empty combination of base.
func ignoreMasks(base []uint16) []uint16 {
	var out []uint16
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		out = append(out, mask)
	}
	return out
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
