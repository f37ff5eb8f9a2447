package platform

// Display describes a physical display reported by the host window system.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
}

// Modifiers is the set of held keyboard modifiers.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModAlt
	ModSuper
)

// Has reports whether every modifier in m2 is held in m.
func (m Modifiers) Has(m2 Modifiers) bool {
	return m&m2 == m2
}

func (m Modifiers) String() string {
	if m == 0 {
		return "none"
	}
	s := ""
	add := func(name string) {
		if s != "" {
			s += "+"
		}
		s += name
	}
	if m.Has(ModShift) {
		add("shift")
	}
	if m.Has(ModControl) {
		add("control")
	}
	if m.Has(ModAlt) {
		add("alt")
	}
	if m.Has(ModSuper) {
		add("super")
	}
	return s
}

// ParseModifier maps a config name to a single modifier.
func ParseModifier(name string) (Modifiers, bool) {
	switch name {
	case "shift":
		return ModShift, true
	case "control", "ctrl":
		return ModControl, true
	case "alt", "mod1":
		return ModAlt, true
	case "super", "meta", "mod4":
		return ModSuper, true
	default:
		return 0, false
	}
}
