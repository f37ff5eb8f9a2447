package surface

// Phase is a lifecycle transition of a surface.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseShellAttached
	PhaseCommitted
	PhaseMapped
	PhaseUnmapped
	PhaseRaised
	PhaseMoved
	PhaseFocusChanged
	PhaseCursorChanged
	PhaseDestroyed
)

// AllPhases lists every phase in declaration order.
var AllPhases = []Phase{
	PhaseCreated,
	PhaseShellAttached,
	PhaseCommitted,
	PhaseMapped,
	PhaseUnmapped,
	PhaseRaised,
	PhaseMoved,
	PhaseFocusChanged,
	PhaseCursorChanged,
	PhaseDestroyed,
}

// RedrawPhases are the transitions that change what is on screen.
var RedrawPhases = []Phase{
	PhaseShellAttached,
	PhaseCommitted,
	PhaseMapped,
	PhaseUnmapped,
	PhaseRaised,
	PhaseMoved,
	PhaseCursorChanged,
	PhaseDestroyed,
}

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseShellAttached:
		return "shell-attached"
	case PhaseCommitted:
		return "committed"
	case PhaseMapped:
		return "mapped"
	case PhaseUnmapped:
		return "unmapped"
	case PhaseRaised:
		return "raised"
	case PhaseMoved:
		return "moved"
	case PhaseFocusChanged:
		return "focus-changed"
	case PhaseCursorChanged:
		return "cursor-changed"
	case PhaseDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Event describes one lifecycle transition. View is set for PhaseMoved and
// PhaseShellAttached. Surface is nil for a focus change to nothing.
type Event struct {
	Phase   Phase
	Surface *Surface
	View    *View
}

// Listener receives lifecycle events from a Registry.
type Listener interface {
	SurfaceChanged(ev Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ev Event)

// SurfaceChanged calls f(ev).
func (f ListenerFunc) SurfaceChanged(ev Event) { f(ev) }

type subscription struct {
	id       int
	listener Listener
}

// dispatcher is a table of listeners keyed by lifecycle phase.
type dispatcher struct {
	nextID int
	table  map[Phase][]subscription
}

func newDispatcher() *dispatcher {
	return &dispatcher{table: make(map[Phase][]subscription)}
}

func (d *dispatcher) subscribe(l Listener, phases []Phase) func() {
	if len(phases) == 0 {
		phases = AllPhases
	}
	d.nextID++
	id := d.nextID
	for _, p := range phases {
		d.table[p] = append(d.table[p], subscription{id: id, listener: l})
	}
	return func() {
		for _, p := range phases {
			subs := d.table[p]
			for i, s := range subs {
				if s.id == id {
					d.table[p] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		}
	}
}

func (d *dispatcher) emit(ev Event) {
	// Copy so listeners may unsubscribe while being notified.
	subs := append([]subscription(nil), d.table[ev.Phase]...)
	for _, s := range subs {
		s.listener.SurfaceChanged(ev)
	}
}
