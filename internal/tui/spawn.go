package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/1broseidon/nestcomp/internal/compositor"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

// spawnForm collects a SPAWN_SURFACE request.
type spawnForm struct {
	form *huh.Form

	// Form-bound values (strings for huh, converted on submit)
	fName     string
	fRole     string
	fWidth    string
	fHeight   string
	fParent   string
	fOffsetX  string
	fOffsetY  string
	fPattern  string
	fColor    string
	fOrigin   string
	fExtended bool
	fMap      bool
}

// newSpawnForm builds the form. parent pre-fills the popup parent, usually
// with the selected surface.
func newSpawnForm(width int, parent protocol.SurfaceID) *spawnForm {
	f := &spawnForm{
		fRole:    "toplevel",
		fWidth:   "200",
		fHeight:  "150",
		fOffsetX: "20",
		fOffsetY: "20",
		fPattern: "solid",
		fOrigin:  "top-left",
		fMap:     true,
	}
	if parent != 0 {
		f.fParent = strconv.FormatUint(uint64(parent), 10)
	}

	w := width - 4
	if w < 40 {
		w = 40
	}

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("client_name").
				Title("Client Name").
				Description("Name shown in the surface list").
				Value(&f.fName),

			huh.NewSelect[string]().
				Key("role").
				Title("Role").
				Options(huh.NewOptions("toplevel", "popup", "cursor")...).
				Value(&f.fRole),

			huh.NewInput().
				Key("width").
				Title("Width").
				Validate(positiveInt).
				Value(&f.fWidth),

			huh.NewInput().
				Key("height").
				Title("Height").
				Validate(positiveInt).
				Value(&f.fHeight),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("parent").
				Title("Popup Parent").
				Description("Surface id; popups only").
				Value(&f.fParent),
			huh.NewInput().
				Key("offset_x").
				Title("Popup Offset X").
				Validate(optionalFloat).
				Value(&f.fOffsetX),
			huh.NewInput().
				Key("offset_y").
				Title("Popup Offset Y").
				Validate(optionalFloat).
				Value(&f.fOffsetY),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("pattern").
				Title("Pattern").
				Options(huh.NewOptions("solid", "checker", "border")...).
				Value(&f.fPattern),
			huh.NewInput().
				Key("color").
				Title("Color").
				Description("#rrggbb; empty picks from the palette").
				Value(&f.fColor),
			huh.NewSelect[string]().
				Key("origin").
				Title("Buffer Origin").
				Options(huh.NewOptions("top-left", "bottom-left")...).
				Value(&f.fOrigin),
			huh.NewConfirm().
				Key("extended").
				Title("Extended Surface").
				Description("Report on-screen visibility to the client").
				Value(&f.fExtended),
			huh.NewConfirm().
				Key("map").
				Title("Map").
				Value(&f.fMap),
		),
	).WithWidth(w).WithShowHelp(true).WithShowErrors(true)
	return f
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return errors.New("must be a positive number")
	}
	return nil
}

func optionalFloat(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return errors.New("must be a number")
	}
	return nil
}

// request converts the bound values into a spawn request.
func (f *spawnForm) request() (compositor.SpawnRequest, error) {
	req := compositor.SpawnRequest{
		ClientName: strings.TrimSpace(f.fName),
		Role:       f.fRole,
		Pattern:    f.fPattern,
		Color:      strings.TrimSpace(f.fColor),
		Origin:     f.fOrigin,
		Extended:   f.fExtended,
		Map:        f.fMap,
	}

	var err error
	if req.Width, err = strconv.Atoi(strings.TrimSpace(f.fWidth)); err != nil || req.Width <= 0 {
		return req, fmt.Errorf("width %q must be a positive number", f.fWidth)
	}
	if req.Height, err = strconv.Atoi(strings.TrimSpace(f.fHeight)); err != nil || req.Height <= 0 {
		return req, fmt.Errorf("height %q must be a positive number", f.fHeight)
	}

	if f.fRole != "popup" {
		return req, nil
	}
	parent, err := strconv.ParseUint(strings.TrimSpace(f.fParent), 10, 32)
	if err != nil || parent == 0 {
		return req, fmt.Errorf("popup needs a parent surface id, got %q", f.fParent)
	}
	req.Parent = protocol.SurfaceID(parent)
	if req.OffsetX, err = parseOptionalFloat(f.fOffsetX); err != nil {
		return req, fmt.Errorf("offset x: %w", err)
	}
	if req.OffsetY, err = parseOptionalFloat(f.fOffsetY); err != nil {
		return req, fmt.Errorf("offset y: %w", err)
	}
	return req, nil
}

func parseOptionalFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// openSpawn shows the spawn form in place of the surface browser.
func (m model) openSpawn() (model, tea.Cmd) {
	var parent protocol.SurfaceID
	if info, ok := m.selected(); ok {
		parent = info.ID
	}
	m.spawn = newSpawnForm(m.width, parent)
	return m, m.spawn.form.Init()
}

// updateSpawn feeds msg to the open form. esc cancels; a completed form
// sends SPAWN_SURFACE.
func (m model) updateSpawn(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			m.spawn = nil
			m.note = "spawn cancelled"
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(m.listWidth(), m.contentHeight())
	}

	form, cmd := m.spawn.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.spawn.form = f
	}

	switch m.spawn.form.State {
	case huh.StateCompleted:
		sf := m.spawn
		m.spawn = nil
		return m, m.submitSpawn(sf)
	case huh.StateAborted:
		m.spawn = nil
		return m, nil
	}
	return m, cmd
}

func (m model) submitSpawn(sf *spawnForm) tea.Cmd {
	req, err := sf.request()
	if err != nil {
		return func() tea.Msg { return actionMsg{err: err} }
	}
	d := m.daemon
	return action(func() (string, error) {
		info, err := d.Spawn(req)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("spawned surface %d", info.ID), nil
	})
}
