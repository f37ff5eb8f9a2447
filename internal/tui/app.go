package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/nestcomp/internal/compositor"
	"github.com/1broseidon/nestcomp/internal/ipc"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

const refreshInterval = time.Second

type tickMsg time.Time

type refreshMsg struct {
	status   *compositor.Status
	surfaces []compositor.SurfaceInfo
	err      error
}

type actionMsg struct {
	note string
	err  error
}

// surfaceItem is a list entry for one compositor surface.
type surfaceItem struct {
	info compositor.SurfaceInfo
}

func (i surfaceItem) Title() string {
	mark := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("·")
	switch {
	case i.info.Focused:
		mark = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
	case i.info.Mapped:
		mark = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Render("○")
	}
	name := i.info.ClientName
	if name == "" {
		name = fmt.Sprintf("client %d", i.info.Client)
	}
	return fmt.Sprintf("%s #%d %s (%s)", mark, i.info.ID, i.info.Role, name)
}

func (i surfaceItem) Description() string {
	state := "unmapped"
	if i.info.Mapped {
		state = "mapped"
		if !i.info.OnScreen {
			state += ", off-screen"
		}
	}
	return fmt.Sprintf("%dx%d at %.0f,%.0f  %s", i.info.Width, i.info.Height, i.info.X, i.info.Y, state)
}

func (i surfaceItem) FilterValue() string { return i.info.ClientName }

// model is the root bubbletea model for the TUI.
type model struct {
	daemon Daemon

	activeTab Tab
	list      list.Model
	surfaces  []compositor.SurfaceInfo
	status    *compositor.Status
	lastErr   string
	note      string
	spawn     *spawnForm

	width  int
	height int
}

func newModel(daemon Daemon) model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("15")).
		BorderForeground(lipgloss.Color("62"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("250")).
		BorderForeground(lipgloss.Color("62"))

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Surfaces"
	l.Styles.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.KeyMap.Quit.SetEnabled(false)

	return model{
		daemon:    daemon,
		activeTab: TabSurfaces,
		list:      l,
	}
}

func refresh(d Daemon) tea.Cmd {
	return func() tea.Msg {
		status, err := d.GetStatus()
		if err != nil {
			return refreshMsg{err: err}
		}
		surfaces, err := d.ListSurfaces()
		return refreshMsg{status: status, surfaces: surfaces, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// action runs fn off the update loop; the resulting actionMsg triggers a
// refresh.
func action(fn func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		note, err := fn()
		return actionMsg{note: note, err: err}
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(refresh(m.daemon), tick())
}

func (m model) selected() (compositor.SurfaceInfo, bool) {
	item, ok := m.list.SelectedItem().(surfaceItem)
	if !ok {
		return compositor.SurfaceInfo{}, false
	}
	return item.info, true
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.spawn != nil {
		switch msg.(type) {
		case tickMsg, refreshMsg, actionMsg:
		default:
			return m.updateSpawn(msg)
		}
	}

	switch msg := msg.(type) {
	case tickMsg:
		return m, tea.Batch(refresh(m.daemon), tick())

	case refreshMsg:
		if msg.err != nil {
			m.status = nil
			m.lastErr = msg.err.Error()
			return m, nil
		}
		if m.status == nil {
			// Reconnected; drop the stale connection error.
			m.lastErr = ""
		}
		m.status = msg.status
		return m, m.setSurfaces(msg.surfaces)

	case actionMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			m.note = ""
		} else {
			m.lastErr = ""
			m.note = msg.note
		}
		return m, refresh(m.daemon)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(m.listWidth(), m.contentHeight())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case "shift+tab":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
			return m, nil
		case "1":
			m.activeTab = TabSurfaces
			return m, nil
		case "2":
			m.activeTab = TabStatus
			return m, nil
		}
		if m.activeTab == TabSurfaces && msg.String() == "n" {
			return m.openSpawn()
		}
		if m.activeTab == TabSurfaces {
			if cmd, ok := m.surfaceKey(msg.String()); ok {
				return m, cmd
			}
		}
	}

	if m.activeTab != TabSurfaces {
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) surfaceKey(key string) (tea.Cmd, bool) {
	d := m.daemon
	if key == "t" {
		return action(func() (string, error) {
			n, err := d.Tile(ipc.TilePayload{})
			return fmt.Sprintf("tiled %d surfaces", n), err
		}), true
	}

	info, ok := m.selected()
	if !ok {
		return nil, false
	}
	id := info.ID
	switch key {
	case "enter":
		return action(func() (string, error) {
			raised, err := d.Raise(id)
			if !raised {
				return fmt.Sprintf("surface %d already on top", id), err
			}
			return fmt.Sprintf("raised surface %d", id), err
		}), true
	case "m":
		if info.Mapped {
			return action(func() (string, error) {
				return fmt.Sprintf("unmapped surface %d", id), d.Unmap(id)
			}), true
		}
		return action(func() (string, error) {
			return fmt.Sprintf("mapped surface %d", id), d.Map(id)
		}), true
	case "d":
		return action(func() (string, error) {
			return fmt.Sprintf("destroyed surface %d", id), d.Destroy(id)
		}), true
	}
	return nil, false
}

// setSurfaces replaces the list items, keeping the cursor on the same
// surface when it still exists.
func (m *model) setSurfaces(surfaces []compositor.SurfaceInfo) tea.Cmd {
	var keep protocol.SurfaceID
	if info, ok := m.selected(); ok {
		keep = info.ID
	}
	m.surfaces = surfaces

	items := make([]list.Item, 0, len(surfaces))
	idx := 0
	for i, s := range surfaces {
		items = append(items, surfaceItem{info: s})
		if s.ID == keep {
			idx = i
		}
	}
	cmd := m.list.SetItems(items)
	if len(items) > 0 {
		m.list.Select(idx)
	}
	return cmd
}

func (m model) listWidth() int {
	w := m.width * 2 / 5
	if w < 30 {
		w = 30
	}
	return w
}

// contentHeight returns the height available for tab content.
func (m model) contentHeight() int {
	// status bar (1) + tab bar (2 with margin) + help bar (1)
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.status, m.lastErr, m.width)
	tabBar := renderTabBar(m.activeTab, m.width)
	helpBar := renderHelpBar(m.activeTab, m.spawn != nil, m.width)

	var content string
	switch m.activeTab {
	case TabSurfaces:
		if m.spawn != nil {
			content = m.spawn.form.View()
		} else {
			content = m.surfacesView()
		}
	case TabStatus:
		content = m.statusView()
	}
	content = lipgloss.NewStyle().Height(m.contentHeight()).MaxHeight(m.contentHeight()).Render(content)

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		tabBar,
		content,
		helpBar,
	)
}

func (m model) surfacesView() string {
	height := m.contentHeight()
	leftWidth := m.listWidth()
	rightWidth := m.width - leftWidth - 2
	if rightWidth < 10 {
		rightWidth = 10
	}

	left := lipgloss.NewStyle().
		Width(leftWidth).
		Height(height).
		Render(m.list.View())

	var right string
	if len(m.surfaces) == 0 {
		right = lipgloss.NewStyle().
			Width(rightWidth).
			Height(height).
			Foreground(lipgloss.Color("241")).
			Align(lipgloss.Center, lipgloss.Center).
			Render("no surfaces")
	} else {
		right = m.previewPanel(rightWidth, height)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

func (m model) previewPanel(width, height int) string {
	var b strings.Builder
	var selected protocol.SurfaceID
	if info, ok := m.selected(); ok {
		selected = info.ID
	}

	previewH := height - 3
	if m.status != nil {
		if out, ok := parseOutput(m.status.Output); ok && previewH >= 3 {
			b.WriteString(strings.Join(renderSurfacePreview(m.surfaces, out, selected, width, previewH), "\n"))
			b.WriteString("\n")
		}
	}
	if m.note != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render(m.note))
	}
	return b.String()
}

func (m model) statusView() string {
	if m.status == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.contentHeight()).
			Foreground(lipgloss.Color("241")).
			Align(lipgloss.Center, lipgloss.Center).
			Render("daemon not running")
	}
	st := m.status

	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("248")).Width(18)
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	row := func(label string, value any) string {
		return labelStyle.Render(label) + valueStyle.Render(fmt.Sprint(value))
	}

	rows := []string{
		row("Uptime", st.Uptime),
		row("Output", st.Output),
		row("Clients", st.Clients),
		row("Surfaces", fmt.Sprintf("%d (%d mapped)", st.Surfaces, st.Mapped)),
		row("Keyboard focus", idOrNone(st.KeyboardFocus)),
		row("Pointer focus", idOrNone(st.PointerFocus)),
		row("Cursor", fmt.Sprintf("%s hotspot %d,%d", idOrNone(st.CursorSurface), st.CursorHotspot[0], st.CursorHotspot[1])),
		row("Modifiers", st.Modifiers),
		row("Dragging", st.Dragging),
		row("Render", st.SchedulerState),
		row("Frames", fmt.Sprintf("%d (%d requests, %d uploads)", st.Render.Frames, st.Render.Requests, st.Render.Uploads)),
		row("Last frame", fmt.Sprintf("%d drawn, %d skipped", st.Render.LastDraws, st.Render.LastSkipped)),
		row("Frame callbacks", st.FrameCallbacks),
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(rows, "\n"))
}

func idOrNone(id protocol.SurfaceID) string {
	if id == 0 {
		return "none"
	}
	return fmt.Sprintf("#%d", id)
}
