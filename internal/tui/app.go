// Package tui implements the terminal user interface using Bubble Tea.
// It lists the catalog's segments, previews their themes and modules, and
// drives the switch coordinator from the keyboard.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-segment-switch/internal/catalog"
	"github.com/litescript/ls-segment-switch/internal/switcher"
	"github.com/litescript/ls-segment-switch/internal/theme"
	"github.com/litescript/ls-segment-switch/internal/version"
)

// Switcher is the part of *switcher.Coordinator the TUI drives.
type Switcher interface {
	Snapshot() switcher.Snapshot
	ActiveModules() []catalog.ModuleCode
	SwitchSegment(ctx context.Context, target catalog.SegmentID, override *theme.Preference) error
	PromoteLayout(ctx context.Context, item string) error
	Reload(ctx context.Context) error
	Subscribe(buffer int) (<-chan switcher.Event, func())
}

// Options configures NewModel.
type Options struct {
	// Notes delivers coordinator notifications, see ChannelNotifier.
	Notes <-chan Note
	// RequestTimeout bounds each switch, promote and reload request.
	RequestTimeout time.Duration
	CheckUpdate    func(ctx context.Context) version.UpdateInfo
}

type pane int

const (
	paneSegments pane = iota
	paneModules
)

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Switch  key.Binding
	Focus   key.Binding
	Promote key.Binding
	Reload  key.Binding
	Update  key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Switch:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "switch")),
		Focus:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "modules")),
		Promote: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "promote")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Update:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "update")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// Model is the main application state
type Model struct {
	sw          Switcher
	notes       <-chan Note
	events      <-chan switcher.Event
	unsubscribe func()
	timeout     time.Duration
	checkUpdate func(ctx context.Context) version.UpdateInfo

	keys    keyMap
	spinner spinner.Model
	styles  theme.Styles

	segments  []catalog.Definition
	cursor    int
	modCursor int
	focus     pane

	snap     switcher.Snapshot
	inflight int
	phase    switcher.Phase

	status     string
	statusKind switcher.Kind
	update     *version.UpdateInfo

	width  int
	height int
}

// Messages
type switchDoneMsg struct {
	segment catalog.SegmentID
	err     error
}

type promoteDoneMsg struct {
	item string
	err  error
}

type reloadDoneMsg struct {
	err error
}

type updateCheckMsg struct {
	info version.UpdateInfo
}

// NewModel creates the initial model
func NewModel(sw Switcher, opts Options) Model {
	events, unsubscribe := sw.Subscribe(64)
	snap := sw.Snapshot()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	check := opts.CheckUpdate
	if check == nil {
		check = version.CheckForUpdate
	}

	m := Model{
		sw:          sw,
		notes:       opts.Notes,
		events:      events,
		unsubscribe: unsubscribe,
		timeout:     timeout,
		checkUpdate: check,
		keys:        defaultKeyMap(),
		spinner:     sp,
		segments:    catalog.All(),
		snap:        snap,
		phase:       snap.Phase,
	}
	m.applyStyles()
	for i, def := range m.segments {
		if def.ID == snap.ActiveSegment {
			m.cursor = i
		}
	}
	return m
}

// Close cancels the event subscription.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForNote(m.notes),
		waitForEvent(m.events),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		if m.inflight > 0 {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case noteMsg:
		m.status = msg.Message
		m.statusKind = msg.Kind
		return m, waitForNote(m.notes)

	case eventMsg:
		switch msg.Kind {
		case switcher.EventPhase:
			m.phase = msg.Phase
		default:
			m.phase = switcher.PhaseIdle
			m.refresh()
		}
		return m, waitForEvent(m.events)

	case switchDoneMsg:
		m.finish()
		if msg.err != nil {
			m.setError(fmt.Sprintf("Switch to %s failed: %v", msg.segment, msg.err))
		}

	case promoteDoneMsg:
		m.finish()
		if msg.err != nil {
			m.setError(fmt.Sprintf("Promote %s failed: %v", msg.item, msg.err))
		} else {
			m.modCursor = 0
		}

	case reloadDoneMsg:
		m.finish()
		if msg.err != nil {
			m.setError(fmt.Sprintf("Reload failed: %v", msg.err))
		}

	case updateCheckMsg:
		info := msg.info
		m.update = &info
		switch {
		case info.Error != nil:
			m.setError(info.Error.Error())
		case info.UpdateAvailable:
			m.status = fmt.Sprintf("Update available: %s (run %s)", info.LatestVersion, version.InstallCommand())
			m.statusKind = switcher.KindInfo
		default:
			m.status = "Up to date (" + info.CurrentVersion + ")"
			m.statusKind = switcher.KindInfo
		}
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Focus):
		if m.focus == paneSegments {
			m.focus = paneModules
			m.modCursor = 0
		} else {
			m.focus = paneSegments
		}

	case key.Matches(msg, m.keys.Up):
		if m.focus == paneSegments {
			if m.cursor > 0 {
				m.cursor--
				m.modCursor = 0
			}
		} else if m.modCursor > 0 {
			m.modCursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.focus == paneSegments {
			if m.cursor < len(m.segments)-1 {
				m.cursor++
				m.modCursor = 0
			}
		} else if m.modCursor < len(m.visibleModules())-1 {
			m.modCursor++
		}

	case key.Matches(msg, m.keys.Switch):
		target := m.highlighted().ID
		m.status = "Switching to " + m.highlighted().DisplayName + "..."
		m.statusKind = switcher.KindInfo
		return m.start(m.switchTo(target))

	case key.Matches(msg, m.keys.Promote):
		if m.focus != paneModules {
			return m, nil
		}
		if m.highlighted().ID != m.snap.ActiveSegment {
			m.setError("Switch to " + m.highlighted().DisplayName + " before reordering its modules")
			return m, nil
		}
		mods := m.visibleModules()
		if m.modCursor >= len(mods) {
			return m, nil
		}
		return m.start(m.promote(string(mods[m.modCursor])))

	case key.Matches(msg, m.keys.Reload):
		m.status = "Reloading theme overrides..."
		m.statusKind = switcher.KindInfo
		return m.start(m.reload())

	case key.Matches(msg, m.keys.Update):
		m.status = "Checking for updates..."
		m.statusKind = switcher.KindInfo
		return m, m.checkForUpdate()
	}

	return m, nil
}

// start counts a request as in flight and keeps the spinner turning.
func (m Model) start(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.inflight++
	if m.inflight == 1 {
		return m, tea.Batch(m.spinner.Tick, cmd)
	}
	return m, cmd
}

func (m *Model) finish() {
	if m.inflight > 0 {
		m.inflight--
	}
	m.refresh()
}

func (m *Model) setError(text string) {
	m.status = text
	m.statusKind = switcher.KindError
}

func (m *Model) refresh() {
	m.snap = m.sw.Snapshot()
	m.applyStyles()
	if n := len(m.visibleModules()); m.modCursor >= n {
		m.modCursor = max(n-1, 0)
	}
}

func (m *Model) applyStyles() {
	m.styles = theme.NewStyles(m.snap.AppliedTheme)
	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.styles.Palette.Accent))
}

func (m Model) highlighted() catalog.Definition {
	return m.segments[m.cursor]
}

// visibleModules lists the highlighted segment's modules. The active
// segment follows the applied layout priorities; others their defaults.
func (m Model) visibleModules() []catalog.ModuleCode {
	def := m.highlighted()
	if def.ID == m.snap.ActiveSegment {
		return m.sw.ActiveModules()
	}
	return catalog.ArrangeModules(def.Modules, def.DefaultTheme.LayoutPriorities)
}

// previewTheme is the applied theme for the active segment and the
// catalog default for any other.
func (m Model) previewTheme() theme.Preference {
	def := m.highlighted()
	if def.ID == m.snap.ActiveSegment {
		return m.snap.AppliedTheme
	}
	return def.DefaultTheme
}

func (m Model) switchTo(target catalog.SegmentID) tea.Cmd {
	sw, timeout := m.sw, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return switchDoneMsg{segment: target, err: sw.SwitchSegment(ctx, target, nil)}
	}
}

func (m Model) promote(item string) tea.Cmd {
	sw, timeout := m.sw, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return promoteDoneMsg{item: item, err: sw.PromoteLayout(ctx, item)}
	}
}

func (m Model) reload() tea.Cmd {
	sw, timeout := m.sw, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return reloadDoneMsg{err: sw.Reload(ctx)}
	}
}

func (m Model) checkForUpdate() tea.Cmd {
	check := m.checkUpdate
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return updateCheckMsg{info: check(ctx)}
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	panels := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderSegments(),
		" ",
		m.renderModules(),
		" ",
		m.renderThemePreview(),
	)
	b.WriteString(panels)
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())

	return m.styles.App.Render(b.String())
}

func (m Model) renderHeader() string {
	styles := m.styles
	active := string(m.snap.ActiveSegment)
	if def, err := catalog.DefinitionOf(m.snap.ActiveSegment); err == nil {
		active = def.DisplayName
	}

	left := styles.Header.Render("segment-switch") + styles.Muted.Render(" v"+version.Version)
	var conn string
	if m.snap.Connected() {
		conn = styles.Info.Render("● ") + styles.Muted.Render(m.snap.Endpoint)
	} else {
		conn = styles.Muted.Render("○ not connected")
	}
	right := styles.Title.Render(active) + "  " + conn

	gap := m.viewWidth() - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderSegments() string {
	styles := m.styles
	var b strings.Builder
	b.WriteString(styles.PanelTitle.Render("Segments"))
	b.WriteString("\n")

	for i, def := range m.segments {
		marker := "  "
		if def.ID == m.snap.ActiveSegment {
			marker = "● "
		}
		line := PadRight(marker+def.DisplayName, 22)
		switch {
		case i == m.cursor && m.focus == paneSegments:
			line = styles.ItemSelected.Render(line)
		case def.ID == m.snap.ActiveSegment:
			line = styles.ItemActive.Render(line)
		default:
			line = styles.Item.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return m.panel(paneSegments).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderModules() string {
	styles := m.styles
	var b strings.Builder
	b.WriteString(styles.PanelTitle.Render("Modules · " + m.highlighted().DisplayName))
	b.WriteString("\n")

	for i, mod := range m.visibleModules() {
		line := PadRight(fmt.Sprintf("%d. %s", i+1, mod), 22)
		if m.focus == paneModules && i == m.modCursor {
			line = styles.ItemSelected.Render(line)
		} else {
			line = styles.Item.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return m.panel(paneModules).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderThemePreview() string {
	styles := m.styles
	pref := m.previewTheme()

	var b strings.Builder
	b.WriteString(styles.PanelTitle.Render("Theme"))
	b.WriteString("\n")
	b.WriteString(colorLine("primary", pref.PrimaryColor))
	b.WriteString("\n")
	b.WriteString(colorLine("secondary", pref.SecondaryColor))
	b.WriteString("\n")
	b.WriteString(styles.Muted.Render("type   ") + styles.Item.Render(string(pref.Typography)))
	b.WriteString("\n")
	b.WriteString(styles.Muted.Render("icons  ") + styles.Item.Render(string(pref.IconStyle)))
	b.WriteString("\n")
	b.WriteString(styles.Muted.Render("layout ") + styles.Item.Render(TruncateString(strings.Join(pref.LayoutPriorities, " > "), 36)))

	return styles.Panel.Render(b.String())
}

func colorLine(label, hex string) string {
	text := PadRight(label, 10) + hex
	if hsl, err := theme.HexToHSL(hex); err == nil {
		text += "  " + hsl.String()
	}
	return theme.Swatch(hex, text)
}

func (m Model) panel(p pane) lipgloss.Style {
	if m.focus == p {
		return m.styles.PanelFocused
	}
	return m.styles.Panel
}

func (m Model) renderStatusBar() string {
	styles := m.styles

	var left string
	if m.inflight > 0 {
		left = m.spinner.View() + " " + styles.Muted.Render(phaseLabel(m.phase)) + "  "
	}
	if m.status != "" {
		left += kindStyle(styles, m.statusKind).Render(m.status)
	}

	help := "[j/k]Move [enter]Switch [tab]Modules [p]Promote [r]Reload [u]Update [q]Quit"
	if m.focus == paneModules {
		help = "[j/k]Move [p]Promote [tab]Segments [q]Quit"
	}
	right := styles.HelpKey.Render(help)

	gap := m.viewWidth() - lipgloss.Width(right) - 2
	if gap < 0 {
		gap = 0
	}
	return styles.StatusBar.Render(left) + "\n" + strings.Repeat(" ", gap) + right
}

func (m Model) viewWidth() int {
	if m.width <= 0 {
		return 100
	}
	return m.width
}
