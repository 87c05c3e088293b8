package tui

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/infiniscroll/internal/adapter"
	"github.com/mmcdole/infiniscroll/internal/feed"
	"github.com/mmcdole/infiniscroll/internal/tui/components"
	"github.com/mmcdole/infiniscroll/internal/tui/styles"
	"github.com/mmcdole/infiniscroll/internal/viewport"
)

// ChromeHeight is the status line below the list
const ChromeHeight = 1

// Options configure the model
type Options struct {
	Title     string
	Root      string // adapter.RootViewport (default) or adapter.RootList
	Margin    int
	Threshold float64
	Logger    *slog.Logger
}

// loader turns watcher callbacks into batch requests.
// It lives behind a pointer so the watcher callback outlives Model copies.
type loader struct {
	ctrl    *feed.Controller
	logger  *slog.Logger
	pending []feed.Request
}

func (l *loader) onVisible(e viewport.Entry) {
	l.logger.Debug("sentinel visible", "row", e.Target.Top, "ratio", e.Ratio)
	if req, ok := l.ctrl.OnSentinelVisible(); ok {
		l.pending = append(l.pending, req)
	}
}

func (l *loader) drain() tea.Cmd {
	if len(l.pending) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, len(l.pending))
	for i, req := range l.pending {
		cmds[i] = FetchBatchCmd(req)
	}
	l.pending = nil
	if len(cmds) == 1 {
		return cmds[0]
	}
	return tea.Batch(cmds...)
}

// Model is the main Bubble Tea model for the application
type Model struct {
	Ready    bool
	ShowHelp bool

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg   string
	StatusIsErr bool

	Controller *feed.Controller
	Watcher    *viewport.Watcher
	List       *components.ListView
	Spinner    spinner.Model
	Help       help.Model
	Keys       KeyMap

	loader *loader
	logger *slog.Logger
}

// NewModel creates the list model and starts observing its sentinel
func NewModel(ctrl *feed.Controller, opts Options) (Model, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	title := opts.Title
	if title == "" {
		title = "Items"
	}

	list := components.NewListView(title)
	ld := &loader{ctrl: ctrl, logger: logger}

	watchOpts := viewport.Options{
		Margin:    opts.Margin,
		Threshold: opts.Threshold,
	}
	switch opts.Root {
	case adapter.RootList:
		watchOpts.Root = list.VisibleRegion
	case adapter.RootViewport, "":
	default:
		return Model{}, fmt.Errorf("unknown watcher root: %q", opts.Root)
	}

	watcher, err := viewport.New(watchOpts, ld.onVisible)
	if err != nil {
		return Model{}, err
	}
	watcher.Observe(list.SentinelRegion)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	h := help.New()
	h.Styles.ShortKey = styles.HelpKeyStyle
	h.Styles.ShortDesc = styles.HelpDescStyle
	h.Styles.FullKey = styles.HelpKeyStyle
	h.Styles.FullDesc = styles.HelpDescStyle

	m := Model{
		Controller: ctrl,
		Watcher:    watcher,
		List:       list,
		Spinner:    sp,
		Help:       h,
		Keys:       DefaultKeyMap(),
		loader:     ld,
		logger:     logger,
	}
	m.syncList()
	return m, nil
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return m.Spinner.Tick
}

// Close releases the sentinel and cancels any in-flight fetch. Safe to call more than once.
func (m Model) Close() {
	if m.Watcher.Observing() {
		m.logger.Debug("releasing sentinel")
		m.Watcher.Unobserve()
	}
	m.Controller.Close()
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.Help.Width = msg.Width
		m.List.SetSize(msg.Width, msg.Height-ChromeHeight)
		m.logger.Debug("resized", "width", msg.Width, "height", msg.Height, "rows", m.List.MaxVisible())
		return m, m.checkSentinel()

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		m.List.Update(msg)
		return m, m.checkSentinel()

	case BatchSettledMsg:
		return m.handleBatch(msg.Result)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		m.List.SetSpinner(m.Spinner.View())
		return m, cmd

	case StatusMsg:
		m.StatusMsg = msg.Message
		m.StatusIsErr = msg.IsError
		return m, ClearStatusCmd(3 * time.Second)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}

	return m, nil
}

func (m Model) handleBatch(res feed.Result) (tea.Model, tea.Cmd) {
	if !m.Controller.Settle(res) {
		return m, nil
	}

	var cmds []tea.Cmd
	if res.Err != nil {
		err := ErrMsg{Err: res.Err, Context: "loading items"}
		m.StatusMsg = err.Error()
		m.StatusIsErr = true
		cmds = append(cmds, ClearStatusCmd(5*time.Second))
	}

	// The sentinel moved (or stayed put on an empty batch)
	if cmd := m.checkSentinel(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ShowHelp {
		switch msg.String() {
		case "esc", "?", "q":
			m.ShowHelp = false
		}
		return m, nil
	}

	// The filter input owns every key while typing
	if m.List.IsFilterTyping() {
		cmd := m.List.Update(msg)
		return m, tea.Batch(cmd, m.checkSentinel())
	}

	switch {
	case key.Matches(msg, m.Keys.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Help):
		m.ShowHelp = true
		return m, nil

	case key.Matches(msg, m.Keys.Filter) && !m.List.IsFiltering():
		m.List.ToggleFilter()
		return m, m.checkSentinel()

	case key.Matches(msg, m.Keys.Retry) && !m.List.IsFiltering():
		m.Watcher.Rearm()
		cmd := m.checkSentinel()
		if cmd == nil {
			return m, func() tea.Msg {
				return StatusMsg{Message: "Scroll to the end of the list to load more"}
			}
		}
		return m, cmd
	}

	cmd := m.List.Update(msg)
	return m, tea.Batch(cmd, m.checkSentinel())
}

// checkSentinel re-evaluates sentinel visibility and returns the fetch to start, if any
func (m Model) checkSentinel() tea.Cmd {
	m.syncList()
	if !m.Ready {
		return nil
	}

	m.Watcher.SetViewport(m.viewportRegion())
	m.Watcher.Check()

	cmd := m.loader.drain()
	if cmd != nil {
		// Show the loading row right away
		m.syncList()
	}
	return cmd
}

// viewportRegion is the set of content rows actually drawn on the terminal:
// the list window, clipped to the terminal rows it lands on.
func (m Model) viewportRegion() viewport.Region {
	terminal := viewport.Region{
		Top:    m.List.Offset() - components.ContentTop,
		Height: m.Height,
	}
	return terminal.Intersect(m.List.VisibleRegion())
}

func (m Model) syncList() {
	m.List.SetSnapshot(m.Controller.Snapshot())
	m.List.SetSpinner(m.Spinner.View())
}

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Initializing..."
	}

	if m.ShowHelp {
		body := lipgloss.Place(m.Width, m.Height-ChromeHeight, lipgloss.Center, lipgloss.Center,
			m.Help.FullHelpView(m.Keys.FullHelp()))
		return body + "\n" + m.renderStatusBar()
	}

	return m.List.View() + "\n" + m.renderStatusBar()
}

func (m Model) renderStatusBar() string {
	var left string
	switch {
	case m.StatusMsg != "" && m.StatusIsErr:
		left = styles.ErrorStyle.Render(m.StatusMsg)
	case m.StatusMsg != "":
		left = styles.SuccessStyle.Render(m.StatusMsg)
	default:
		snap := m.Controller.Snapshot()
		state := m.Controller.State().String()
		pos := "-"
		if sel := m.List.SelectedItem(); sel != nil {
			pos = fmt.Sprintf("%d/%d #%s", m.List.Cursor()+1, m.List.ItemCount(), sel.Key())
		}
		left = styles.DimStyle.Render(fmt.Sprintf("%s · %d items · %d fetches of %d · %s",
			pos, len(snap.Items), snap.Batches, m.Controller.BatchSize(), state))
	}

	right := m.Help.ShortHelpView(m.Keys.ShortHelp())
	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return lipgloss.NewStyle().MaxWidth(m.Width).Render(left)
	}
	return left + lipgloss.NewStyle().Width(gap).Render("") + right
}
