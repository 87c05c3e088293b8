package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/infiniscroll/internal/domain"
	"github.com/mmcdole/infiniscroll/internal/feed"
	"github.com/mmcdole/infiniscroll/internal/search"
	"github.com/mmcdole/infiniscroll/internal/tui/styles"
	"github.com/mmcdole/infiniscroll/internal/viewport"
)

// Layout constants for the list
const (
	// Border adds 1 char on each side (left+right for width, top+bottom for height)
	BorderWidth  = 2
	BorderHeight = 2

	// Scroll indicators ("↑ more" and "↓ more") each take 1 line
	ScrollIndicatorLines = 2

	// Rows above the first content row: top border, title, "↑ more"
	ContentTop = 3

	// The sentinel is a single row after the last item
	SentinelHeight = 1

	// Rows scrolled per mouse wheel notch
	WheelStep = 3
)

// ListView is a scrollable list whose last row is the load-more sentinel
type ListView struct {
	items     []domain.Item
	loading   bool
	lastErr   error
	exhausted bool

	// Selection
	cursor     int
	offset     int
	maxVisible int

	// Dimensions
	width  int
	height int

	title   string
	spinner string

	// Filter state
	filterActive bool
	filterInput  textinput.Model
	filterQuery  string
	matches      []search.Match
}

// NewListView creates an empty list
func NewListView(title string) *ListView {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	return &ListView{
		title:       title,
		filterInput: ti,
	}
}

// SetSnapshot replaces the displayed collection and loading state
func (l *ListView) SetSnapshot(snap feed.Snapshot) {
	l.items = snap.Items
	l.loading = snap.Loading
	l.lastErr = snap.LastErr
	l.exhausted = snap.Exhausted
	if l.filterActive && l.filterQuery != "" {
		l.matches = search.Filter(l.items, l.filterQuery)
	}
	l.clampCursor()
}

// Update handles navigation keys and the filter input
func (l *ListView) Update(msg tea.Msg) tea.Cmd {
	// Typing into the filter
	if l.filterActive && l.filterInput.Focused() {
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "esc":
				l.clearFilter()
				return nil
			case "enter":
				// Accept filter, blur input to allow navigation
				l.filterInput.Blur()
				return nil
			case "backspace":
				if l.filterInput.Value() == "" {
					l.clearFilter()
					return nil
				}
			}
		}

		var cmd tea.Cmd
		l.filterInput, cmd = l.filterInput.Update(msg)
		l.applyFilter()
		return cmd
	}

	// Filter active but blurred: navigation over results
	if l.filterActive {
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "esc":
				l.clearFilter()
				return nil
			case "/":
				l.filterInput.Focus()
				return nil
			}
		}
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		l.handleKey(msg.String())
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			l.ScrollBy(-WheelStep)
		case tea.MouseButtonWheelDown:
			l.ScrollBy(WheelStep)
		}
	}
	return nil
}

func (l *ListView) handleKey(key string) {
	count := l.ItemCount()
	switch key {
	case "j", "down":
		if count == 0 {
			return
		}
		if l.cursor < count-1 {
			l.cursor++
		}
		l.ensureVisible()
	case "k", "up":
		if l.cursor > 0 {
			l.cursor--
			l.ensureVisible()
		}
	case "g", "home":
		l.cursor = 0
		l.offset = 0
	case "G", "end":
		if count > 0 {
			l.cursor = count - 1
		}
		l.ensureVisible()
	case "ctrl+d", "pgdown":
		l.cursor += l.maxVisible / 2
		l.clampCursor()
		l.ensureVisible()
	case "ctrl+u", "pgup":
		l.cursor -= l.maxVisible / 2
		l.clampCursor()
		l.ensureVisible()
	}
}

func (l *ListView) View() string {
	style := styles.ActiveBorder
	frameW, frameH := style.GetFrameSize()
	return style.
		Width(l.width - frameW).
		Height(l.height - frameH).
		Render(l.renderContent())
}

func (l *ListView) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.recalcMaxVisible()
	l.ensureVisible()
}

// SetSpinner sets the rendered spinner frame shown while loading
func (l *ListView) SetSpinner(frame string) { l.spinner = frame }

// Cursor returns the selected row
func (l *ListView) Cursor() int { return l.cursor }

// Offset returns the first visible content row
func (l *ListView) Offset() int { return l.offset }

// MaxVisible returns how many content rows fit
func (l *ListView) MaxVisible() int { return l.maxVisible }

// ItemCount returns the number of rows shown, after filtering
func (l *ListView) ItemCount() int {
	if l.matches != nil || (l.filterActive && l.filterQuery != "") {
		return len(l.matches)
	}
	return len(l.items)
}

// SelectedItem returns the item under the cursor
func (l *ListView) SelectedItem() domain.Item {
	if l.cursor >= l.ItemCount() {
		return nil
	}
	return l.items[l.mapIndex(l.cursor)]
}

// SentinelRegion locates the load-more row in content rows.
// The sentinel is withdrawn while a filter is active.
func (l *ListView) SentinelRegion() (viewport.Region, bool) {
	if l.filterActive || l.maxVisible <= 0 {
		return viewport.Region{}, false
	}
	return viewport.Region{Top: len(l.items), Height: SentinelHeight}, true
}

// VisibleRegion is the window of content rows drawn inside the list
func (l *ListView) VisibleRegion() viewport.Region {
	return viewport.Region{Top: l.offset, Height: l.maxVisible}
}

// ScrollBy moves the window by delta rows, dragging the cursor along
func (l *ListView) ScrollBy(delta int) {
	l.offset += delta
	maxOffset := l.contentRows() - l.maxVisible
	if l.offset > maxOffset {
		l.offset = maxOffset
	}
	if l.offset < 0 {
		l.offset = 0
	}

	count := l.ItemCount()
	if count == 0 {
		return
	}
	if l.cursor < l.offset {
		l.cursor = l.offset
	}
	if last := l.offset + l.maxVisible - 1; l.cursor > last {
		l.cursor = last
	}
	l.clampCursor()
}

// ToggleFilter activates the filter input
func (l *ListView) ToggleFilter() {
	l.filterActive = true
	l.filterInput.Focus()
	l.recalcMaxVisible()
}

// IsFiltering returns true if filter mode is active
func (l *ListView) IsFiltering() bool { return l.filterActive }

// IsFilterTyping returns true if filter is active AND input is focused
func (l *ListView) IsFilterTyping() bool {
	return l.filterActive && l.filterInput.Focused()
}

// Internal methods

// contentRows counts drawable rows: items plus the sentinel when it is shown
func (l *ListView) contentRows() int {
	rows := l.ItemCount()
	if !l.filterActive {
		rows += SentinelHeight
	}
	return rows
}

func (l *ListView) recalcMaxVisible() {
	// Interior height minus title line and scroll indicators
	interiorHeight := l.height - BorderHeight
	l.maxVisible = interiorHeight - ScrollIndicatorLines - 1
	if l.filterActive {
		l.maxVisible--
	}
	if l.maxVisible < 1 {
		l.maxVisible = 1
	}
}

func (l *ListView) clampCursor() {
	count := l.ItemCount()
	if l.cursor >= count {
		l.cursor = count - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
}

func (l *ListView) ensureVisible() {
	// Don't adjust offset if size hasn't been set yet
	if l.maxVisible <= 0 {
		return
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}

	// On the last item, bring the sentinel row into view as well
	bottom := l.cursor
	if !l.filterActive && l.cursor >= l.ItemCount()-1 {
		bottom = l.ItemCount() - 1 + SentinelHeight
	}
	if bottom >= l.offset+l.maxVisible {
		l.offset = bottom - l.maxVisible + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

func (l *ListView) clearFilter() {
	l.filterActive = false
	l.filterQuery = ""
	l.matches = nil
	l.filterInput.SetValue("")
	l.filterInput.Blur()
	l.recalcMaxVisible()
	l.clampCursor()
	l.ensureVisible()
}

func (l *ListView) applyFilter() {
	query := l.filterInput.Value()
	l.filterQuery = query
	if query == "" {
		l.matches = nil
		return
	}
	l.matches = search.Filter(l.items, query)
	if l.matches == nil {
		l.matches = []search.Match{}
	}

	// Reset cursor to first match
	l.cursor = 0
	l.offset = 0
}

func (l *ListView) mapIndex(i int) int {
	if l.matches != nil && i < len(l.matches) {
		return l.matches[i].Index
	}
	return i
}

func (l *ListView) matchedIndexes(i int) []int {
	if l.matches != nil && i < len(l.matches) {
		return l.matches[i].MatchedIndexes
	}
	return nil
}

// Rendering

func (l *ListView) renderContent() string {
	itemWidth := l.width - BorderWidth
	if itemWidth < 10 {
		itemWidth = 10
	}

	titleLine := styles.TitleStyle.Render(styles.Truncate(l.title, itemWidth))

	count := l.ItemCount()
	rows := l.contentRows()
	end := l.offset + l.maxVisible
	if end > rows {
		end = rows
	}

	var lines []string
	for i := l.offset; i < end; i++ {
		if i >= count {
			lines = append(lines, l.renderSentinel(itemWidth))
			continue
		}
		idx := l.mapIndex(i)
		lines = append(lines, renderItem(l.items[idx], l.matchedIndexes(i), i == l.cursor, itemWidth))
	}

	if count == 0 && l.filterActive && l.filterQuery != "" {
		lines = append(lines, styles.DimStyle.Render("No matches"))
	}

	// Always reserve the indicator rows to prevent layout shifts
	header := " "
	if l.offset > 0 {
		header = styles.DimStyle.Render("↑ more")
	}
	footer := " "
	if end < rows {
		footer = styles.DimStyle.Render("↓ more")
	}

	content := titleLine + "\n" + header + "\n" + strings.Join(lines, "\n") + "\n" + footer
	if l.filterActive {
		content += "\n" + l.renderFilterBar()
	}
	return content
}

// renderSentinel draws the load-more row for the current loading state
func (l *ListView) renderSentinel(width int) string {
	var text string
	switch {
	case l.loading:
		text = l.spinner + " Loading..."
		return styles.AccentStyle.Render(styles.Truncate(text, width))
	case l.lastErr != nil:
		text = fmt.Sprintf("✗ Load failed: %v (r to retry)", l.lastErr)
		return styles.ErrorStyle.Render(styles.Truncate(text, width))
	case l.exhausted:
		text = fmt.Sprintf("End of list (%d items)", len(l.items))
	default:
		text = "Scroll down to load more"
	}
	return styles.DimStyle.Render(styles.Truncate(text, width))
}

func renderItem(item domain.Item, matched []int, selected bool, width int) string {
	accent := styles.Accent

	switch it := item.(type) {
	case domain.Photo:
		id := fmt.Sprintf("#%-5d", it.ID)
		available := width - 4 - len(id)
		if available < 5 {
			available = 5
		}
		parts := []styles.RowPart{{Text: id, Foreground: &accent, Bold: true}, {Text: " "}}
		parts = append(parts, highlight(styles.Truncate(it.Title, available), matched)...)
		return styles.RenderListRow(parts, selected, width)

	default:
		label := styles.Truncate(item.Label(), width-4)
		return styles.RenderListRow(highlight(label, matched), selected, width)
	}
}

// highlight splits text into runs, coloring bytes listed in matched
func highlight(text string, matched []int) []styles.RowPart {
	if len(matched) == 0 {
		return []styles.RowPart{{Text: text}}
	}

	set := make(map[int]bool, len(matched))
	for _, i := range matched {
		set[i] = true
	}

	matchFg, _ := styles.MatchHighlightStyle.GetForeground().(lipgloss.Color)
	matchBold := styles.MatchHighlightStyle.GetBold()

	var parts []styles.RowPart
	var run strings.Builder
	runMatched := false

	flush := func() {
		if run.Len() == 0 {
			return
		}
		part := styles.RowPart{Text: run.String()}
		if runMatched {
			part.Foreground = &matchFg
			part.Bold = matchBold
		}
		parts = append(parts, part)
		run.Reset()
	}

	for i, r := range text {
		if set[i] != runMatched {
			flush()
			runMatched = set[i]
		}
		run.WriteRune(r)
	}
	flush()
	return parts
}

func (l *ListView) renderFilterBar() string {
	input := l.filterInput.View()
	countStr := ""
	if l.filterQuery != "" {
		countStr = styles.DimStyle.Render(fmt.Sprintf(" [%d/%d]", l.ItemCount(), len(l.items)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, input, countStr)
}
