package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/infiniscroll/internal/adapter"
	"github.com/mmcdole/infiniscroll/internal/domain"
	"github.com/mmcdole/infiniscroll/internal/feed"
	"github.com/mmcdole/infiniscroll/internal/source/synthetic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// photoSource serves size photos and can be switched into failure mode
type photoSource struct {
	mu    sync.Mutex
	size  int
	err   error
	calls int
}

func (s *photoSource) FetchBatch(ctx context.Context, offset, count int) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	items := []domain.Item{}
	for i := offset; i < offset+count && i < s.size; i++ {
		items = append(items, domain.Photo{ID: i + 1, Title: "photo"})
	}
	return items, nil
}

func (s *photoSource) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *photoSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func keyMsg(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func newTestModel(t *testing.T, ctrl *feed.Controller, opts Options) Model {
	t.Helper()
	if opts.Threshold == 0 {
		opts.Threshold = 0.5
	}
	m, err := NewModel(ctrl, opts)
	require.NoError(t, err)
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

// settle runs cmd and feeds any BatchSettledMsg back into the model
func settle(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd, "expected a fetch command")

	var next tea.Cmd
	for _, msg := range collect(cmd) {
		if bm, ok := msg.(BatchSettledMsg); ok {
			m, next = update(t, m, bm)
		}
	}
	return m, next
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func hasFetch(cmd tea.Cmd) bool {
	for _, msg := range collect(cmd) {
		if _, ok := msg.(BatchSettledMsg); ok {
			return true
		}
	}
	return false
}

func TestModel_LoadsAsSentinelScrollsIntoView(t *testing.T) {
	src := &photoSource{size: 120}
	ctrl := feed.NewController(src, 50)
	m := newTestModel(t, ctrl, Options{})

	// Empty list: the sentinel is on screen as soon as the size is known
	m, cmd := update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	assert.True(t, ctrl.Snapshot().Loading)
	m, cmd = settle(t, m, cmd)
	assert.Equal(t, 50, ctrl.Len())
	assert.False(t, ctrl.Snapshot().Loading)
	assert.Nil(t, cmd, "sentinel pushed off screen")

	// Moving down one row keeps the sentinel hidden
	m, cmd = update(t, m, keyMsg("j"))
	assert.False(t, hasFetch(cmd))

	for _, want := range []int{100, 120, 120} {
		m, cmd = update(t, m, keyMsg("G"))
		m, _ = settle(t, m, cmd)
		assert.Equal(t, want, ctrl.Len())
	}

	// The sentinel never left the screen after the empty batch
	m, cmd = update(t, m, keyMsg("G"))
	assert.False(t, hasFetch(cmd))
	assert.True(t, ctrl.Snapshot().Exhausted)
	assert.Contains(t, m.View(), "End of list")
	assert.Equal(t, 4, src.callCount())
}

func TestModel_SentinelBelowLastDrawnRowDoesNotLoad(t *testing.T) {
	seed := make([]domain.Item, 26)
	for i := range seed {
		seed[i] = domain.Photo{ID: i + 1, Title: "photo"}
	}
	src := &photoSource{size: 500}
	ctrl := feed.NewController(src, 50, feed.WithInitialItems(seed))
	m := newTestModel(t, ctrl, Options{})

	// 24 rows are drawn (0..23); the sentinel sits at row 26
	m, cmd := update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	require.Equal(t, 24, m.List.MaxVisible())
	assert.Nil(t, cmd)
	assert.False(t, ctrl.Snapshot().Loading)
	assert.NotContains(t, m.View(), "Scroll down to load more")

	// Two rows short of the sentinel
	for i := 0; i < 24; i++ {
		m, cmd = update(t, m, keyMsg("j"))
	}
	require.Equal(t, 24, m.List.Cursor())
	assert.Nil(t, cmd)
	assert.Equal(t, 0, src.callCount())

	// The last item pulls the sentinel into the drawn window
	m, cmd = update(t, m, keyMsg("j"))
	assert.Contains(t, m.View(), "Loading...")
	m, _ = settle(t, m, cmd)
	assert.Equal(t, 76, ctrl.Len())
}

func TestModel_IgnoresTriggersWhileLoading(t *testing.T) {
	src := &photoSource{size: 500}
	ctrl := feed.NewController(src, 50)
	m := newTestModel(t, ctrl, Options{})

	m, first := update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	require.NotNil(t, first)
	m, _ = settle(t, m, first)

	m, pending := update(t, m, keyMsg("G"))
	require.NotNil(t, pending)
	assert.Contains(t, m.View(), "Loading...")

	// Scroll away and back while the batch is outstanding
	for i := 0; i < 30; i++ {
		var cmd tea.Cmd
		m, cmd = update(t, m, keyMsg("k"))
		assert.Nil(t, cmd)
	}
	m, cmd := update(t, m, keyMsg("G"))
	assert.Nil(t, cmd, "guard must drop the second trigger")

	m, _ = settle(t, m, pending)
	assert.Equal(t, 100, ctrl.Len())
	assert.Equal(t, 2, src.callCount())
}

func TestModel_FailureSurfacesAndRetries(t *testing.T) {
	src := &photoSource{size: 120}
	src.setErr(errors.New("connection refused"))
	ctrl := feed.NewController(src, 50)
	m := newTestModel(t, ctrl, Options{})

	m, cmd := update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	m, _ = settle(t, m, cmd)
	assert.Equal(t, 1, src.callCount(), "failure must not refire by itself")

	assert.True(t, m.StatusIsErr)
	assert.Contains(t, m.StatusMsg, "connection refused")
	assert.Equal(t, 0, ctrl.Len())
	assert.False(t, ctrl.Snapshot().Loading)
	assert.Contains(t, m.View(), "Load failed")

	src.setErr(nil)
	m, cmd = update(t, m, keyMsg("r"))
	m, _ = settle(t, m, cmd)
	assert.Equal(t, 50, ctrl.Len())
	assert.Equal(t, 2, src.callCount())
}

func TestModel_RetryWithoutVisibleSentinel(t *testing.T) {
	src := &photoSource{size: 500}
	ctrl := feed.NewController(src, 50)
	m := newTestModel(t, ctrl, Options{})

	m, cmd := update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	m, _ = settle(t, m, cmd)

	_, cmd = update(t, m, keyMsg("r"))
	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	assert.IsType(t, StatusMsg{}, msgs[0])
	assert.Equal(t, 1, src.callCount())
}

func TestModel_SyntheticSeed(t *testing.T) {
	gen := synthetic.NewGenerator(0, 0)
	ctrl := feed.NewController(gen, 25, feed.WithInitialItems(gen.Seed(25)))
	m := newTestModel(t, ctrl, Options{})

	// 25 seeded rows fill a tall terminal, so the sentinel shows immediately
	m, cmd := update(t, m, tea.WindowSizeMsg{Width: 80, Height: 40})
	m, _ = settle(t, m, cmd)

	snap := ctrl.Snapshot()
	require.Len(t, snap.Items, 50)
	for i, it := range snap.Items {
		assert.Equal(t, domain.Number{Value: i + 1}, it)
	}
}

func TestModel_StatusBar(t *testing.T) {
	gen := synthetic.NewGenerator(0, 0)
	ctrl := feed.NewController(gen, 25, feed.WithInitialItems(gen.Seed(25)))
	m := newTestModel(t, ctrl, Options{})

	m, cmd := update(t, m, tea.WindowSizeMsg{Width: 200, Height: 40})
	m, _ = settle(t, m, cmd)
	m, _ = update(t, m, keyMsg("j"))
	m, _ = update(t, m, keyMsg("j"))

	assert.Contains(t, m.View(), "3/50 #3 · 50 items · 1 fetches of 25 · idle")
}

func TestModel_ListRoot(t *testing.T) {
	src := &photoSource{size: 500}
	ctrl := feed.NewController(src, 10)
	m := newTestModel(t, ctrl, Options{Root: adapter.RootList})

	// 10 items + sentinel fit in a 24-row list
	m, cmd := update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	m, cmd = settle(t, m, cmd)
	assert.Equal(t, 10, ctrl.Len())
	assert.Nil(t, cmd, "sentinel never left the list, so there is no new entry")

	// Retry re-arms the watcher and counts as a fresh entry
	m, cmd = update(t, m, keyMsg("r"))
	m, _ = settle(t, m, cmd)
	assert.Equal(t, 20, ctrl.Len())
}

func TestModel_FilterWithdrawsSentinel(t *testing.T) {
	src := &photoSource{size: 500}
	ctrl := feed.NewController(src, 50)
	m := newTestModel(t, ctrl, Options{})

	m, cmd := update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	m, _ = settle(t, m, cmd)

	m, _ = update(t, m, keyMsg("/"))
	require.True(t, m.List.IsFilterTyping())

	// "q" is typed into the filter, not a quit
	m, _ = update(t, m, keyMsg("q"))
	assert.True(t, m.List.IsFiltering())
	assert.True(t, m.Watcher.Observing())
	assert.False(t, ctrl.Snapshot().Loading)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.List.IsFiltering())
	assert.False(t, ctrl.Snapshot().Loading)
	assert.Equal(t, 1, src.callCount())
}

func TestModel_QuitReleasesSentinel(t *testing.T) {
	src := &photoSource{size: 500}
	ctrl := feed.NewController(src, 50)
	m := newTestModel(t, ctrl, Options{})

	m, pending := update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	require.NotNil(t, pending)

	m, cmd := update(t, m, keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.False(t, m.Watcher.Observing())

	// The stale result from before teardown is dropped
	m, _ = settle(t, m, pending)
	assert.Equal(t, 0, ctrl.Len())

	m.Close()
}

func TestModel_HelpOverlay(t *testing.T) {
	ctrl := feed.NewController(&photoSource{size: 10}, 50)
	m := newTestModel(t, ctrl, Options{})
	assert.Equal(t, "Initializing...", m.View())

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = update(t, m, keyMsg("?"))
	assert.True(t, m.ShowHelp)
	assert.True(t, strings.Contains(m.View(), "half page down"))

	m, _ = update(t, m, keyMsg("?"))
	assert.False(t, m.ShowHelp)
}

func TestNewModel_BadRoot(t *testing.T) {
	_, err := NewModel(feed.NewController(&photoSource{}, 50), Options{Root: "window", Threshold: 0.5})
	assert.Error(t, err)
}
