package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/infiniscroll/internal/feed"
)

// Command factories for async operations

// FetchBatchCmd runs a batch request off the update loop
func FetchBatchCmd(req feed.Request) tea.Cmd {
	return func() tea.Msg {
		return BatchSettledMsg{Result: req.Run()}
	}
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
