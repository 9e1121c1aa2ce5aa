// Package tailtui renders one feed column in the terminal: live arrivals at
// the top, a pending banner while scrolled, and reaction toggling on the
// selected note.
package tailtui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tbraaten/notefeed/internal/feed"
)

const (
	refreshInterval = 200 * time.Millisecond
	defaultReaction = "👍"
)

type refreshMsg struct{}

type toggleDoneMsg struct {
	err error
}

// Model is the bubbletea model for the column view.
type Model struct {
	ctrl    *feed.Controller
	variant feed.Variant

	notes   []*feed.Note
	pending int
	state   feed.State

	cursor int
	width  int
	height int

	statusLine string
	quitting   bool
}

// New creates the column view over a connected controller.
func New(ctrl *feed.Controller, variant feed.Variant) *Model {
	return &Model{
		ctrl:    ctrl,
		variant: variant,
	}
}

func (m *Model) Init() tea.Cmd {
	return refreshCmd()
}

func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case refreshMsg:
		m.notes = m.ctrl.Notes()
		m.pending = m.ctrl.PendingCount()
		m.state = m.ctrl.State()
		if m.cursor >= len(m.notes) && len(m.notes) > 0 {
			m.cursor = len(m.notes) - 1
		}
		m.ctrl.SyncCaptures(m.visibleNotes())
		return m, refreshCmd()

	case toggleDoneMsg:
		if msg.err != nil {
			m.statusLine = fmt.Sprintf("reaction failed: %v", msg.err)
		} else {
			m.statusLine = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.ctrl.Disconnect()
		return m, tea.Quit

	case "j", "down":
		if m.cursor < len(m.notes)-1 {
			m.cursor++
		}
		m.ctrl.SetViewportAtTop(m.cursor == 0)
		if m.cursor >= len(m.notes)-5 {
			return m, m.loadMoreCmd()
		}
		return m, nil

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
		m.ctrl.SetViewportAtTop(m.cursor == 0)
		return m, nil

	case "g", "home":
		m.cursor = 0
		m.ctrl.ScrollToTop()
		return m, nil

	case "r":
		if m.cursor < len(m.notes) {
			id := m.notes[m.cursor].ID
			ctrl := m.ctrl
			return m, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return toggleDoneMsg{err: ctrl.ToggleReaction(ctx, id, defaultReaction)}
			}
		}
		return m, nil

	case "R":
		ctrl := m.ctrl
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			ctrl.Resume(ctx)
			return nil
		}
	}
	return m, nil
}

func (m *Model) loadMoreCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = ctrl.LoadMore(ctx)
		return nil
	}
}

// visibleNotes returns the slice of notes the viewport currently shows.
func (m *Model) visibleNotes() []*feed.Note {
	rows := m.listHeight()
	start := m.cursor
	if start > len(m.notes) {
		start = len(m.notes)
	}
	end := start + rows
	if end > len(m.notes) {
		end = len(m.notes)
	}
	return m.notes[start:end]
}

func (m *Model) listHeight() int {
	h := m.height - 3 // header, banner, status
	if h < 1 {
		h = 10
	}
	return h
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(renderHeader(m.variant, m.state, len(m.notes), m.width))
	b.WriteString("\n")

	if m.pending > 0 {
		b.WriteString(renderPendingBanner(m.pending, m.width))
		b.WriteString("\n")
	}

	for i, n := range m.visibleNotes() {
		b.WriteString(renderNote(n, i == 0, m.width))
		b.WriteString("\n")
	}
	if len(m.notes) == 0 {
		b.WriteString(emptyStyle.Render("no notes yet"))
		b.WriteString("\n")
	}

	if m.statusLine != "" {
		b.WriteString(statusErrStyle.Render(m.statusLine))
	} else {
		b.WriteString(helpStyle.Render("j/k move · g top · r react · R resume · q quit"))
	}
	return b.String()
}
