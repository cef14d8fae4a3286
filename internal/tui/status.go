package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/blackwell-systems/bookdesk/internal/shell"
)

// NoticeMsg delivers a shell notice to the running program.
type NoticeMsg shell.Notice

// StatusBar is a shell.Notifier that feeds notices to whichever program is
// currently listening. Notices that arrive while nothing listens are kept
// until the buffer is full, then dropped.
type StatusBar struct {
	ch chan shell.Notice

	mu   sync.Mutex
	last statusLine
}

// NewStatusBar returns a status bar with a small notice buffer.
func NewStatusBar() *StatusBar {
	return &StatusBar{ch: make(chan shell.Notice, 16)}
}

// Notify queues a notice without blocking.
func (s *StatusBar) Notify(n shell.Notice) {
	s.mu.Lock()
	s.last = statusLine{notice: n, at: time.Now()}
	s.mu.Unlock()
	select {
	case s.ch <- n:
	default:
	}
}

// Last returns the most recent notice, for a view that starts after it was
// sent.
func (s *StatusBar) Last() (shell.Notice, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.notice, s.last.at
}

func (s *StatusBar) recent() statusLine {
	if s == nil {
		return statusLine{}
	}
	n, at := s.Last()
	if time.Since(at) > 10*time.Second {
		return statusLine{}
	}
	return statusLine{notice: n, at: at}
}

// listen waits for the next notice. It returns nil once done is closed so a
// finished program does not swallow notices meant for the next one.
func (s *StatusBar) listen(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case n := <-s.ch:
			return NoticeMsg(n)
		case <-done:
			return nil
		}
	}
}

// statusLine is the last notice shown at the bottom of a view.
type statusLine struct {
	notice shell.Notice
	at     time.Time
}

func (l statusLine) View() string {
	if l.notice.Message == "" {
		return ""
	}
	switch l.notice.Level {
	case shell.Success:
		return StyleSuccess.Render("✓ " + l.notice.Message)
	case shell.Failure:
		return StyleError.Render("✗ " + l.notice.Message)
	}
	return StyleHelp.Render(l.notice.Message)
}
