package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/litescript/ls-segment-switch/internal/switcher"
)

// Note is a notification queued for the status bar.
type Note struct {
	Kind    switcher.Kind
	Message string
	At      time.Time
}

// ChannelNotifier buffers coordinator notifications until the TUI reads
// them. When the buffer is full new notes are dropped.
type ChannelNotifier struct {
	ch chan Note
}

func NewChannelNotifier(buffer int) *ChannelNotifier {
	if buffer <= 0 {
		buffer = 32
	}
	return &ChannelNotifier{ch: make(chan Note, buffer)}
}

func (n *ChannelNotifier) Notify(kind switcher.Kind, message string) {
	select {
	case n.ch <- Note{Kind: kind, Message: message, At: time.Now()}:
	default:
	}
}

// Notes returns the receive side of the buffer.
func (n *ChannelNotifier) Notes() <-chan Note { return n.ch }

type noteMsg Note

type eventMsg switcher.Event

// waitForNote blocks until the next notification arrives.
func waitForNote(ch <-chan Note) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		note, ok := <-ch
		if !ok {
			return nil
		}
		return noteMsg(note)
	}
}

func waitForEvent(ch <-chan switcher.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}
