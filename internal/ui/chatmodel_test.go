package ui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func typeText(t *testing.T, m ChatModel, s string) ChatModel {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(ChatModel)
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestChatModel_Update(t *testing.T) {
	tests := []struct {
		name     string
		msgs     []tea.Msg
		wantLine string
		wantQuit bool
	}{
		{
			name:     "received message is shown",
			msgs:     []tea.Msg{ReceivedMsg("[14:30]bob: hello")},
			wantLine: "bob",
		},
		{
			name:     "status line is shown",
			msgs:     []tea.Msg{StatusMsg("connected to ws://localhost:8080/")},
			wantLine: "connected to ws://localhost:8080/",
		},
		{
			name:     "send failure is shown inline",
			msgs:     []tea.Msg{sentMsg{err: errors.New("message too long")}},
			wantLine: "message too long",
		},
		{
			name:     "escape quits",
			msgs:     []tea.Msg{tea.KeyMsg{Type: tea.KeyEsc}},
			wantQuit: true,
		},
		{
			name:     "ctrl+c quits",
			msgs:     []tea.Msg{tea.KeyMsg{Type: tea.KeyCtrlC}},
			wantQuit: true,
		},
		{
			name:     "closed connection quits",
			msgs:     []tea.Msg{ClosedMsg{}},
			wantQuit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m tea.Model = NewChatModel("ws://localhost:8080/", "alice", nil)
			var cmd tea.Cmd
			for _, msg := range tt.msgs {
				m, cmd = m.Update(msg)
			}
			cm := m.(ChatModel)

			if tt.wantLine != "" {
				lines := cm.Lines()
				if len(lines) != 1 || !strings.Contains(lines[0], tt.wantLine) {
					t.Errorf("lines = %q, want one containing %q", lines, tt.wantLine)
				}
			}
			if got := isQuit(cmd); got != tt.wantQuit {
				t.Errorf("quit = %v, want %v", got, tt.wantQuit)
			}
		})
	}
}

func TestChatModel_EnterSendsLine(t *testing.T) {
	var sent []string
	send := func(line string) error {
		sent = append(sent, line)
		return nil
	}

	m := typeText(t, NewChatModel("ws://localhost:8080/", "alice", send), "hi there")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(ChatModel)

	if cmd == nil {
		t.Fatal("enter should return a send command")
	}
	if m.Input.Value() != "" {
		t.Errorf("input = %q, want it cleared after enter", m.Input.Value())
	}

	msg := cmd()
	if len(sent) != 1 || sent[0] != "hi there" {
		t.Fatalf("sent = %q, want [\"hi there\"]", sent)
	}
	if res, ok := msg.(sentMsg); !ok || res.err != nil {
		t.Errorf("send command result = %#v, want sentMsg without error", msg)
	}

	// The line only appears once the server broadcasts it back.
	if len(m.Lines()) != 0 {
		t.Errorf("lines = %q, want none before the broadcast", m.Lines())
	}
}

func TestChatModel_EnterIgnoresBlankInput(t *testing.T) {
	called := false
	m := typeText(t, NewChatModel("ws://localhost:8080/", "alice", func(string) error {
		called = true
		return nil
	}), "   ")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		cmd()
	}
	if called {
		t.Error("blank input should not be sent")
	}
}

func TestChatModel_ClosedKeepsError(t *testing.T) {
	lost := errors.New("connection reset")
	next, _ := NewChatModel("ws://localhost:8080/", "alice", nil).Update(ClosedMsg{Err: lost})
	m := next.(ChatModel)

	if !m.Closed() {
		t.Error("Closed() = false after ClosedMsg")
	}
	if !errors.Is(m.Err(), lost) {
		t.Errorf("Err() = %v, want %v", m.Err(), lost)
	}
}

func TestChatModel_WindowSize(t *testing.T) {
	next, _ := NewChatModel("ws://localhost:8080/", "alice", nil).Update(tea.WindowSizeMsg{Width: 90, Height: 30})
	m := next.(ChatModel)

	if m.Pane.Width != 90 || m.Pane.Height != 30-chromeHeight {
		t.Errorf("pane = %dx%d, want %dx%d", m.Pane.Width, m.Pane.Height, 90, 30-chromeHeight)
	}
	if !strings.Contains(m.View(), "alice") {
		t.Error("view should name the local user")
	}
}

func TestChatModel_ScrollbackIsBounded(t *testing.T) {
	var m tea.Model = NewChatModel("ws://localhost:8080/", "alice", nil)
	for i := 0; i < maxScrollback+10; i++ {
		m, _ = m.Update(ReceivedMsg(fmt.Sprintf("line %d", i)))
	}

	lines := m.(ChatModel).Lines()
	if len(lines) != maxScrollback {
		t.Fatalf("len(lines) = %d, want %d", len(lines), maxScrollback)
	}
	if !strings.Contains(lines[len(lines)-1], fmt.Sprintf("line %d", maxScrollback+9)) {
		t.Errorf("last line = %q, want the newest message", lines[len(lines)-1])
	}
}

func TestWaitModel_Update(t *testing.T) {
	work := func() (any, error) { return nil, nil }

	t.Run("done", func(t *testing.T) {
		next, cmd := NewWaitModel("Scanning", work).Update(waitDoneMsg{value: 3})
		m := next.(WaitModel)

		if !isQuit(cmd) {
			t.Error("finished work should quit")
		}
		v, err := m.Result()
		if err != nil || v != 3 {
			t.Errorf("Result() = %v, %v, want 3, nil", v, err)
		}
		if m.View() != "" {
			t.Errorf("View() = %q, want empty once done", m.View())
		}
	})

	t.Run("failed", func(t *testing.T) {
		boom := errors.New("no route to host")
		next, _ := NewWaitModel("Scanning", work).Update(waitDoneMsg{err: boom})

		if _, err := next.(WaitModel).Result(); !errors.Is(err, boom) {
			t.Errorf("Result() error = %v, want %v", err, boom)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		m := NewWaitModel("Scanning", work)
		if !strings.Contains(m.View(), "Scanning") {
			t.Errorf("View() = %q, want the label while waiting", m.View())
		}

		next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		if !isQuit(cmd) {
			t.Error("ctrl+c should quit")
		}
		if _, err := next.(WaitModel).Result(); !errors.Is(err, ErrCancelled) {
			t.Errorf("Result() error = %v, want ErrCancelled", err)
		}
	})
}
