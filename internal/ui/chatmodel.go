package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxScrollback bounds the lines kept in the chat pane
const maxScrollback = 1000

// ReceivedMsg carries one broadcast chat line into the model
type ReceivedMsg string

// StatusMsg adds a status line to the chat pane
type StatusMsg string

// ClosedMsg reports that the connection ended. Err is nil when the server
// closed it cleanly.
type ClosedMsg struct {
	Err error
}

// sentMsg is the result of a send started by the input box
type sentMsg struct {
	err error
}

// SendFunc delivers one typed line to the server
type SendFunc func(line string) error

// chatKeyMap defines key bindings for the chat screen
type chatKeyMap struct {
	Send   key.Binding
	Scroll key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k chatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Scroll, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k chatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Send, k.Scroll, k.Quit}}
}

// ChatModel is the interactive chat screen: a scrolling message pane over a
// single-line input box.
type ChatModel struct {
	Server string
	Self   string

	Pane  viewport.Model
	Input textinput.Model
	Help  help.Model
	Keys  chatKeyMap

	Width  int
	Height int

	lines  []string
	send   SendFunc
	closed bool
	err    error
}

// NewChatModel creates the chat screen for server. self is this client's
// display name and send is called once per submitted line.
func NewChatModel(server, self string, send SendFunc) ChatModel {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Type a message and press Enter"
	input.CharLimit = 125
	input.Focus()

	keys := chatKeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Scroll: key.NewBinding(
			key.WithKeys("pgup", "pgdown"),
			key.WithHelp("pgup/pgdn", "scroll"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
	}

	m := ChatModel{
		Server: server,
		Self:   self,
		Pane:   viewport.New(MinTerminalWidth, 10),
		Input:  input,
		Help:   help.New(),
		Keys:   keys,
		send:   send,
	}
	m.resize(MinTerminalWidth, 14)
	return m
}

// Init implements tea.Model
func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case ReceivedMsg:
		m.appendLine(renderMessage(string(msg), m.Self, true))
		return m, nil

	case StatusMsg:
		m.appendLine(renderStatus(string(msg), true))
		return m, nil

	case sentMsg:
		if msg.err != nil {
			m.appendLine(renderError(msg.err, true))
		}
		return m, nil

	case ClosedMsg:
		m.closed = true
		m.err = msg.Err
		return m, tea.Quit

	case tea.MouseMsg:
		m.Pane, cmd = m.Pane.Update(msg)
		return m, cmd
	}

	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

func (m ChatModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Send):
		line := m.Input.Value()
		m.Input.Reset()
		if strings.TrimSpace(line) == "" {
			return m, nil
		}
		return m, m.sendCmd(line)

	case key.Matches(msg, m.Keys.Scroll):
		m.Pane, cmd = m.Pane.Update(msg)
		return m, cmd
	}

	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// sendCmd runs the send outside Update so a slow write does not stall input
func (m ChatModel) sendCmd(line string) tea.Cmd {
	send := m.send
	return func() tea.Msg {
		if send == nil {
			return nil
		}
		return sentMsg{err: send(line)}
	}
}

// View implements tea.Model
func (m ChatModel) View() string {
	title := HeaderTitleStyle.Render("wschat") +
		HeaderCommandStyle.Render(m.Server+"  as "+m.Self)
	divider := RenderHorizontalDivider(m.Width, "─")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.Pane.View(),
		divider,
		m.Input.View(),
		HelpStyle.Render(m.Help.View(m.Keys)),
	)
}

// Lines returns the chat pane contents, oldest first
func (m ChatModel) Lines() []string {
	return m.lines
}

// Closed reports whether the connection ended while the screen was open
func (m ChatModel) Closed() bool {
	return m.closed
}

// Err returns the error that ended the connection, if any
func (m ChatModel) Err() error {
	return m.err
}

// chromeHeight is the rows used by the title, divider, input and help lines
const chromeHeight = 4

func (m *ChatModel) resize(width, height int) {
	m.Width = width
	m.Height = height
	m.Pane.Width = width
	m.Pane.Height = max(height-chromeHeight, 1)
	m.Input.Width = max(width-len(m.Input.Prompt)-1, 1)
	m.Help.Width = width
}

func (m *ChatModel) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxScrollback {
		m.lines = m.lines[len(m.lines)-maxScrollback:]
	}
	m.Pane.SetContent(strings.Join(m.lines, "\n"))
	m.Pane.GotoBottom()
}
