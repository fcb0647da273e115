package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ChatLine is a received line split into its parts, "[15:04]name: text"
type ChatLine struct {
	Time string
	Name string
	Text string
}

// ParseChatLine splits a line formatted by the chat client. ok is false for
// anything else, which is then printed as is.
func ParseChatLine(s string) (line ChatLine, ok bool) {
	if !strings.HasPrefix(s, "[") {
		return ChatLine{}, false
	}
	stamp, rest, found := strings.Cut(s[1:], "]")
	if !found || len(stamp) == 0 || len(stamp) > 5 || !strings.Contains(stamp, ":") {
		return ChatLine{}, false
	}
	name, text, found := strings.Cut(rest, ": ")
	if !found || name == "" {
		return ChatLine{}, false
	}
	return ChatLine{Time: stamp, Name: name, Text: text}, true
}

// Printer writes chat output. Writes are serialized so the receive loop and
// the input loop can share it.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	self   string
	styled bool
}

// NewPrinter returns a printer for out. Styling is enabled when out is a
// terminal; self is this client's name, highlighted differently.
func NewPrinter(out io.Writer, self string) *Printer {
	styled := false
	if f, ok := out.(*os.File); ok {
		styled = IsTerminal(f)
	}
	return &Printer{out: out, self: self, styled: styled}
}

// SetStyled forces styling on or off
func (p *Printer) SetStyled(styled bool) {
	p.mu.Lock()
	p.styled = styled
	p.mu.Unlock()
}

// Message prints one received chat message
func (p *Printer) Message(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, renderMessage(content, p.self, p.styled))
}

// Status prints a connection status line
func (p *Printer) Status(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, renderStatus(fmt.Sprintf(format, args...), p.styled))
}

// Error prints an error line
func (p *Printer) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, renderError(err, p.styled))
}

// renderMessage formats a chat line, highlighting the sender name when styled
func renderMessage(content, self string, styled bool) string {
	if !styled {
		return content
	}

	line, ok := ParseChatLine(content)
	if !ok {
		return MessageStyle.Render(content)
	}

	nameStyle := PeerNameStyle
	if line.Name == self {
		nameStyle = OwnNameStyle
	}
	return TimestampStyle.Render("["+line.Time+"]") +
		nameStyle.Render(line.Name) +
		MessageStyle.Render(": "+line.Text)
}

func renderStatus(msg string, styled bool) string {
	if styled {
		return StatusStyle.Render(SuccessMarker + " " + msg)
	}
	return "* " + msg
}

func renderError(err error, styled bool) string {
	if styled {
		return ErrorMessageStyle.Render(FailureMarker + " " + err.Error())
	}
	return "! " + err.Error()
}
