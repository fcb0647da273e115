// Package ui renders the wschat-client terminal output with Lipgloss and
// Bubble Tea.
//
// On a terminal the client runs ChatModel, a Bubble Tea screen with a
// viewport for messages and a textinput for typing, and shows a spinner
// (WaitModel, via Wait) during mDNS lookups. Otherwise it is line oriented:
// a banner at start-up, then one line per chat message, status change or
// error, printed by Printer. Styling is dropped when the output is not a
// terminal so piped output stays plain text.
//
// Example:
//
//	fmt.Println(ui.RenderCommandHeader(ui.HeaderConfig{
//	    Title:   "wschat",
//	    Command: "wschat-client --url ws://localhost:8080/",
//	    Params:  []ui.Param{{Key: "Server", Value: url}, {Key: "Name", Value: name}},
//	}))
//
//	p := ui.NewPrinter(os.Stdout, name)
//	p.Message("[14:30]alice: hi")
//
// # Logging Integration
//
// zap logging is silent unless WSCHAT_LOG_LEVEL or --log-level is set, so the
// chat output is not interleaved with log lines by default.
package ui
