package output

import (
	"io"
	"sync"
	"time"
)

// Notifier writes progress and warnings through a Formatter. A terminal
// has no display timeout, so warning durations are not used.
type Notifier struct {
	mu        sync.Mutex
	w         io.Writer
	formatter Formatter
	quiet     bool
}

// NewNotifier creates a Notifier writing to w. Quiet suppresses progress
// but never warnings.
func NewNotifier(w io.Writer, formatter Formatter, quiet bool) *Notifier {
	return &Notifier{w: w, formatter: formatter, quiet: quiet}
}

// Progress reports an informational message.
func (n *Notifier) Progress(msg string) {
	if n.quiet {
		return
	}
	n.write(n.formatter.FormatMessage(msg))
}

// Warning reports a message the user should act on.
func (n *Notifier) Warning(msg string, _ time.Duration) {
	n.write(n.formatter.FormatWarning(msg))
}

func (n *Notifier) write(s string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = io.WriteString(n.w, s)
}
