// Package console manages the host terminal's raw-mode lifetime: a scoped
// resource that puts the terminal into character-at-a-time, no-echo mode
// for the simulator's interactive console device and guarantees
// restoration on exit, including on signal delivery.
package console

import (
	"os"

	"golang.org/x/term"
)

// TTY owns the saved terminal state for stdin's raw-mode toggle.
type TTY struct {
	fd       int
	oldState *term.State
	raw      bool
}

// New captures the controlling terminal's current state without modifying
// it. If stdin is not a terminal (piped input, CI), IsTerminal reports
// false and EnableRaw becomes a no-op.
func New() *TTY {
	fd := int(os.Stdin.Fd())
	return &TTY{fd: fd}
}

func (t *TTY) IsTerminal() bool { return term.IsTerminal(t.fd) }

// EnableRaw switches stdin to raw mode, remembering the prior state so
// Restore can put it back. Safe to call when not attached to a terminal.
func (t *TTY) EnableRaw() error {
	if !t.IsTerminal() || t.raw {
		return nil
	}
	old, err := term.MakeRaw(t.fd)
	if err != nil {
		return err
	}
	t.oldState = old
	t.raw = true
	return nil
}

// Restore undoes EnableRaw, matching ttyControl's destructor-time restore.
// Safe to call multiple times or when EnableRaw was never called/succeeded.
func (t *TTY) Restore() error {
	if !t.raw || t.oldState == nil {
		return nil
	}
	err := term.Restore(t.fd, t.oldState)
	t.raw = false
	return err
}
