// Package platform wraps the optional host capabilities used by detail
// actions: native share, clipboard writes and acknowledgment notices.
package platform

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aymanbagabas/go-osc52/v2"
)

// ErrUnsupported is returned by capabilities the host does not have.
var ErrUnsupported = errors.New("capability not supported")

// CopiedNotice acknowledges a clipboard fallback.
const CopiedNotice = "Link copied to clipboard!"

// Payload is what a share carries.
type Payload struct {
	Title string
	Text  string
	URL   string
}

// ClipboardText is the string copied when native share is unavailable.
func (p Payload) ClipboardText() string {
	if p.URL == "" {
		return p.Title
	}
	return p.Title + " - " + p.URL
}

// Platform is the host.
type Platform interface {
	Share(ctx context.Context, p Payload) error
	WriteClipboard(ctx context.Context, text string) error
	Notify(msg string)
}

// Method reports which step of the share chain succeeded.
type Method string

const (
	MethodNative    Method = "native"
	MethodClipboard Method = "clipboard"
	MethodNotice    Method = "notice"
)

// Share runs the fallback chain: native share, then a clipboard copy
// acknowledged with CopiedNotice, then a notice carrying the text itself.
func Share(ctx context.Context, p Platform, payload Payload) Method {
	if err := p.Share(ctx, payload); err == nil {
		return MethodNative
	}
	text := payload.ClipboardText()
	if err := p.WriteClipboard(ctx, text); err == nil {
		p.Notify(CopiedNotice)
		return MethodClipboard
	}
	p.Notify(text)
	return MethodNotice
}

// Terminal is the Platform of the terminal front end. It has no native
// share; the clipboard is reached with an OSC 52 escape sequence, and
// notices are handed to a callback that shows them.
type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	tmux   bool
	notify func(string)
}

// NewTerminal writes escape sequences to out. notify may be nil.
func NewTerminal(out io.Writer, notify func(string)) *Terminal {
	term := os.Getenv("TERM")
	return &Terminal{
		out:    out,
		tmux:   os.Getenv("TMUX") != "" || strings.HasPrefix(term, "tmux") || strings.HasPrefix(term, "screen"),
		notify: notify,
	}
}

// Share implements Platform.
func (t *Terminal) Share(context.Context, Payload) error {
	return ErrUnsupported
}

// WriteClipboard implements Platform.
func (t *Terminal) WriteClipboard(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.out == nil {
		return ErrUnsupported
	}

	seq := osc52.New(text)
	if t.tmux {
		seq = seq.Tmux()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := seq.WriteTo(t.out)
	return err
}

// Notify implements Platform.
func (t *Terminal) Notify(msg string) {
	t.mu.Lock()
	notify := t.notify
	t.mu.Unlock()
	if notify != nil {
		notify(msg)
	}
}

// OnNotify replaces the notice callback.
func (t *Terminal) OnNotify(fn func(string)) {
	t.mu.Lock()
	t.notify = fn
	t.mu.Unlock()
}
