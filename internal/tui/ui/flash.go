package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/rivo/tview"

	"github.com/kingchat/kingchat/internal/bus"
)

// FlashLevel is the severity of a flash message.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashWarn
	FlashErr
)

// ParseFlashLevel maps a notice level onto a FlashLevel.
func ParseFlashLevel(level string) FlashLevel {
	switch level {
	case "warn":
		return FlashWarn
	case "error":
		return FlashErr
	default:
		return FlashInfo
	}
}

// lifetime is how long each level stays on screen.
func (l FlashLevel) lifetime() time.Duration {
	switch l {
	case FlashWarn:
		return 8 * time.Second
	case FlashErr:
		return 10 * time.Second
	default:
		return 5 * time.Second
	}
}

// FlashMessage is one notification with its expiry.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	Expires time.Time
}

// FlashModel holds the latest notification.
type FlashModel struct {
	mu      sync.RWMutex
	current FlashMessage
	now     func() time.Time
}

// NewFlashModel creates an empty model.
func NewFlashModel() *FlashModel {
	return &FlashModel{now: time.Now}
}

// Info sets an info message.
func (f *FlashModel) Info(msg string) { f.Set(msg, FlashInfo) }

// Warn sets a warning.
func (f *FlashModel) Warn(msg string) { f.Set(msg, FlashWarn) }

// Err sets an error message.
func (f *FlashModel) Err(err error) { f.Set(err.Error(), FlashErr) }

// Notice sets the message carried by a notify.* event.
func (f *FlashModel) Notice(n bus.Notice) { f.Set(n.Message, ParseFlashLevel(n.Level)) }

// Set replaces the current message.
func (f *FlashModel) Set(msg string, level FlashLevel) {
	f.mu.Lock()
	f.current = FlashMessage{Text: msg, Level: level, Expires: f.now().Add(level.lifetime())}
	f.mu.Unlock()
}

// Current returns the live message, or nil once it expired.
func (f *FlashModel) Current() *FlashMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.current.Text == "" || f.now().After(f.current.Expires) {
		return nil
	}
	m := f.current
	return &m
}

// FlashBar renders the current flash message.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

// NewFlashBar creates an empty bar.
func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &FlashBar{TextView: tv, theme: theme}
}

// Update redraws the bar; nil clears it.
func (fb *FlashBar) Update(msg *FlashMessage) {
	fb.Clear()
	if msg == nil {
		return
	}
	color := fb.theme.FlashInfoColor
	switch msg.Level {
	case FlashWarn:
		color = fb.theme.FlashWarnColor
	case FlashErr:
		color = fb.theme.FlashErrColor
	}
	_, _ = fmt.Fprintf(fb, " [%s]%s[-]", Tag(color), tview.Escape(msg.Text))
}
