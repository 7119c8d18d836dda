package confirmation

import (
	"context"
	"sync"
)

const channelBuffer = 16

// ChannelWindow is an in-memory Window. The popup side is driven through Send, Outbound and UserClose.
type ChannelWindow struct {
	URL  string
	Size Size

	inbound  chan Message
	outbound chan Message

	mu         sync.Mutex
	closed     bool
	userClosed bool
}

func NewChannelWindow(url string, size Size) *ChannelWindow {
	return &ChannelWindow{
		URL:      url,
		Size:     size,
		inbound:  make(chan Message, channelBuffer),
		outbound: make(chan Message, channelBuffer),
	}
}

func (w *ChannelWindow) PostMessage(msg Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.userClosed {
		return ErrWindowClosed
	}

	select {
	case w.outbound <- msg:
		return nil
	default:
		return ErrWindowClosed
	}
}

func (w *ChannelWindow) Inbound() <-chan Message {
	return w.inbound
}

func (w *ChannelWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.closed || w.userClosed
}

func (w *ChannelWindow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
}

// Send delivers msg as if posted by the popup from origin.
func (w *ChannelWindow) Send(origin string, msg Message) {
	msg.Origin = origin
	w.inbound <- msg
}

// Outbound delivers the messages posted to the popup.
func (w *ChannelWindow) Outbound() <-chan Message {
	return w.outbound
}

// UserClose simulates the user closing the popup without answering.
func (w *ChannelWindow) UserClose() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.userClosed = true
}

// Released reports whether the window was closed through Close rather than only by the user.
func (w *ChannelWindow) Released() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.closed
}

// ChannelOpener hands out ChannelWindows on Windows. The first Blocked opens fail with ErrPopupBlocked.
type ChannelOpener struct {
	Windows chan *ChannelWindow

	mu      sync.Mutex
	blocked int
	opened  int
}

func NewChannelOpener(blocked int) *ChannelOpener {
	return &ChannelOpener{
		Windows: make(chan *ChannelWindow, channelBuffer),
		blocked: blocked,
	}
}

func (o *ChannelOpener) Open(_ context.Context, url string, size Size) (Window, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.blocked > 0 {
		o.blocked--
		return nil, ErrPopupBlocked
	}

	o.opened++
	w := NewChannelWindow(url, size)
	o.Windows <- w

	return w, nil
}

// Opened returns the number of windows handed out.
func (o *ChannelOpener) Opened() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.opened
}
