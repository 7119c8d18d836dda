package confirmation

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// EventType tags every message of the confirmation protocol.
const EventType = "imx_passport_confirmation"

type MessageType string

const (
	MessageWindowReady          MessageType = "confirmation_window_ready"
	MessageStart                MessageType = "confirmation_start"
	MessageTransactionConfirmed MessageType = "transaction_confirmed"
	MessageTransactionRejected  MessageType = "transaction_rejected"
	MessageTransactionError     MessageType = "transaction_error"
	MessageMessageConfirmed     MessageType = "message_confirmed"
	MessageMessageRejected      MessageType = "message_rejected"
	MessageMessageError         MessageType = "message_error"
)

// Message is one postMessage payload. Origin is filled in by the Window for inbound messages.
type Message struct {
	EventType   string          `json:"eventType"`
	MessageType MessageType     `json:"messageType"`
	MessageData json.RawMessage `json:"messageData,omitempty"`
	Origin      string          `json:"-"`
}

func NewMessage(t MessageType) Message {
	return Message{EventType: EventType, MessageType: t}
}

var (
	// ErrPopupBlocked is returned by an Opener that could not show the popup.
	ErrPopupBlocked = errors.New("confirmation popup blocked")
	ErrWindowClosed = errors.New("confirmation window closed")
	// ErrConfirmationFailed is returned when the confirmation page reports an error.
	ErrConfirmationFailed = errors.New("error during confirmation")
)

type Size struct {
	Width  int
	Height int
}

// Window is an open confirmation popup.
type Window interface {
	PostMessage(msg Message) error
	// Inbound delivers messages posted by the popup. It is closed when the popup goes away.
	Inbound() <-chan Message
	// Closed reports whether the user closed the popup.
	Closed() bool
	Close()
}

// Opener shows the confirmation page at url.
type Opener interface {
	Open(ctx context.Context, url string, size Size) (Window, error)
}

// Overlay is the inline fallback shown while the popup is blocked.
type Overlay interface {
	// Show displays the overlay; reopen retries opening the popup.
	Show(reopen func())
	Hide()
}

// Result is the user's decision.
type Result struct {
	Confirmed bool `json:"confirmed"`
}
