package api

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/confirmation"
	"github.com/pkg/errors"
)

const (
	// BridgeTokenParam is appended to the confirmation URL; the page uses it to connect back.
	BridgeTokenParam = "bridgeToken"

	inboundBuffer = 16
	writeTimeout  = 10 * time.Second
)

var ErrUnknownBridgeToken = errors.New("unknown or already connected bridge token")

// PendingWindow is a confirmation page waiting for its websocket connection.
type PendingWindow struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"createdAt"`
}

// WebsocketOpener realises confirmation windows as websocket connections made by the confirmation page.
// A window that is not connected within the connect timeout counts as closed by the user.
type WebsocketOpener struct {
	origin         string
	connectTimeout time.Duration
	clock          time2.Clock
	upgrader       websocket.Upgrader

	mu      sync.Mutex
	windows map[string]*wsWindow
}

// NewWebsocketOpener creates an opener whose connect deadlines and creation times are read from clock.
func NewWebsocketOpener(passportDomain string, connectTimeout time.Duration, clock time2.Clock) *WebsocketOpener {
	o := &WebsocketOpener{
		origin:         confirmation.Origin(passportDomain),
		connectTimeout: connectTimeout,
		clock:          clock,
		windows:        make(map[string]*wsWindow),
	}
	o.upgrader = websocket.Upgrader{CheckOrigin: o.checkOrigin}

	return o
}

func (o *WebsocketOpener) Open(ctx context.Context, pageURL string, size confirmation.Size) (confirmation.Window, error) {
	token := uuid.NewString()

	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid confirmation URL")
	}
	q := u.Query()
	q.Set(BridgeTokenParam, token)
	u.RawQuery = q.Encode()

	now := o.clock.Now()
	w := &wsWindow{
		pending: PendingWindow{
			Token:     token,
			URL:       u.String(),
			Width:     size.Width,
			Height:    size.Height,
			CreatedAt: now,
		},
		inbound:  make(chan confirmation.Message, inboundBuffer),
		clock:    o.clock,
		deadline: now.Add(o.connectTimeout),
	}
	w.onClose = func() { o.remove(token) }

	o.mu.Lock()
	o.windows[token] = w
	o.mu.Unlock()

	util.LogFromContext(ctx).Info().Str("url", w.pending.URL).Msg("Confirmation required, open the confirmation page")

	return w, nil
}

// Pending lists the windows whose page has not connected yet, oldest first.
func (o *WebsocketOpener) Pending() []PendingWindow {
	o.mu.Lock()
	defer o.mu.Unlock()

	result := make([]PendingWindow, 0, len(o.windows))
	for _, w := range o.windows {
		if !w.connected() && !w.Closed() {
			result = append(result, w.pending)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })

	return result
}

// Serve upgrades the page's request and bridges messages until either side goes away.
func (o *WebsocketOpener) Serve(ctx context.Context, rw http.ResponseWriter, r *http.Request, token string) error {
	o.mu.Lock()
	w, ok := o.windows[token]
	o.mu.Unlock()

	if !ok || w.connected() || w.Closed() {
		return ErrUnknownBridgeToken
	}

	conn, err := o.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		// the upgrader already answered the request
		return nil //nolint:nilerr
	}

	if !w.attach(conn) {
		_ = conn.Close()
		return nil
	}

	w.readLoop(ctx, r.Header.Get("Origin"))

	return nil
}

func (o *WebsocketOpener) checkOrigin(r *http.Request) bool {
	return r.Header.Get("Origin") == o.origin
}

func (o *WebsocketOpener) remove(token string) {
	o.mu.Lock()
	delete(o.windows, token)
	o.mu.Unlock()
}

type wsWindow struct {
	pending  PendingWindow
	inbound  chan confirmation.Message
	clock    time2.Clock
	deadline time.Time
	onClose  func()

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (w *wsWindow) PostMessage(msg confirmation.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.conn == nil {
		return confirmation.ErrWindowClosed
	}

	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	return errors.Wrap(w.conn.WriteJSON(msg), "failed to post confirmation message")
}

func (w *wsWindow) Inbound() <-chan confirmation.Message {
	return w.inbound
}

func (w *wsWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.closed || (w.conn == nil && w.clock.Now().After(w.deadline))
}

func (w *wsWindow) Close() {
	w.mu.Lock()
	alreadyClosed := w.closed
	w.closed = true
	conn := w.conn
	w.mu.Unlock()

	if alreadyClosed {
		return
	}

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
		_ = conn.Close()
	}

	w.onClose()
}

func (w *wsWindow) connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.conn != nil
}

func (w *wsWindow) attach(conn *websocket.Conn) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.conn != nil {
		return false
	}
	w.conn = conn

	return true
}

// readLoop forwards page messages tagged with the page origin. Inbound is closed when the connection ends.
func (w *wsWindow) readLoop(ctx context.Context, origin string) {
	log := util.LogFromContext(ctx)

	defer close(w.inbound)
	defer w.Close()

	for {
		var msg confirmation.Message
		if err := w.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("Confirmation page disconnected")
			}
			return
		}

		msg.Origin = origin

		select {
		case w.inbound <- msg:
		default:
			log.Warn().Str("message_type", string(msg.MessageType)).Msg("Dropping confirmation message, inbound buffer full")
		}
	}
}
