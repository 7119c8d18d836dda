package rpc

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/api"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/labstack/echo/v4"
)

const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"

	eventBuffer       = 8
	eventWriteTimeout = 10 * time.Second
)

// Event is pushed to subscribers of /rpc/events.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func GetEventsRoute(s *api.Server) *echo.Route {
	return s.Router.RPC.GET("/events", getEventsHandler(s))
}

// getEventsHandler streams provider events until the client disconnects.
func getEventsHandler(s *api.Server) echo.HandlerFunc {
	upgrader := websocket.Upgrader{}

	return func(c echo.Context) error {
		log := util.LogFromContext(c.Request().Context())

		// subscribe before the handshake completes so no event emitted after it is missed
		accounts := make(chan []string, eventBuffer)
		chains := make(chan string, eventBuffer)

		accountsSub := s.Provider.SubscribeAccountsChanged(accounts)
		defer accountsSub.Unsubscribe()
		chainSub := s.Provider.SubscribeChainChanged(chains)
		defer chainSub.Unsubscribe()

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// the upgrader already answered the request
			return nil //nolint:nilerr
		}
		defer conn.Close()

		// the client only ever closes the connection; reading surfaces that
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		for {
			var ev Event

			select {
			case <-done:
				return nil
			case <-accountsSub.Err():
				return nil
			case <-chainSub.Err():
				return nil
			case a := <-accounts:
				ev = Event{Event: EventAccountsChanged, Data: a}
			case id := <-chains:
				ev = Event{Event: EventChainChanged, Data: id}
			}

			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Str("event", ev.Event).Msg("Failed to push provider event")
				return nil
			}
		}
	}
}
