package confirmation

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type state int

const (
	stateAwaitingWindowReady state = iota
	stateAwaitingDecision
	stateConfirmed
	stateRejected
	stateErrored
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateAwaitingWindowReady:
		return "awaiting_window_ready"
	case stateAwaitingDecision:
		return "awaiting_user_decision"
	case stateConfirmed:
		return "confirmed"
	case stateRejected:
		return "rejected"
	case stateErrored:
		return "errored"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s state) terminal() bool {
	return s >= stateConfirmed
}

type subject int

const (
	subjectTransaction subject = iota
	subjectMessage
)

// terminalStates maps the decision messages of a subject to the state they lead to.
var terminalStates = map[subject]map[MessageType]state{
	subjectTransaction: {
		MessageTransactionConfirmed: stateConfirmed,
		MessageTransactionRejected:  stateRejected,
		MessageTransactionError:     stateErrored,
	},
	subjectMessage: {
		MessageMessageConfirmed: stateConfirmed,
		MessageMessageRejected:  stateRejected,
		MessageMessageError:     stateErrored,
	},
}

// actor owns one popup for the duration of one confirmation request.
type actor struct {
	window       Window
	origin       string
	subject      subject
	pollInterval time.Duration
	log          zerolog.Logger

	state state
}

func (a *actor) run(ctx context.Context) (Result, error) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	inbound := a.window.Inbound()

	for !a.state.terminal() {
		select {
		case <-ctx.Done():
			a.window.Close()
			return Result{}, errors.Wrap(ctx.Err(), "confirmation cancelled")

		case <-ticker.C:
			if a.window.Closed() {
				a.transition(stateClosed)
			}

		case msg, ok := <-inbound:
			if !ok {
				a.transition(stateClosed)
				continue
			}

			if err := a.handle(msg); err != nil {
				a.window.Close()
				return Result{}, err
			}
		}
	}

	switch a.state {
	case stateConfirmed:
		a.window.Close()
		return Result{Confirmed: true}, nil
	case stateRejected:
		a.window.Close()
		return Result{Confirmed: false}, nil
	case stateErrored:
		a.window.Close()
		return Result{}, ErrConfirmationFailed
	default:
		// closed by the user or expired
		a.window.Close()
		return Result{Confirmed: false}, nil
	}
}

func (a *actor) handle(msg Message) error {
	if msg.Origin != a.origin || msg.EventType != EventType {
		a.log.Debug().
			Str("origin", msg.Origin).
			Str("event_type", msg.EventType).
			Msg("Ignoring message from unexpected source")
		return nil
	}

	switch a.state {
	case stateAwaitingWindowReady:
		if msg.MessageType != MessageWindowReady {
			return nil
		}

		if err := a.window.PostMessage(NewMessage(MessageStart)); err != nil {
			return errors.Wrap(err, "failed to start confirmation")
		}
		a.transition(stateAwaitingDecision)

	case stateAwaitingDecision:
		next, ok := terminalStates[a.subject][msg.MessageType]
		if !ok {
			return nil
		}
		a.transition(next)

	default:
	}

	return nil
}

func (a *actor) transition(next state) {
	a.log.Debug().Stringer("from", a.state).Stringer("to", next).Msg("Confirmation state changed")
	a.state = next
}
