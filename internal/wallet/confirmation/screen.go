// Package confirmation drives the popup asking the user to approve a transaction or a message.
package confirmation

import (
	"context"
	"math/big"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultWidth        = 480
	DefaultHeight       = 720
	DefaultPollInterval = time.Second

	transactionPath = "/transaction-confirmation/zkevm"
	messagePath     = "/transaction-confirmation/zkevm/message"
)

type Config struct {
	// Domain is the passport domain serving the confirmation pages; inbound messages must come from its origin.
	Domain       string
	Width        int
	Height       int
	PollInterval time.Duration
}

type Screen struct {
	cfg     Config
	origin  string
	opener  Opener
	overlay Overlay

	mu     sync.Mutex
	window Window
}

func NewScreen(cfg Config, opener Opener, overlay Overlay) *Screen {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if overlay == nil {
		overlay = noopOverlay{}
	}

	return &Screen{
		cfg:     cfg,
		origin:  Origin(cfg.Domain),
		opener:  opener,
		overlay: overlay,
	}
}

// RequestTransactionConfirmation asks the user to approve the guardian flagged transaction.
func (s *Screen) RequestTransactionConfirmation(ctx context.Context, transactionID, etherAddress string, chainID *big.Int) (Result, error) {
	q := url.Values{}
	q.Set("transactionId", transactionID)
	q.Set("etherAddress", etherAddress)
	q.Set("chainType", "evm")
	q.Set("chainId", chainID.String())

	return s.request(ctx, s.pageURL(transactionPath, q), subjectTransaction)
}

// RequestMessageConfirmation asks the user to approve the guardian flagged message of messageType (erc191 or eip712).
func (s *Screen) RequestMessageConfirmation(ctx context.Context, messageID, etherAddress, messageType string) (Result, error) {
	q := url.Values{}
	q.Set("messageID", messageID)
	q.Set("etherAddress", etherAddress)
	q.Set("messageType", messageType)

	return s.request(ctx, s.pageURL(messagePath, q), subjectMessage)
}

// CloseWindow closes the popup and hides the overlay, if shown.
func (s *Screen) CloseWindow() {
	s.mu.Lock()
	w := s.window
	s.window = nil
	s.mu.Unlock()

	if w != nil {
		w.Close()
	}
	s.overlay.Hide()
}

func (s *Screen) pageURL(path string, q url.Values) string {
	return strings.TrimRight(s.cfg.Domain, "/") + path + "?" + q.Encode()
}

func (s *Screen) request(ctx context.Context, pageURL string, subj subject) (Result, error) {
	log := util.LogFromContext(ctx).With().Str("confirmation_url", pageURL).Logger()

	w, err := s.open(ctx, pageURL, log)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	s.window = w
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.window == w {
			s.window = nil
		}
		s.mu.Unlock()
	}()

	a := &actor{
		window:       w,
		origin:       s.origin,
		subject:      subj,
		pollInterval: s.cfg.PollInterval,
		log:          log,
	}

	return a.run(ctx)
}

// open shows the popup, falling back to the overlay for as long as the popup is blocked.
func (s *Screen) open(ctx context.Context, pageURL string, log zerolog.Logger) (Window, error) {
	size := Size{Width: s.cfg.Width, Height: s.cfg.Height}

	for {
		w, err := s.opener.Open(ctx, pageURL, size)
		if err == nil {
			s.overlay.Hide()
			return w, nil
		}

		if !errors.Is(err, ErrPopupBlocked) {
			return nil, errors.Wrap(err, "failed to open confirmation window")
		}

		log.Debug().Msg("Confirmation popup blocked, showing overlay")

		reopen := make(chan struct{}, 1)
		s.overlay.Show(func() {
			select {
			case reopen <- struct{}{}:
			default:
			}
		})

		select {
		case <-ctx.Done():
			s.overlay.Hide()
			return nil, errors.Wrap(ctx.Err(), "confirmation cancelled")
		case <-reopen:
		}
	}
}

// Origin returns scheme://host of rawURL.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return strings.TrimRight(rawURL, "/")
	}

	return u.Scheme + "://" + u.Host
}

type noopOverlay struct{}

func (noopOverlay) Show(func()) {}
func (noopOverlay) Hide()       {}
