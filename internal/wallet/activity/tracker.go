// Package activity keeps a logged in wallet's session alive by sending the contract calls the Passport backend asks for.
package activity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/auth"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/passportapi"
)

// Checker asks the backend whether activity is due.
type Checker interface {
	CheckSessionActivity(ctx context.Context, user *auth.User, q passportapi.SessionActivityQuery) (*passportapi.SessionActivity, error)
}

// Sender submits a background transaction from wallet.
type Sender interface {
	SendBackgroundTransaction(ctx context.Context, wallet common.Address, to common.Address, data []byte) error
}

type Config struct {
	Checker Checker
	Sender  Sender
	Users   auth.Manager
	// DelayUnit scales the delay returned by the backend, defaults to one second
	DelayUnit time.Duration
}

type counters struct {
	checks int
	sends  int
}

// Tracker runs at most one track loop per client id. Errors never leave the loop.
type Tracker struct {
	checker   Checker
	sender    Sender
	users     auth.Manager
	delayUnit time.Duration

	mu       sync.Mutex
	counts   map[string]*counters
	inflight map[string]bool

	// root of every loop, cancelled by Close
	ctx    context.Context //nolint:containedctx
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTracker(cfg Config) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())

	t := &Tracker{
		checker:   cfg.Checker,
		sender:    cfg.Sender,
		users:     cfg.Users,
		delayUnit: cfg.DelayUnit,
		counts:    make(map[string]*counters),
		inflight:  make(map[string]bool),
		ctx:       ctx,
		cancel:    cancel,
	}
	if t.delayUnit <= 0 {
		t.delayUnit = time.Second
	}

	return t
}

// Track starts a track loop for clientID unless one is already running and returns immediately.
// It reports whether a new loop was started.
func (t *Tracker) Track(ctx context.Context, wallet common.Address, clientID string) bool {
	if clientID == "" {
		return false
	}

	t.mu.Lock()
	if t.ctx.Err() != nil || t.inflight[clientID] {
		t.mu.Unlock()
		return false
	}
	t.inflight[clientID] = true
	if t.counts[clientID] == nil {
		t.counts[clientID] = &counters{}
	}
	// added under mu, Close cancels under mu before waiting
	t.wg.Add(1)
	t.mu.Unlock()

	// the loop outlives the triggering request but keeps its logger
	loopCtx := util.ContextWithLogger(t.ctx, *util.LogFromContext(ctx))

	go func() {
		defer t.wg.Done()
		defer t.release(clientID)

		t.run(loopCtx, wallet, clientID)
	}()

	return true
}

// Counts returns the number of checks and sends performed for clientID.
func (t *Tracker) Counts(clientID string) (checks int, sends int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.counts[clientID]
	if !ok {
		return 0, 0
	}

	return c.checks, c.sends
}

// Close cancels running loops, including in-flight checks and sends, and waits for them to return.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.cancel()
	t.mu.Unlock()

	t.wg.Wait()
}

func (t *Tracker) run(ctx context.Context, wallet common.Address, clientID string) {
	for {
		delay := t.trackOnce(ctx, wallet, clientID)
		if delay <= 0 {
			return
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (t *Tracker) trackOnce(ctx context.Context, wallet common.Address, clientID string) time.Duration {
	log := util.LogFromContext(ctx).With().Str("client_id", clientID).Str("wallet", wallet.Hex()).Logger()

	user, err := t.users.GetUser(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Skipping session activity without user")
		return 0
	}

	t.mu.Lock()
	c := t.counts[clientID]
	c.checks++
	q := passportapi.SessionActivityQuery{
		ClientID:   clientID,
		Wallet:     wallet.Hex(),
		CheckCount: c.checks,
		SendCount:  c.sends,
	}
	t.mu.Unlock()

	activity, err := t.checker.CheckSessionActivity(ctx, user, q)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to check session activity")
		return 0
	}

	if activity.HasCall() {
		if !common.IsHexAddress(activity.ContractAddress) {
			log.Warn().Str("contract", activity.ContractAddress).Msg("Ignoring session activity with invalid contract")
			return 0
		}

		to := common.HexToAddress(activity.ContractAddress)
		if err := t.sender.SendBackgroundTransaction(ctx, wallet, to, Selector(activity.FunctionName)); err != nil {
			log.Warn().Err(err).Msg("Failed to send session activity")
		} else {
			t.mu.Lock()
			c.sends++
			t.mu.Unlock()
			log.Debug().Str("function", activity.FunctionName).Msg("Sent session activity")
		}
	}

	if activity == nil || activity.Delay <= 0 {
		return 0
	}

	return time.Duration(activity.Delay) * t.delayUnit
}

func (t *Tracker) release(clientID string) {
	t.mu.Lock()
	delete(t.inflight, clientID)
	t.mu.Unlock()
}

// Selector returns the calldata of a no-argument call to functionName. A full signature such as "ping()" is used as is.
func Selector(functionName string) []byte {
	signature := functionName
	if !strings.Contains(signature, "(") {
		signature += "()"
	}

	return crypto.Keccak256([]byte(signature))[:4]
}
