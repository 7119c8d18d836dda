package auth

import (
	"context"
	"sync"

	"github.com/immutable/ts-immutable-sdk-sub011/internal/config"
)

// StaticManager serves a pre-issued session, typically read from configuration.
// Login succeeds only when a session was configured.
type StaticManager struct {
	mu       sync.RWMutex
	user     *User
	loggedIn bool
}

// NewStaticManager returns a Manager for the session in cfg. An empty access token yields a manager
// that is never logged in.
func NewStaticManager(cfg config.Auth) *StaticManager {
	user := &User{
		AccessToken: cfg.AccessToken,
		IDToken:     cfg.IDToken,
		Profile:     Profile{Sub: cfg.Subject},
	}
	if cfg.WalletAddress != "" {
		user.ZkEvm = &ZkEvm{EthAddress: cfg.WalletAddress}
	}

	return &StaticManager{user: user}
}

func (m *StaticManager) GetUser(_ context.Context) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.loggedIn {
		return nil, ErrNotLoggedIn
	}

	return m.copyUser(), nil
}

func (m *StaticManager) Login(_ context.Context) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user.AccessToken == "" {
		return nil, ErrNotLoggedIn
	}
	m.loggedIn = true

	return m.copyUser(), nil
}

func (m *StaticManager) SetWallet(_ context.Context, wallet ZkEvm) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.user.ZkEvm = &wallet

	return nil
}

func (m *StaticManager) copyUser() *User {
	u := *m.user
	if m.user.ZkEvm != nil {
		zkEvm := *m.user.ZkEvm
		u.ZkEvm = &zkEvm
	}

	return &u
}
