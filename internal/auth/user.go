// Package auth describes the authenticated user the provider acts for. Login flows and token storage live outside
// this module; the provider only reads what a Manager hands out.
package auth

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

var ErrNotLoggedIn = errors.New("user is not logged in")

type Profile struct {
	Sub      string `json:"sub"`
	Email    string `json:"email,omitempty"`
	Nickname string `json:"nickname,omitempty"`
}

// ZkEvm holds the registered counterfactual wallet of a user.
type ZkEvm struct {
	EthAddress       string `json:"ethAddress"`
	UserAdminAddress string `json:"userAdminAddress"`
}

type User struct {
	AccessToken  string  `json:"access_token"`
	IDToken      string  `json:"id_token,omitempty"`
	RefreshToken string  `json:"refresh_token,omitempty"`
	Profile      Profile `json:"profile"`
	ZkEvm        *ZkEvm  `json:"zkEvm,omitempty"`
}

// HasWallet reports whether the user already owns a registered wallet.
func (u *User) HasWallet() bool {
	return u != nil && u.ZkEvm != nil && u.ZkEvm.EthAddress != ""
}

// BearerToken returns the Authorization header value for u.
func (u *User) BearerToken() (string, error) {
	if u == nil || strings.TrimSpace(u.AccessToken) == "" {
		return "", errors.New("missing access token")
	}

	return "Bearer " + u.AccessToken, nil
}

// Manager is the authentication collaborator of the provider.
type Manager interface {
	// GetUser returns the current session user or ErrNotLoggedIn.
	GetUser(ctx context.Context) (*User, error)
	// Login starts a login and returns the resulting user.
	Login(ctx context.Context) (*User, error)
	// SetWallet records the wallet registered for the current user.
	SetWallet(ctx context.Context, wallet ZkEvm) error
}
