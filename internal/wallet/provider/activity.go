package provider

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/auth"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/passportapi"
)

// sessionChecker routes activity checks to the active chain's API client.
type sessionChecker struct {
	p *Provider
}

func (s sessionChecker) CheckSessionActivity(ctx context.Context, user *auth.User, q passportapi.SessionActivityQuery) (*passportapi.SessionActivity, error) {
	return s.p.current.Load().api.CheckSessionActivity(ctx, user, q)
}

// addSessionActivity starts tracking in the background and returns at once. Nothing is tracked before
// the wallet is registered.
func (p *Provider) addSessionActivity(ctx context.Context, raw json.RawMessage) (any, error) {
	clientID := p.passport.ClientID

	params, err := parseParams(raw)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		var req sessionActivityParams
		if err := param(params, 0, "session activity", &req); err != nil {
			return nil, err
		}
		if req.ClientID != "" {
			clientID = req.ClientID
		}
	}

	user, err := p.users.GetUser(ctx)
	if err != nil || !user.HasWallet() || !common.IsHexAddress(user.ZkEvm.EthAddress) {
		util.LogFromContext(ctx).Debug().Msg("Skipping session activity without wallet")
		return nil, nil //nolint:nilnil
	}

	p.tracker.Track(ctx, common.HexToAddress(user.ZkEvm.EthAddress), clientID)

	return nil, nil //nolint:nilnil
}
