// Package provider implements the EIP-1193 provider of a Passport smart contract wallet.
package provider

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/auth"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/config"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/metrics"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/activity"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/chain"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/guardian"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/rpcerr"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/signer"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const (
	signerKey   = "signer"
	registerKey = "register"
)

// Provider serves EIP-1193 requests for one user. Requests may run concurrently; each captures the chain
// bundle active when it starts and completes against it even if the chain is switched meanwhile.
type Provider struct {
	passport   config.Passport
	chains     chain.Service
	users      auth.Manager
	newSigner  SignerFactory
	confirm    guardian.Confirmer
	httpClient *http.Client
	tracker    *activity.Tracker

	current  atomic.Pointer[clients]
	switchMu sync.Mutex
	retired  []*clients

	flight   singleflight.Group
	signerMu sync.RWMutex
	signer   signer.Signer

	accountsFeed event.Feed
	chainFeed    event.Feed
}

func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Chains == nil || cfg.Users == nil || cfg.SignerFactory == nil || cfg.Confirmer == nil {
		return nil, errors.New("provider requires chains, users, signer factory and confirmer")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = util.NewHTTPClient()
	}

	p := &Provider{
		passport:   cfg.Passport,
		chains:     cfg.Chains,
		users:      cfg.Users,
		newSigner:  cfg.SignerFactory,
		confirm:    cfg.Confirmer,
		httpClient: httpClient,
	}

	chainCfg, err := p.chains.GetChain(cfg.Passport.ChainID)
	if err != nil {
		return nil, errors.Wrapf(err, "default chain %d", cfg.Passport.ChainID)
	}

	c, err := newClients(ctx, chainCfg, p.passport, p.confirm, p.httpClient)
	if err != nil {
		return nil, err
	}
	p.current.Store(c)

	p.tracker = activity.NewTracker(activity.Config{
		Checker: sessionChecker{p},
		Sender:  p,
		Users:   p.users,
	})

	return p, nil
}

// Request is the single entry point. Every error it returns is an *rpcerr.Error.
func (p *Provider) Request(ctx context.Context, args RequestArguments) (any, error) {
	c := p.current.Load()

	log := util.LogFromContext(ctx).With().
		Str("method", args.Method).
		Int64("chain_id", c.chain.ChainID).
		Logger()
	ctx = util.ContextWithLogger(ctx, log)

	result, err := p.dispatch(ctx, c, args)
	if err != nil {
		rpcErr := rpcerr.From(err)
		metrics.ObserveRPCRequest(args.Method, int(rpcErr.Code))

		if rpcErr.Code == rpcerr.CodeInternalError {
			log.Error().Err(err).Msg("Request failed")
		} else {
			log.Debug().Err(err).Msg("Request failed")
		}

		return nil, rpcErr
	}

	metrics.ObserveRPCRequest(args.Method, 0)

	return result, nil
}

func (p *Provider) dispatch(ctx context.Context, c *clients, args RequestArguments) (any, error) {
	switch args.Method {
	case MethodRequestAccounts:
		return p.requestAccounts(ctx, c)
	case MethodAccounts:
		return p.accounts(ctx), nil
	case MethodChainID:
		return hexutil.EncodeUint64(uint64(c.chain.ChainID)), nil //nolint:gosec
	case MethodSendTransaction:
		return p.sendTransaction(ctx, c, args.Params)
	case MethodPersonalSign:
		return p.personalSign(ctx, c, args.Params)
	case MethodSignTypedData, MethodSignTypedDataV4:
		return p.signTypedData(ctx, c, args.Params)
	case MethodSwitchChain:
		return p.switchChain(ctx, c, args.Params)
	case MethodAddChain:
		return p.addChain(ctx, c, args.Params)
	case MethodSignEjection:
		return p.signEjectionTransaction(ctx, c, args.Params)
	case MethodAddSessionActivity:
		return p.addSessionActivity(ctx, args.Params)
	}

	if _, ok := passthroughMethods[args.Method]; ok {
		return p.passthrough(ctx, c, args)
	}

	return nil, rpcerr.UnsupportedMethod(args.Method + ": method not supported")
}

// ChainID returns the active chain id.
func (p *Provider) ChainID() int64 {
	return p.current.Load().chain.ChainID
}

// Healthy checks that the active chain's node answers with the configured chain id and a head block.
func (p *Provider) Healthy(ctx context.Context) error {
	c := p.current.Load()

	chainID, err := c.rpc.ChainID(ctx)
	if err != nil {
		return err
	}

	if chainID.Int64() != c.chain.ChainID {
		return errors.Errorf("node reports chain %s, expected %d", chainID, c.chain.ChainID)
	}

	// the typed client shares the transport, it must not be closed here
	ec, err := c.rpc.EthClient(ctx)
	if err != nil {
		return err
	}

	if _, err := ec.BlockNumber(ctx); err != nil {
		return errors.Wrap(err, "failed to get head block")
	}

	return nil
}

// SubscribeAccountsChanged delivers the account list after registration or lookup. Subscribers must keep
// draining ch, a full channel blocks the emitting request.
func (p *Provider) SubscribeAccountsChanged(ch chan<- []string) event.Subscription {
	return p.accountsFeed.Subscribe(ch)
}

// SubscribeChainChanged delivers the hex encoded chain id after every switch.
func (p *Provider) SubscribeChainChanged(ch chan<- string) event.Subscription {
	return p.chainFeed.Subscribe(ch)
}

// Close stops session activity and releases every chain bundle.
func (p *Provider) Close() {
	p.tracker.Close()

	p.switchMu.Lock()
	defer p.switchMu.Unlock()

	for _, c := range p.retired {
		c.close()
	}
	p.retired = nil
	p.current.Load().close()
}

func (p *Provider) requestAccounts(ctx context.Context, c *clients) ([]string, error) {
	if user, err := p.users.GetUser(ctx); err == nil && user.HasWallet() {
		accounts := []string{user.ZkEvm.EthAddress}
		p.accountsFeed.Send(accounts)

		return accounts, nil
	}

	user, err := p.ensureAuthenticated(ctx)
	if err != nil {
		return nil, err
	}

	v, err, _ := p.flight.Do(registerKey, func() (any, error) {
		return p.registerWallet(ctx, c, user)
	})
	if err != nil {
		return nil, err
	}

	wallet := v.(common.Address) //nolint:forcetypeassert
	accounts := []string{wallet.Hex()}
	p.accountsFeed.Send(accounts)

	if p.passport.ClientID != "" {
		p.tracker.Track(ctx, wallet, p.passport.ClientID)
	}

	return accounts, nil
}

func (p *Provider) registerWallet(ctx context.Context, c *clients, user *auth.User) (common.Address, error) {
	log := util.LogFromContext(ctx)

	s, err := p.getSigner(ctx)
	if err != nil {
		return common.Address{}, err
	}

	eoa, err := s.Address(ctx)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "failed to get signer address")
	}

	signature, err := s.SignMessage(ctx, []byte(RegistrationMessage))
	if err != nil {
		return common.Address{}, errors.Wrap(err, "failed to sign registration message")
	}

	chainName, err := c.api.ChainName(ctx, c.chain.ChainID)
	if err != nil {
		return common.Address{}, rpcerr.Wrap(err, rpcerr.CodeInternalError, "failed to resolve chain name")
	}

	wallet, err := c.api.CreateCounterfactualAddress(ctx, user, chainName, eoa, hexutil.Encode(signature))
	if err != nil {
		return common.Address{}, err
	}

	if err := p.users.SetWallet(ctx, auth.ZkEvm{EthAddress: wallet.Hex()}); err != nil {
		return common.Address{}, errors.Wrap(err, "failed to store wallet address")
	}

	log.Info().Str("eoa", eoa.Hex()).Str("wallet", wallet.Hex()).Msg("Registered wallet")

	return wallet, nil
}

func (p *Provider) accounts(ctx context.Context) []string {
	user, err := p.users.GetUser(ctx)
	if err != nil || !user.HasWallet() {
		return []string{}
	}

	return []string{user.ZkEvm.EthAddress}
}

func (p *Provider) ensureAuthenticated(ctx context.Context) (*auth.User, error) {
	user, err := p.users.GetUser(ctx)
	if err == nil {
		return user, nil
	}

	if !errors.Is(err, auth.ErrNotLoggedIn) {
		return nil, err
	}

	if !p.passport.AutoLogin {
		return nil, rpcerr.Unauthorized("Unauthorised - call eth_requestAccounts first")
	}

	user, err = p.users.Login(ctx)
	if err != nil {
		return nil, rpcerr.Wrap(err, rpcerr.CodeUnauthorized, "login failed")
	}

	return user, nil
}

// session is what every signing method needs.
type session struct {
	user   *auth.User
	wallet common.Address
	signer signer.Signer
}

func (p *Provider) ensureSigningReady(ctx context.Context) (*session, error) {
	user, err := p.ensureAuthenticated(ctx)
	if err != nil {
		return nil, err
	}

	if !user.HasWallet() {
		return nil, rpcerr.Unauthorized("Unauthorised - call eth_requestAccounts first")
	}

	if !common.IsHexAddress(user.ZkEvm.EthAddress) {
		return nil, rpcerr.Internal("invalid wallet address in session")
	}

	s, err := p.getSigner(ctx)
	if err != nil {
		return nil, err
	}

	return &session{
		user:   user,
		wallet: common.HexToAddress(user.ZkEvm.EthAddress),
		signer: s,
	}, nil
}

// getSigner creates the signer once. Concurrent first callers share a single creation.
func (p *Provider) getSigner(ctx context.Context) (signer.Signer, error) {
	p.signerMu.RLock()
	s := p.signer
	p.signerMu.RUnlock()
	if s != nil {
		return s, nil
	}

	v, err, _ := p.flight.Do(signerKey, func() (any, error) {
		p.signerMu.RLock()
		existing := p.signer
		p.signerMu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		created, err := p.newSigner(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create signer")
		}

		p.signerMu.Lock()
		p.signer = created
		p.signerMu.Unlock()

		return created, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(signer.Signer), nil //nolint:forcetypeassert
}

func (p *Provider) passthrough(ctx context.Context, c *clients, args RequestArguments) (json.RawMessage, error) {
	params, err := parseParams(args.Params)
	if err != nil {
		return nil, err
	}

	result, err := c.rpc.Passthrough(ctx, args.Method, params)
	if err != nil {
		var rpcErr gethrpc.Error
		if errors.As(err, &rpcErr) {
			return nil, rpcerr.New(rpcerr.Code(rpcErr.ErrorCode()), rpcErr.Error())
		}

		return nil, err
	}

	return result, nil
}

func parseParams(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var params []json.RawMessage
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, rpcerr.InvalidParams("params must be an array")
	}

	return params, nil
}

// param decodes params[i] into out. A missing entry is INVALID_PARAMS.
func param(params []json.RawMessage, i int, name string, out any) error {
	if i >= len(params) {
		return rpcerr.Newf(rpcerr.CodeInvalidParams, "missing %s parameter", name)
	}

	if err := json.Unmarshal(params[i], out); err != nil {
		return rpcerr.Newf(rpcerr.CodeInvalidParams, "invalid %s parameter: %v", name, err)
	}

	return nil
}

func parseChainID(s string) (int64, error) {
	v, ok := new(big.Int), false
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, ok = v.SetString(s[2:], 16)
	} else {
		v, ok = v.SetString(s, 10)
	}

	if !ok || v.Sign() <= 0 || !v.IsInt64() {
		return 0, rpcerr.Newf(rpcerr.CodeInvalidParams, "invalid chain id %q", s)
	}

	return v.Int64(), nil
}
