// Package passportapi is the client of the Passport backend: chain listing, wallet registration and session activity.
package passportapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/auth"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/chain"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

var ErrChainNameNotFound = errors.New("chain name does not exist for the chain id")

const defaultCacheTTL = time.Hour

type Config struct {
	APIURL     string
	HTTPClient *http.Client
	// CacheTTL bounds how long chain names and registered addresses are reused
	CacheTTL time.Duration
}

type Client struct {
	apiURL string
	http   *http.Client
	cache  *gocache.Cache
}

func NewClient(cfg Config) *Client {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	c := &Client{
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		http:   cfg.HTTPClient,
		cache:  gocache.New(ttl, 2*ttl), //nolint:mnd
	}
	if c.http == nil {
		c.http = util.NewHTTPClient()
	}

	return c
}

func (c *Client) ListChains(ctx context.Context) ([]Chain, error) {
	var resp listChainsResponse
	if err := util.DoJSON(ctx, c.http, http.MethodGet, c.apiURL+"/v1/chains", nil, nil, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to list chains")
	}

	return resp.Result, nil
}

// ChainName resolves the backend name of chainID, e.g. "imtbl-zkevm-testnet".
func (c *Client) ChainName(ctx context.Context, chainID int64) (string, error) {
	id := chain.EIP155(chainID)
	key := "chain:" + id

	if name, ok := c.cache.Get(key); ok {
		return name.(string), nil //nolint:forcetypeassert
	}

	chains, err := c.ListChains(ctx)
	if err != nil {
		return "", err
	}

	for _, ch := range chains {
		if ch.ID == id && ch.Name != "" {
			c.cache.SetDefault(key, ch.Name)
			return ch.Name, nil
		}
	}

	return "", errors.Wrapf(ErrChainNameNotFound, "chain %s", id)
}

// CreateCounterfactualAddress registers the user's EOA and returns the smart contract wallet address.
// Addresses are cached per user subject and chain.
func (c *Client) CreateCounterfactualAddress(ctx context.Context, user *auth.User, chainName string, ethAddress common.Address, ethSignature string) (common.Address, error) {
	headers, err := bearer(user)
	if err != nil {
		return common.Address{}, err
	}

	key := fmt.Sprintf("wallet:%s:%s", user.Profile.Sub, chainName)
	if addr, ok := c.cache.Get(key); ok {
		return addr.(common.Address), nil //nolint:forcetypeassert
	}

	body := counterfactualAddressRequest{
		EthereumAddress:   ethAddress.Hex(),
		EthereumSignature: ethSignature,
	}

	u := fmt.Sprintf("%s/v2/passport/%s/counterfactual-address", c.apiURL, url.PathEscape(chainName))

	var resp counterfactualAddressResponse
	if err := util.DoJSON(ctx, c.http, http.MethodPost, u, headers, body, &resp); err != nil {
		return common.Address{}, errors.Wrap(err, "failed to create counterfactual address")
	}

	if !common.IsHexAddress(resp.CounterfactualAddress) {
		return common.Address{}, errors.Errorf("invalid counterfactual address %q", resp.CounterfactualAddress)
	}

	addr := common.HexToAddress(resp.CounterfactualAddress)
	c.cache.SetDefault(key, addr)

	return addr, nil
}

// CheckSessionActivity returns nil without error when no activity is due.
func (c *Client) CheckSessionActivity(ctx context.Context, user *auth.User, q SessionActivityQuery) (*SessionActivity, error) {
	headers, err := bearer(user)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("clientId", q.ClientID)
	query.Set("wallet", q.Wallet)
	query.Set("checkCount", strconv.Itoa(q.CheckCount))
	query.Set("sendCount", strconv.Itoa(q.SendCount))

	var resp SessionActivity
	err = util.DoJSON(ctx, c.http, http.MethodGet, c.apiURL+"/v1/sdk/session-activity/check?"+query.Encode(), headers, nil, &resp)
	if util.IsHTTPStatus(err, http.StatusNotFound) {
		return nil, nil //nolint:nilnil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to check session activity")
	}

	return &resp, nil
}

func bearer(user *auth.User) (map[string]string, error) {
	token, err := user.BearerToken()
	if err != nil {
		return nil, err
	}

	return map[string]string{"Authorization": token}, nil
}
