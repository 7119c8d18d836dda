package signer

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/auth"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/pkg/errors"
)

// IdentitySigner signs digests through the identity instrument service.
type IdentitySigner struct {
	url   string
	users auth.Manager
	http  *http.Client

	mu      sync.Mutex
	address *common.Address
}

func NewIdentitySigner(url string, users auth.Manager, client *http.Client) *IdentitySigner {
	if client == nil {
		client = util.NewHTTPClient()
	}

	return &IdentitySigner{
		url:   strings.TrimRight(url, "/") + "/rpc/IdentityInstrument",
		users: users,
		http:  client,
	}
}

type identityAddressResponse struct {
	Address string `json:"address"`
}

type identitySignRequest struct {
	Params identitySignParams `json:"params"`
}

type identitySignParams struct {
	Signer string `json:"signer"`
	Digest string `json:"digest"`
}

type identitySignResponse struct {
	Signature string `json:"signature"`
}

func (s *IdentitySigner) Address(ctx context.Context) (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.address != nil {
		return *s.address, nil
	}

	headers, err := s.headers(ctx)
	if err != nil {
		return common.Address{}, err
	}

	var resp identityAddressResponse
	if err := util.DoJSON(ctx, s.http, http.MethodPost, s.url+"/GetAddress", headers, struct{}{}, &resp); err != nil {
		return common.Address{}, errors.Wrap(err, "failed to get identity signer address")
	}

	if !common.IsHexAddress(resp.Address) {
		return common.Address{}, errors.Errorf("identity instrument returned invalid address %q", resp.Address)
	}

	addr := common.HexToAddress(resp.Address)
	s.address = &addr

	return addr, nil
}

// SignMessage signs the EIP-191 digest of message.
func (s *IdentitySigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	addr, err := s.Address(ctx)
	if err != nil {
		return nil, err
	}

	headers, err := s.headers(ctx)
	if err != nil {
		return nil, err
	}

	req := identitySignRequest{Params: identitySignParams{
		Signer: addr.Hex(),
		Digest: hexutil.Encode(accounts.TextHash(message)),
	}}

	var resp identitySignResponse
	if err := util.DoJSON(ctx, s.http, http.MethodPost, s.url+"/Sign", headers, req, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to sign with identity instrument")
	}

	sig, err := hexutil.Decode(resp.Signature)
	if err != nil {
		return nil, errors.Wrap(err, "identity instrument returned invalid signature")
	}

	if len(sig) != signatureLength {
		return nil, errors.Errorf("identity instrument returned %d byte signature", len(sig))
	}

	return normaliseV(sig), nil
}

func (s *IdentitySigner) headers(ctx context.Context) (map[string]string, error) {
	user, err := s.users.GetUser(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "identity signer requires a logged in user")
	}

	token := user.IDToken
	if token == "" {
		token = user.AccessToken
	}
	if token == "" {
		return nil, errors.New("identity signer requires a token")
	}

	return map[string]string{"Authorization": "Bearer " + token}, nil
}
