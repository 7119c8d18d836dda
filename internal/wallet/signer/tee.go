package signer

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/auth"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/pkg/errors"
)

const teeChain = "ETH"

// TEESigner delegates key custody to a remote TEE wallet service authenticated with the user's ID token.
type TEESigner struct {
	url    string
	apiKey string
	users  auth.Manager
	http   *http.Client

	mu      sync.Mutex
	address *common.Address
}

func NewTEESigner(url, apiKey string, users auth.Manager, client *http.Client) *TEESigner {
	if client == nil {
		client = util.NewHTTPClient()
	}

	return &TEESigner{
		url:    strings.TrimRight(url, "/"),
		apiKey: apiKey,
		users:  users,
		http:   client,
	}
}

type teeWalletResponse struct {
	PublicAddress string `json:"public_address"`
}

type teeSignRequest struct {
	MessageBase64 string `json:"message_base64"`
	Chain         string `json:"chain"`
}

type teeSignResponse struct {
	Signature string `json:"signature"`
}

// Address creates (or fetches) the user's TEE wallet. The result is cached for the signer's lifetime.
func (s *TEESigner) Address(ctx context.Context) (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.address != nil {
		return *s.address, nil
	}

	headers, err := s.headers(ctx)
	if err != nil {
		return common.Address{}, err
	}

	var resp teeWalletResponse
	if err := util.DoJSON(ctx, s.http, http.MethodPost, s.url+"/v1/wallet", headers, map[string]string{"chain": teeChain}, &resp); err != nil {
		return common.Address{}, errors.Wrap(err, "failed to create TEE wallet")
	}

	if !common.IsHexAddress(resp.PublicAddress) {
		return common.Address{}, errors.Errorf("TEE wallet returned invalid address %q", resp.PublicAddress)
	}

	addr := common.HexToAddress(resp.PublicAddress)
	s.address = &addr

	return addr, nil
}

func (s *TEESigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	headers, err := s.headers(ctx)
	if err != nil {
		return nil, err
	}

	req := teeSignRequest{
		MessageBase64: base64.StdEncoding.EncodeToString(message),
		Chain:         teeChain,
	}

	var resp teeSignResponse
	if err := util.DoJSON(ctx, s.http, http.MethodPost, s.url+"/v1/wallet/personal-sign", headers, req, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to sign with TEE wallet")
	}

	sig, err := hexutil.Decode(resp.Signature)
	if err != nil {
		return nil, errors.Wrap(err, "TEE wallet returned invalid signature")
	}

	if len(sig) != signatureLength {
		return nil, errors.Errorf("TEE wallet returned %d byte signature", len(sig))
	}

	return normaliseV(sig), nil
}

func (s *TEESigner) headers(ctx context.Context) (map[string]string, error) {
	user, err := s.users.GetUser(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "TEE signer requires a logged in user")
	}

	if user.IDToken == "" {
		return nil, errors.New("TEE signer requires an ID token")
	}

	headers := map[string]string{"Authorization": "Bearer " + user.IDToken}
	if s.apiKey != "" {
		headers["X-Magic-API-Key"] = s.apiKey
	}

	return headers, nil
}
