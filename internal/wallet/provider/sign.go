package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/rpcerr"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/sequence"
	"golang.org/x/sync/errgroup"
)

const eip712DomainType = "EIP712Domain"

var (
	typedDataRequiredKeys = []string{"types", "domain", "primaryType", "message"}

	eip712DomainFields = []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
		{Name: "salt", Type: "bytes32"},
	}
)

func (p *Provider) personalSign(ctx context.Context, c *clients, raw json.RawMessage) (string, error) {
	sess, err := p.ensureSigningReady(ctx)
	if err != nil {
		return "", err
	}

	params, err := parseParams(raw)
	if err != nil {
		return "", err
	}

	var message, address string
	if err := param(params, 0, "message", &message); err != nil {
		return "", err
	}
	if err := param(params, 1, "address", &address); err != nil {
		return "", err
	}

	if !strings.EqualFold(address, sess.wallet.Hex()) {
		return "", rpcerr.InvalidParams("personal_sign requires the address of the logged in wallet")
	}

	payload := decodeMessage(message)

	if err := c.guardian.EvaluateERC191Message(ctx, sess.user, payload, sess.wallet); err != nil {
		return "", err
	}

	digest := sequence.SubDigestHash(c.chain.BigChainID(), sess.wallet, sequence.ERC191Digest([]byte(payload)))

	return p.signAndPack(ctx, sess, digest, func(ctx context.Context) (string, error) {
		return c.relayer.ImSign(ctx, sess.user, sess.wallet, payload)
	})
}

func (p *Provider) signTypedData(ctx context.Context, c *clients, raw json.RawMessage) (string, error) {
	sess, err := p.ensureSigningReady(ctx)
	if err != nil {
		return "", err
	}

	params, err := parseParams(raw)
	if err != nil {
		return "", err
	}

	var address string
	if err := param(params, 0, "address", &address); err != nil {
		return "", err
	}
	if len(params) < 2 { //nolint:mnd
		return "", rpcerr.InvalidParams("missing typed data parameter")
	}

	if !strings.EqualFold(address, sess.wallet.Hex()) {
		return "", rpcerr.InvalidParams("eth_signTypedData_v4 requires the address of the logged in wallet")
	}

	payload, hash, err := parseTypedData(params[1], c.chain.ChainID)
	if err != nil {
		return "", err
	}

	if err := c.guardian.EvaluateEIP712Message(ctx, sess.user, payload, sess.wallet); err != nil {
		return "", err
	}

	digest := sequence.SubDigestHash(c.chain.BigChainID(), sess.wallet, hash)

	return p.signAndPack(ctx, sess, digest, func(ctx context.Context) (string, error) {
		return c.relayer.ImSignTypedData(ctx, sess.user, sess.wallet, payload)
	})
}

// signAndPack collects the EOA signature over digest, the relayer counter-signature and the EOA address
// concurrently and packs them.
func (p *Provider) signAndPack(ctx context.Context, sess *session, digest common.Hash, relayerSign func(context.Context) (string, error)) (string, error) {
	var (
		eoaSignature     []byte
		relayerSignature string
		eoa              common.Address
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		relayerSignature, err = relayerSign(gctx)
		return rpcerr.Wrap(err, rpcerr.CodeInternalError, "relayer signature failed")
	})
	g.Go(func() error {
		var err error
		eoaSignature, err = sess.signer.SignMessage(gctx, digest.Bytes())
		return err
	})
	g.Go(func() error {
		var err error
		eoa, err = sess.signer.Address(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return "", err
	}

	return sequence.PackSignatures(eoaSignature, eoa.Hex(), relayerSignature)
}

// decodeMessage turns a hex encoded personal_sign message into its text when it is valid UTF-8.
// 32 byte payloads are hashes and stay hex.
func decodeMessage(message string) string {
	if !strings.HasPrefix(message, "0x") {
		return message
	}

	data, err := hexutil.Decode(message)
	if err != nil || len(data) == common.HashLength || !utf8.Valid(data) {
		return message
	}

	return string(data)
}

// parseTypedData accepts typed data as an object or a JSON string. It returns the payload forwarded to the
// guardian and relayer together with its EIP-712 hash.
func parseTypedData(raw json.RawMessage, chainID int64) (json.RawMessage, common.Hash, error) {
	payload := bytes.TrimSpace(raw)

	if len(payload) > 0 && payload[0] == '"' {
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, common.Hash{}, rpcerr.InvalidParams("invalid typed data string")
		}
		payload = []byte(s)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, common.Hash{}, rpcerr.InvalidParams("typed data must be a JSON object")
	}

	var missing []string
	for _, key := range typedDataRequiredKeys {
		if v, ok := fields[key]; !ok || string(v) == "null" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, common.Hash{}, rpcerr.Newf(rpcerr.CodeInvalidParams,
			"Invalid typed data argument. The following properties are required: %s", strings.Join(missing, ", "))
	}

	if err := checkDomainChainID(fields["domain"], chainID); err != nil {
		return nil, common.Hash{}, err
	}

	var typedData apitypes.TypedData
	if err := json.Unmarshal(payload, &typedData); err != nil {
		return nil, common.Hash{}, rpcerr.Newf(rpcerr.CodeInvalidParams, "invalid typed data: %v", err)
	}

	if _, ok := typedData.Types[eip712DomainType]; !ok {
		typedData.Types[eip712DomainType] = domainType(typedData.Domain)
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, common.Hash{}, rpcerr.Newf(rpcerr.CodeInvalidParams, "invalid typed data: %v", err)
	}

	return payload, common.BytesToHash(hash), nil
}

// domainType derives the EIP712Domain type from the domain fields that are set, in canonical order.
func domainType(domain apitypes.TypedDataDomain) []apitypes.Type {
	present := domain.Map()

	fields := make([]apitypes.Type, 0, len(eip712DomainFields))
	for _, field := range eip712DomainFields {
		if _, ok := present[field.Name]; ok {
			fields = append(fields, field)
		}
	}

	return fields
}

func checkDomainChainID(rawDomain json.RawMessage, chainID int64) error {
	var domain struct {
		ChainID json.RawMessage `json:"chainId"`
	}
	if err := json.Unmarshal(rawDomain, &domain); err != nil {
		return rpcerr.InvalidParams("typed data domain must be an object")
	}

	if len(domain.ChainID) == 0 || string(domain.ChainID) == "null" {
		return nil
	}

	value := string(domain.ChainID)
	var s string
	if err := json.Unmarshal(domain.ChainID, &s); err == nil {
		value = s
	}

	provided, err := parseChainID(value)
	if err != nil {
		return err
	}

	if provided != chainID {
		return rpcerr.InvalidParams(fmt.Sprintf("Invalid chainId, expected %d", chainID))
	}

	return nil
}
