package signer_test

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/auth"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/config"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/test"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/keystore"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/signer"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hardhatMnemonic = "test test test test test test test test test test test junk"
	hardhatKey      = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	hardhatAddress  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func recoverSigner(t *testing.T, hash []byte, sig []byte) common.Address {
	t.Helper()

	require.Len(t, sig, 65)
	require.Contains(t, []byte{27, 28}, sig[64])

	raw := append([]byte{}, sig...)
	raw[64] -= 27

	pub, err := crypto.SigToPub(hash, raw)
	require.NoError(t, err)

	return crypto.PubkeyToAddress(*pub)
}

func loggedInUsers(t *testing.T) auth.Manager {
	t.Helper()

	users := auth.NewStaticManager(config.Auth{AccessToken: "access", IDToken: "id-token", Subject: "email|1"})
	_, err := users.Login(context.Background())
	require.NoError(t, err)

	return users
}

func TestLocalSignerSignMessage(t *testing.T) {
	ctx := context.Background()

	s, err := signer.NewLocalSigner(hardhatKey)
	require.NoError(t, err)

	addr, err := s.Address(ctx)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(hardhatAddress), addr)

	msg := []byte("Only sign this message from Immutable Passport")
	sig, err := s.SignMessage(ctx, msg)
	require.NoError(t, err)

	assert.Equal(t, addr, recoverSigner(t, accounts.TextHash(msg), sig))
}

func TestLocalSignerSignTypedData(t *testing.T) {
	ctx := context.Background()

	s, err := signer.NewLocalSigner(hardhatKey)
	require.NoError(t, err)

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"Mail": {
				{Name: "contents", Type: "string"},
			},
		},
		PrimaryType: "Mail",
		Domain: apitypes.TypedDataDomain{
			Name:    "Test",
			ChainId: math.NewHexOrDecimal256(13371),
		},
		Message: apitypes.TypedDataMessage{"contents": "hello"},
	}

	sig, err := s.SignTypedData(ctx, typedData)
	require.NoError(t, err)

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress(hardhatAddress), recoverSigner(t, hash, sig))
}

func TestLocalSignerRejectsInvalidKey(t *testing.T) {
	_, err := signer.NewLocalSigner("0x1234")
	require.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cfg     config.Signer
		wantErr bool
	}{
		{name: "private key", cfg: config.Signer{Kind: config.SignerKindLocal, PrivateKey: hardhatKey}},
		{name: "mnemonic", cfg: config.Signer{Kind: config.SignerKindLocal, Mnemonic: hardhatMnemonic}},
		{name: "mnemonic with explicit path", cfg: config.Signer{Mnemonic: hardhatMnemonic, DerivationPath: "m/44'/60'/0'/0/0"}},
		{name: "nothing configured", cfg: config.Signer{Kind: config.SignerKindLocal}, wantErr: true},
		{name: "tee without url", cfg: config.Signer{Kind: config.SignerKindTEE}, wantErr: true},
		{name: "identity without url", cfg: config.Signer{Kind: config.SignerKindIdentity}, wantErr: true},
		{name: "unknown kind", cfg: config.Signer{Kind: "hsm"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := signer.New(ctx, tt.cfg, auth.NewStaticManager(config.Auth{}))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			addr, err := s.Address(ctx)
			require.NoError(t, err)
			assert.Equal(t, common.HexToAddress(hardhatAddress), addr)
		})
	}
}

func TestNewFromKeystore(t *testing.T) {
	ctx := context.Background()
	ks := keystore.NewService(keystore.LightScryptParams())
	dir := t.TempDir()
	secondAccount := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	create := func(name string, secret keystore.Secret, address common.Address) string {
		path := filepath.Join(dir, name)
		_, err := ks.CreateKeystore(path, secret, address, "secret")
		require.NoError(t, err)

		return path
	}

	mnemonicPath := create("mnemonic.json", keystore.Secret{
		Kind:           keystore.KindMnemonic,
		Value:          hardhatMnemonic,
		DerivationPath: "m/44'/60'/0'/0/1",
	}, secondAccount)
	keyPath := create("key.json", keystore.Secret{Kind: keystore.KindPrivateKey, Value: hardhatKey}, common.HexToAddress(hardhatAddress))
	mismatchPath := create("mismatch.json", keystore.Secret{Kind: keystore.KindPrivateKey, Value: hardhatKey}, secondAccount)

	tests := []struct {
		name     string
		cfg      config.Signer
		expected common.Address
		wantErr  bool
	}{
		{
			name:     "mnemonic uses the stored path",
			cfg:      config.Signer{KeystorePath: mnemonicPath, KeystorePassword: "secret", DerivationPath: "m/44'/60'/0'/0/0"},
			expected: secondAccount,
		},
		{
			name:     "private key",
			cfg:      config.Signer{KeystorePath: keyPath, KeystorePassword: "secret"},
			expected: common.HexToAddress(hardhatAddress),
		},
		{name: "wrong password", cfg: config.Signer{KeystorePath: keyPath, KeystorePassword: "wrong"}, wantErr: true},
		{name: "recorded address differs", cfg: config.Signer{KeystorePath: mismatchPath, KeystorePassword: "secret"}, wantErr: true},
		{name: "missing file", cfg: config.Signer{KeystorePath: filepath.Join(dir, "missing.json")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := signer.New(ctx, tt.cfg, auth.NewStaticManager(config.Auth{}))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			addr, err := s.Address(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, addr)
		})
	}
}

func TestTEESigner(t *testing.T) {
	ctx := context.Background()

	key, err := crypto.HexToECDSA(hardhatKey[2:])
	require.NoError(t, err)

	server := test.NewTestRESTServer(t)
	server.Echo.POST("/v1/wallet", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"public_address": hardhatAddress})
	})
	server.Echo.POST("/v1/wallet/personal-sign", func(c echo.Context) error {
		var body struct {
			MessageBase64 string `json:"message_base64"`
		}
		if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
			return err
		}
		msg, err := base64.StdEncoding.DecodeString(body.MessageBase64)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]string{"signature": signRaw(t, key, msg)})
	})

	s := signer.NewTEESigner(server.URL, "api-key", loggedInUsers(t), nil)

	addr, err := s.Address(ctx)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(hardhatAddress), addr)

	_, err = s.Address(ctx)
	require.NoError(t, err)
	assert.Len(t, server.Calls("/v1/wallet"), 1)

	msg := []byte("hello")
	sig, err := s.SignMessage(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, addr, recoverSigner(t, accounts.TextHash(msg), sig))

	calls := server.Calls("/v1/wallet/personal-sign")
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer id-token", calls[0].Authorization)
}

func TestTEESignerRequiresUser(t *testing.T) {
	server := test.NewTestRESTServer(t)

	s := signer.NewTEESigner(server.URL, "", auth.NewStaticManager(config.Auth{}), nil)

	_, err := s.Address(context.Background())
	require.Error(t, err)
	assert.Empty(t, server.Calls(""))
}

func TestIdentitySigner(t *testing.T) {
	ctx := context.Background()

	key, err := crypto.HexToECDSA(hardhatKey[2:])
	require.NoError(t, err)

	server := test.NewTestRESTServer(t)
	server.Echo.POST("/rpc/IdentityInstrument/GetAddress", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"address": hardhatAddress})
	})
	server.Echo.POST("/rpc/IdentityInstrument/Sign", func(c echo.Context) error {
		var body struct {
			Params struct {
				Signer string `json:"signer"`
				Digest string `json:"digest"`
			} `json:"params"`
		}
		if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
			return err
		}
		digest, err := hexutil.Decode(body.Params.Digest)
		if err != nil {
			return err
		}
		sig, err := crypto.Sign(digest, key)
		if err != nil {
			return err
		}
		// recovery id left at 0/1 on purpose
		return c.JSON(http.StatusOK, map[string]string{"signature": hexutil.Encode(sig)})
	})

	s := signer.NewIdentitySigner(server.URL, loggedInUsers(t), nil)

	msg := []byte("identity")
	sig, err := s.SignMessage(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(hardhatAddress), recoverSigner(t, accounts.TextHash(msg), sig))

	calls := server.Calls("/rpc/IdentityInstrument/Sign")
	require.Len(t, calls, 1)
	assert.Contains(t, string(calls[0].Body), hardhatAddress)
}

func signRaw(t *testing.T, key *ecdsa.PrivateKey, msg []byte) string {
	t.Helper()

	sig, err := crypto.Sign(accounts.TextHash(msg), key)
	require.NoError(t, err)
	sig[64] += 27

	return hexutil.Encode(sig)
}
