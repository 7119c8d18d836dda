package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/api"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/api/router"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/config"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const (
	TestChainID        = int64(13371)
	TestPassportDomain = "https://passport.example.com"
	// TestSignerKey is the first well known hardhat development account.
	TestSignerKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	TestSignerAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	TestWalletAddress = "0x7EF14B8b6a4e4D28b02FBbcF54D6F3C5aA6cEc2C"
)

// MockClockStart is the time the mock clock of a test server starts at.
var MockClockStart = time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC)

// ServerMocks are the upstream services a test server talks to.
type ServerMocks struct {
	Node    *RPCServer
	Relayer *RPCServer
	API     *RESTServer
}

// NewTestServerMocks starts a chain node, a relayer and a Passport API answering the calls of a wallet whose
// contract is not deployed yet and whose guardian never asks for confirmation.
func NewTestServerMocks(t *testing.T) *ServerMocks {
	t.Helper()

	m := &ServerMocks{
		Node:    NewTestRPCServer(t),
		Relayer: NewTestRPCServer(t),
		API:     NewTestRESTServer(t),
	}

	m.Node.HandleResult("eth_chainId", fmt.Sprintf("0x%x", TestChainID))
	m.Node.HandleResult("eth_call", "0x")
	m.Node.HandleResult("eth_blockNumber", "0x10")

	m.API.Echo.GET("/v1/chains", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"result": []map[string]string{
			{"id": fmt.Sprintf("eip155:%d", TestChainID), "name": "imtbl-zkevm-testnet"},
		}})
	})
	m.API.Echo.POST("/v2/passport/:chain/counterfactual-address", func(c echo.Context) error {
		return c.JSON(http.StatusCreated, map[string]string{"counterfactual_address": TestWalletAddress})
	})

	allow := func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"confirmationRequired": false})
	}
	m.API.Echo.POST("/v1/transactions/evm/evaluate", allow)
	m.API.Echo.POST("/v1/erc191-messages/evaluate", allow)
	m.API.Echo.POST("/v1/eip712-messages/evaluate", allow)

	return m
}

// Config returns a server config pointing at the mocks, signing with TestSignerKey.
func (m *ServerMocks) Config() config.Server {
	cfg := config.DefaultServiceConfigFromEnv()

	cfg.Logger.PrettyPrintConsole = false
	cfg.Metrics.Enabled = true

	cfg.Passport.Domain = TestPassportDomain
	cfg.Passport.ChainID = TestChainID
	cfg.Passport.RPCURLs = []string{m.Node.URL}
	cfg.Passport.RelayerURL = m.Relayer.URL
	cfg.Passport.APIURL = m.API.URL
	cfg.Passport.ChainsFile = ""
	cfg.Passport.AutoLogin = true
	cfg.Passport.ClientID = ""
	cfg.Passport.PollInterval = time.Millisecond
	cfg.Passport.ConfirmationPollInterval = 5 * time.Millisecond
	cfg.Passport.ConfirmationConnectTimeout = time.Minute

	cfg.Signer = config.Signer{
		Kind:       config.SignerKindLocal,
		PrivateKey: TestSignerKey,
	}

	cfg.Auth = config.Auth{
		AccessToken: "access-token",
		IDToken:     "id-token",
		Subject:     "email|test",
	}

	return cfg
}

// WithTestServer runs closure against a fully initialized server backed by fresh mocks.
func WithTestServer(t *testing.T, closure func(s *api.Server)) {
	t.Helper()

	WithTestServerConfigurable(t, NewTestServerMocks(t).Config(), closure)
}

// WithTestServerConfigurable runs closure against a fully initialized server using config.
func WithTestServerConfigurable(t *testing.T, config config.Server, closure func(s *api.Server)) {
	t.Helper()

	s := NewTestServer(t, config)

	closure(s)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.Empty(t, s.Shutdown(ctx))
}

// NewTestServer initializes a server without starting it; requests go through PerformRequest or s.Echo.
func NewTestServer(t *testing.T, config config.Server) *api.Server {
	t.Helper()

	s := api.NewServer(config)
	s.Clock = time2.NewMockClock(MockClockStart)

	require.NoError(t, s.InitProvider(context.Background()))
	require.NoError(t, router.Init(s))

	return s
}

// SetMockClock moves the mock clock of a server created by NewTestServer.
func SetMockClock(t *testing.T, s *api.Server, now time.Time) {
	t.Helper()

	mock, ok := s.Clock.(*time2.MockClock)
	require.True(t, ok, "server clock is not a mock clock")

	mock.Set(now)
}

// PerformRequest serves one request against s. A non nil body is sent as JSON.
func PerformRequest(t *testing.T, s *api.Server, method string, path string, body any, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	for k, v := range headers {
		req.Header[k] = v
	}
	if body != nil && req.Header.Get(echo.HeaderContentType) == "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, req)

	return res
}
