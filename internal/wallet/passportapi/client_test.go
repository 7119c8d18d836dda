package passportapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/auth"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/test"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/wallet/passportapi"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = &auth.User{AccessToken: "token", Profile: auth.Profile{Sub: "email|1"}}

func TestChainName(t *testing.T) {
	test.WithTestRESTServer(t, func(s *test.RESTServer) {
		s.Echo.GET("/v1/chains", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]any{"result": []passportapi.Chain{
				{ID: "eip155:1", Name: "ethereum"},
				{ID: "eip155:13371", Name: "imtbl-zkevm-mainnet"},
			}})
		})

		client := passportapi.NewClient(passportapi.Config{APIURL: s.URL})
		ctx := context.Background()

		name, err := client.ChainName(ctx, 13371)
		require.NoError(t, err)
		assert.Equal(t, "imtbl-zkevm-mainnet", name)

		_, err = client.ChainName(ctx, 13371)
		require.NoError(t, err)
		assert.Len(t, s.Calls("/v1/chains"), 1)

		_, err = client.ChainName(ctx, 5)
		require.ErrorIs(t, err, passportapi.ErrChainNameNotFound)
	})
}

func TestCreateCounterfactualAddress(t *testing.T) {
	eoa := common.HexToAddress("0x00000000000000000000000000000000000000e0")
	wallet := "0x7EF14B8b6a4e4D28b02FBbcF54D6F3C5aA6cEc2C"

	test.WithTestRESTServer(t, func(s *test.RESTServer) {
		s.Echo.POST("/v2/passport/:chain/counterfactual-address", func(c echo.Context) error {
			return c.JSON(http.StatusCreated, map[string]string{"counterfactual_address": wallet})
		})

		client := passportapi.NewClient(passportapi.Config{APIURL: s.URL})
		ctx := context.Background()

		addr, err := client.CreateCounterfactualAddress(ctx, testUser, "imtbl-zkevm-testnet", eoa, "0xsig")
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(wallet), addr)

		again, err := client.CreateCounterfactualAddress(ctx, testUser, "imtbl-zkevm-testnet", eoa, "0xsig")
		require.NoError(t, err)
		assert.Equal(t, addr, again)

		calls := s.Calls("/v2/passport/imtbl-zkevm-testnet/counterfactual-address")
		require.Len(t, calls, 1)
		assert.Equal(t, "Bearer token", calls[0].Authorization)

		var body map[string]string
		require.NoError(t, json.Unmarshal(calls[0].Body, &body))
		assert.Equal(t, eoa.Hex(), body["ethereum_address"])
		assert.Equal(t, "0xsig", body["ethereum_signature"])
	})
}

func TestCreateCounterfactualAddressRequiresToken(t *testing.T) {
	test.WithTestRESTServer(t, func(s *test.RESTServer) {
		client := passportapi.NewClient(passportapi.Config{APIURL: s.URL})

		_, err := client.CreateCounterfactualAddress(context.Background(), &auth.User{}, "chain", common.Address{}, "0x")
		require.Error(t, err)
		assert.Empty(t, s.Calls(""))
	})
}

func TestCheckSessionActivity(t *testing.T) {
	test.WithTestRESTServer(t, func(s *test.RESTServer) {
		var notDue atomic.Bool
		s.Echo.GET("/v1/sdk/session-activity/check", func(c echo.Context) error {
			if notDue.Load() {
				return c.NoContent(http.StatusNotFound)
			}
			return c.JSON(http.StatusOK, passportapi.SessionActivity{
				ContractAddress: "0x0000000000000000000000000000000000000abc",
				FunctionName:    "logActivity",
				Delay:           10,
			})
		})

		client := passportapi.NewClient(passportapi.Config{APIURL: s.URL})
		ctx := context.Background()
		q := passportapi.SessionActivityQuery{ClientID: "client", Wallet: "0xwallet", CheckCount: 2, SendCount: 1}

		activity, err := client.CheckSessionActivity(ctx, testUser, q)
		require.NoError(t, err)
		require.True(t, activity.HasCall())
		assert.Equal(t, "logActivity", activity.FunctionName)
		assert.Equal(t, 10, activity.Delay)

		calls := s.Calls("/v1/sdk/session-activity/check")
		require.Len(t, calls, 1)
		assert.Equal(t, "checkCount=2&clientId=client&sendCount=1&wallet=0xwallet", calls[0].Query)

		notDue.Store(true)
		activity, err = client.CheckSessionActivity(ctx, testUser, q)
		require.NoError(t, err)
		assert.Nil(t, activity)
		assert.False(t, activity.HasCall())
	})
}
