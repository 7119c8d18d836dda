package common_test

import (
	"net/http"
	"testing"

	"github.com/immutable/ts-immutable-sdk-sub011/internal/api"
	"github.com/immutable/ts-immutable-sdk-sub011/internal/test"
	"github.com/stretchr/testify/require"
)

func TestGetHealthy(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/-/healthy", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)
		require.Equal(t, "Healthy.", res.Body.String())
	})
}

func TestGetHealthyWrongChain(t *testing.T) {
	mocks := test.NewTestServerMocks(t)
	mocks.Node.HandleResult("eth_chainId", "0x1")

	test.WithTestServerConfigurable(t, mocks.Config(), func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/-/healthy", nil, nil)
		require.Equal(t, 521, res.Result().StatusCode)
		require.Equal(t, "Unhealthy.", res.Body.String())
	})
}
