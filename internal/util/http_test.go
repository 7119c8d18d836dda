package util_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/immutable/ts-immutable-sdk-sub011/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body["fail"] == "yes" {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte(`{"message":"nope"}`))
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]string{"echo": body["value"]})
	}))
	defer srv.Close()

	headers := map[string]string{"Authorization": "Bearer abc"}

	var out struct {
		Echo string `json:"echo"`
	}
	err := util.DoJSON(context.Background(), srv.Client(), http.MethodPost, srv.URL, headers, map[string]string{"value": "hi"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Echo)

	err = util.DoJSON(context.Background(), srv.Client(), http.MethodPost, srv.URL, headers, map[string]string{"fail": "yes"}, &out)
	require.Error(t, err)
	assert.True(t, util.IsHTTPStatus(err, http.StatusTeapot))
	assert.Contains(t, err.Error(), "nope")
}
