package test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

// DecodeParam unmarshals raw into a value of type T, failing the test on error.
func DecodeParam[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(raw, &v))

	return v
}
