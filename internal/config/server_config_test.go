package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/immutable/ts-immutable-sdk-sub011/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintServiceEnv(t *testing.T) {
	config := config.DefaultServiceConfigFromEnv()
	_, err := json.MarshalIndent(config, "", "  ")

	if err != nil {
		t.Fatal(err)
	}
}

func TestDefaultServiceConfigFromEnv(t *testing.T) {
	t.Setenv("PASSPORT_CHAIN_ID", "13473")
	t.Setenv("PASSPORT_RPC_URLS", "https://rpc.testnet.immutable.com,https://backup.example")
	t.Setenv("PASSPORT_POLL_INTERVAL", "10ms")
	t.Setenv("PASSPORT_SIGNER_KIND", "tee")

	cfg := config.DefaultServiceConfigFromEnv()
	assert.Equal(t, int64(13473), cfg.Passport.ChainID)
	assert.Equal(t, []string{"https://rpc.testnet.immutable.com", "https://backup.example"}, cfg.Passport.RPCURLs)
	assert.Equal(t, 10*time.Millisecond, cfg.Passport.PollInterval)
	assert.Equal(t, 30, cfg.Passport.PollAttempts)
	assert.Equal(t, config.SignerKindTEE, cfg.Signer.Kind)
}

func TestLoadFileOverlaysEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "passport.yaml")
	content := []byte(`
passport:
  chain_id: 13473
  relayer_url: https://relayer.example
  poll_attempts: 5
logger:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg := config.DefaultServiceConfigFromEnv()
	require.NoError(t, config.LoadFile(path, &cfg))

	assert.Equal(t, int64(13473), cfg.Passport.ChainID)
	assert.Equal(t, "https://relayer.example", cfg.Passport.RelayerURL)
	assert.Equal(t, 5, cfg.Passport.PollAttempts)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, ":8080", cfg.Echo.ListenAddress)
}

func TestLoadFileMissing(t *testing.T) {
	cfg := config.DefaultServiceConfigFromEnv()
	assert.Error(t, config.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), &cfg))
}

func TestLoad(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultServiceConfigFromEnv(), cfg)

	path := filepath.Join(t.TempDir(), "passport.toml")
	require.NoError(t, os.WriteFile(path, []byte("[passport]\nclient_id = \"client\"\n"), 0o600))

	cfg, err = config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "client", cfg.Passport.ClientID)

	_, err = config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
