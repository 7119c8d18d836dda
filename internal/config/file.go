package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// LoadFile overlays the settings found in the YAML/TOML/JSON file at path onto cfg.
// Keys missing from the file keep their current (environment derived) values.
func LoadFile(path string, cfg *Server) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return errors.Wrapf(err, "failed to decode config file %s", path)
	}

	return nil
}

// Load returns the environment derived config, overlaid with the file at path when path is set.
func Load(path string) (Server, error) {
	cfg := DefaultServiceConfigFromEnv()
	if path == "" {
		return cfg, nil
	}

	if err := LoadFile(path, &cfg); err != nil {
		return Server{}, err
	}

	return cfg, nil
}
