package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Credential environment variables override the file values.
const (
	EnvAPIKey    = "BINANCE_API_KEY"
	EnvAPISecret = "BINANCE_API_SECRET"

	EnvTelegramToken = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChat  = "TELEGRAM_CHAT_ID"
)

// Load merges path with its includes, applies defaults for keys the files
// leave unset and validates the result.
func Load(path string) (*Config, error) {
	files, err := includeOrder(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range files {
		if err := mergeConfigFile(v, file); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
	}
	if err := validateSchema(v.AllSettings()); err != nil {
		return nil, err
	}
	// only keys present in the files count as explicitly set
	setKeys := make(keySet)
	for _, key := range v.AllKeys() {
		setKeys.mark(key)
	}
	_ = v.BindEnv("exchange.api_key", EnvAPIKey)
	_ = v.BindEnv("exchange.api_secret", EnvAPISecret)
	_ = v.BindEnv("notify.telegram_bot_token", EnvTelegramToken)
	_ = v.BindEnv("notify.telegram_chat_id", EnvTelegramChat)
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults(setKeys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	tmp := viper.New()
	tmp.SetConfigFile(path)
	if err := tmp.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(tmp.AllSettings())
}

// includeOrder lists path and everything it includes, depth first, so that
// each file is merged after the files it includes. Relative includes are
// resolved against the including file.
func includeOrder(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	var (
		order    []string
		done     = map[string]bool{}
		visiting = map[string]bool{}
		visit    func(file string) error
	)
	visit = func(file string) error {
		file = filepath.Clean(file)
		switch {
		case visiting[file]:
			return fmt.Errorf("include cycle detected: %s", file)
		case done[file]:
			return nil
		}
		visiting[file] = true
		tmp := viper.New()
		tmp.SetConfigFile(file)
		if err := tmp.ReadInConfig(); err != nil {
			return fmt.Errorf("parsing include failed (%s): %w", file, err)
		}
		for _, inc := range tmp.GetStringSlice("include") {
			if inc = strings.TrimSpace(inc); inc == "" {
				continue
			}
			if !filepath.IsAbs(inc) {
				inc = filepath.Join(filepath.Dir(file), inc)
			}
			if err := visit(inc); err != nil {
				return err
			}
		}
		visiting[file] = false
		done[file] = true
		order = append(order, file)
		return nil
	}
	if err := visit(root); err != nil {
		return nil, err
	}
	return order, nil
}
