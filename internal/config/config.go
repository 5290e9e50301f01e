package config

import (
	"strings"

	"github.com/andrew-solarstorm/go-packages/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type ServerEnv = string

var (
	DevEnv     ServerEnv = "dev"
	StagingEnv ServerEnv = "staging"
	ProdEnv    ServerEnv = "prod"
)

const (
	GENERAL_CONFIG_KEY     = "general-config"
	RPC_CONFIG_KEY         = "rpc-config"
	TRADING_API_CONFIG_KEY = "trading-api-config"
	SWAP_CONFIG_KEY        = "swap-config"
	STORAGE_CONFIG_KEY     = "storage-config"
)

type GeneralConfig struct {
	HTTPPort string
	HTTPHost string
	Env      string
	LogLevel string

	// per-client token bucket; RateLimitRPS 0 disables limiting
	RateLimitRPS   int
	RateLimitBurst int
}

func (gc *GeneralConfig) Key() string {
	return GENERAL_CONFIG_KEY
}

func (gc *GeneralConfig) Load() error {
	gc.HTTPPort = common.GetEnvOrDefault("HTTP_PORT", "8080")
	gc.HTTPHost = common.GetEnvOrDefault("HTTP_HOST", "localhost")
	gc.Env = common.GetEnvOrDefault("ENV", "dev")
	gc.LogLevel = common.GetEnvOrDefault("LOG_LEVEL", "INFO")
	gc.RateLimitRPS = common.GetEnvOrDefaultInt("HTTP_RATE_LIMIT_RPS", 10)
	gc.RateLimitBurst = common.GetEnvOrDefaultInt("HTTP_RATE_LIMIT_BURST", 20)
	return gc.Validate()
}

func (gc *GeneralConfig) Validate() error {
	if gc.HTTPPort == "" || gc.HTTPHost == "" || gc.Env == "" {
		return errors.New("invalid server config")
	}
	if _, err := gc.Level(); err != nil {
		return errors.Wrap(err, "invalid server config")
	}
	if gc.RateLimitRPS < 0 || (gc.RateLimitRPS > 0 && gc.RateLimitBurst < 1) {
		return errors.New("invalid server config: rate limit")
	}
	return nil
}

// Level parses LogLevel case-insensitively. Empty means info.
func (gc *GeneralConfig) Level() (zerolog.Level, error) {
	if gc.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(gc.LogLevel))
}

func (gc *GeneralConfig) IsDev() bool {
	return gc.Env == DevEnv
}
