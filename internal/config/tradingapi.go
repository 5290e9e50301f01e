package config

import (
	"errors"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type TradingAPIConfig struct {
	BaseURL                string
	APIKey                 string
	Timeout                time.Duration
	UniversalRouterVersion string
}

func (c *TradingAPIConfig) Key() string {
	return TRADING_API_CONFIG_KEY
}

func (c *TradingAPIConfig) Load() error {
	c.BaseURL = common.GetEnvOrDefault("TRADING_API_URL", "https://trading-api-labs.interface.gateway.uniswap.org")
	c.APIKey = common.GetEnvOrDefault("TRADING_API_KEY", "")
	c.Timeout = time.Duration(common.GetEnvOrDefaultInt("TRADING_API_TIMEOUT_MS", 10000)) * time.Millisecond
	c.UniversalRouterVersion = common.GetEnvOrDefault("UNIVERSAL_ROUTER_VERSION", "2.0")
	return c.Validate()
}

func (c *TradingAPIConfig) Validate() error {
	if c.BaseURL == "" || c.Timeout <= 0 {
		return errors.New("invalid trading api config")
	}
	return nil
}
