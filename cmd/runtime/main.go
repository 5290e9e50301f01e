package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/swap-engine/internal/common"
	"github.com/hxuan190/swap-engine/internal/config"
	"github.com/hxuan190/swap-engine/internal/engine"
	"github.com/hxuan190/swap-engine/internal/http"
)

// @title Swap Engine API
// @version 1.0-beta
// @description Quotes trades through the Trading API and turns an accepted trade into the
// @description ordered signatures and transactions a wallet must execute.
// @description
// @description ## - Features
// @description - **Definitive and indicative quotes**: classic, UniswapX, bridge and wrap routing
// @description - **Sessions**: debounced input, background polling and superseded-result protection
// @description - **Trade acceptance**: price moves beyond tolerance must be accepted before swapping
// @description - **Transaction steps**: approvals, Permit2 signatures, swaps and async swap builds
// @description - **Gas**: active strategy estimates with shadow strategies for comparison
// @description
// @description ## - Usage Tips
// @description - Amounts are base units of the exact side (wei for ETH, 1 USDC = 1,000,000)
// @description - Slippage is a percentage; omit it for auto slippage
// @description - Signature steps expire; a timed out step needs a fresh quote
// @description - **Rate Limit**: 10 requests/second per wallet (burst: 20)
// @description
// @BasePath /
// @schemes https http
// @tag.name quote
// @tag.description Definitive and indicative trade quotes
// @tag.name session
// @tag.description Stateful swap form with acceptance tracking
// @tag.name steps
// @tag.description Transaction step execution
// @tag.name settings
// @tag.description Per-wallet swap settings

func main() {
	// load env
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file, using process environment")
	}

	general := &config.GeneralConfig{}
	if err := general.Load(); err != nil {
		log.Error().Err(err).Msg("invalid general config")
		return
	}
	if level, err := general.Level(); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	common.InitRuntime()

	// di container config
	conf := container.NewConf(
		general,
		&config.RPCConfig{},
		&config.TradingAPIConfig{},
		&config.SwapConfig{},
		&config.StorageConfig{},
	)

	// di container
	dic, err := container.New(
		// config
		conf,

		// services
		&engine.Engine{},

		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	// Run waits for SIGINT/SIGTERM
	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	// Run doesn't call Stop(), we must do it manually
	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
