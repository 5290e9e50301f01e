package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/zeebo/assert"
)

func TestGeneralConfigLoad(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("HTTP_RATE_LIMIT_RPS", "5")
	t.Setenv("HTTP_RATE_LIMIT_BURST", "8")

	gc := &GeneralConfig{}
	assert.NoError(t, gc.Load())
	assert.False(t, gc.IsDev())
	assert.Equal(t, gc.RateLimitRPS, 5)
	assert.Equal(t, gc.RateLimitBurst, 8)

	level, err := gc.Level()
	assert.NoError(t, err)
	assert.Equal(t, level, zerolog.DebugLevel)
}

func TestGeneralConfigValidate(t *testing.T) {
	valid := func() *GeneralConfig {
		return &GeneralConfig{HTTPPort: "8080", HTTPHost: "localhost", Env: DevEnv, RateLimitRPS: 10, RateLimitBurst: 20}
	}
	assert.NoError(t, valid().Validate())
	assert.True(t, valid().IsDev())

	disabled := valid()
	disabled.RateLimitRPS, disabled.RateLimitBurst = 0, 0
	assert.NoError(t, disabled.Validate())

	noBurst := valid()
	noBurst.RateLimitBurst = 0
	assert.Error(t, noBurst.Validate())

	badLevel := valid()
	badLevel.LogLevel = "loud"
	assert.Error(t, badLevel.Validate())

	noPort := valid()
	noPort.HTTPPort = ""
	assert.Error(t, noPort.Validate())
}
