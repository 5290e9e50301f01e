package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
	"github.com/shopspring/decimal"
)

const (
	DefaultDebounce        = 250 * time.Millisecond
	DefaultL1PollInterval  = 12 * time.Second
	DefaultL2PollInterval  = 3 * time.Second
	DefaultQuoteTTL        = 60 * time.Second
	DefaultPollOverrides   = "324:20000"
	DefaultActiveGasPolicy = "general"
)

// DefaultAcceptanceTolerance is the silent re-accept threshold, in percent.
var DefaultAcceptanceTolerance = decimal.NewFromInt(1)

type SwapConfig struct {
	Debounce time.Duration
	// AcceptanceTolerance is a percentage, 1 means 1%.
	AcceptanceTolerance decimal.Decimal

	L1PollInterval time.Duration
	L2PollInterval time.Duration
	// PollOverrides take precedence over every other interval source.
	PollOverrides map[uint64]time.Duration
	// FastPollInterval is the experiment arm; zero disables it.
	FastPollInterval time.Duration
	QuoteTTL         time.Duration

	ActiveGasStrategy   string
	ShadowGasStrategies []string

	CanPresignPermit  bool
	RoutingPreference string
}

func (c *SwapConfig) Key() string {
	return SWAP_CONFIG_KEY
}

func (c *SwapConfig) Load() error {
	c.Debounce = time.Duration(common.GetEnvOrDefaultInt("SWAP_DEBOUNCE_MS", int(DefaultDebounce.Milliseconds()))) * time.Millisecond

	tol, err := decimal.NewFromString(common.GetEnvOrDefault("SWAP_ACCEPT_TOLERANCE_PCT", DefaultAcceptanceTolerance.String()))
	if err != nil {
		return fmt.Errorf("SWAP_ACCEPT_TOLERANCE_PCT: %w", err)
	}
	c.AcceptanceTolerance = tol

	c.L1PollInterval = time.Duration(common.GetEnvOrDefaultInt("SWAP_L1_POLL_MS", int(DefaultL1PollInterval.Milliseconds()))) * time.Millisecond
	c.L2PollInterval = time.Duration(common.GetEnvOrDefaultInt("SWAP_L2_POLL_MS", int(DefaultL2PollInterval.Milliseconds()))) * time.Millisecond
	c.FastPollInterval = time.Duration(common.GetEnvOrDefaultInt("SWAP_FAST_POLL_MS", 0)) * time.Millisecond
	c.QuoteTTL = time.Duration(common.GetEnvOrDefaultInt("SWAP_QUOTE_TTL_MS", int(DefaultQuoteTTL.Milliseconds()))) * time.Millisecond

	overrides, err := parseChainMap(common.GetEnvOrDefault("SWAP_POLL_OVERRIDES", DefaultPollOverrides), func(v string) (time.Duration, error) {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return 0, err
		}
		return time.Duration(ms) * time.Millisecond, nil
	})
	if err != nil {
		return fmt.Errorf("SWAP_POLL_OVERRIDES: %w", err)
	}
	c.PollOverrides = overrides

	c.ActiveGasStrategy = common.GetEnvOrDefault("SWAP_ACTIVE_GAS_STRATEGY", DefaultActiveGasPolicy)
	c.ShadowGasStrategies = splitList(os.Getenv("SWAP_SHADOW_GAS_STRATEGIES"))
	c.CanPresignPermit = common.GetEnvOrDefault("SWAP_PRESIGN_PERMIT", "false") == "true"
	c.RoutingPreference = common.GetEnvOrDefault("SWAP_ROUTING_PREFERENCE", "BEST_PRICE")
	return c.Validate()
}

func (c *SwapConfig) Validate() error {
	if c.Debounce < 0 {
		return errors.New("invalid swap config: negative debounce")
	}
	if c.AcceptanceTolerance.IsNegative() {
		return errors.New("invalid swap config: negative acceptance tolerance")
	}
	if c.L1PollInterval <= 0 || c.L2PollInterval <= 0 {
		return errors.New("invalid swap config: poll interval must be positive")
	}
	for chain, d := range c.PollOverrides {
		if d <= 0 {
			return fmt.Errorf("invalid swap config: poll override for chain %d", chain)
		}
	}
	if c.ActiveGasStrategy == "" {
		return errors.New("invalid swap config: active gas strategy required")
	}
	for _, s := range c.ShadowGasStrategies {
		if s == c.ActiveGasStrategy {
			return fmt.Errorf("invalid swap config: %s is both active and shadow", s)
		}
	}
	return nil
}

// Defaults returns a config populated without reading the environment.
func Defaults() *SwapConfig {
	return &SwapConfig{
		Debounce:            DefaultDebounce,
		AcceptanceTolerance: DefaultAcceptanceTolerance,
		L1PollInterval:      DefaultL1PollInterval,
		L2PollInterval:      DefaultL2PollInterval,
		PollOverrides:       map[uint64]time.Duration{324: 20 * time.Second},
		QuoteTTL:            DefaultQuoteTTL,
		ActiveGasStrategy:   DefaultActiveGasPolicy,
		RoutingPreference:   "BEST_PRICE",
	}
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
