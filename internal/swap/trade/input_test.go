package trade

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"

	"github.com/hxuan190/swap-engine/internal/domain"
)

var (
	eth  = domain.Currency{ChainID: domain.ChainMainnet, Symbol: "ETH", Decimals: 18, IsNative: true}
	usdc = domain.Currency{ChainID: domain.ChainMainnet, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6}
	dai  = domain.Currency{ChainID: domain.ChainMainnet, Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Symbol: "DAI", Decimals: 18}

	baseETH  = domain.Currency{ChainID: domain.ChainBase, Symbol: "ETH", Decimals: 18, IsNative: true}
	baseUSDC = domain.Currency{ChainID: domain.ChainBase, Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Symbol: "USDC", Decimals: 6}

	solUSDC = domain.Currency{ChainID: domain.ChainSolana, Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Symbol: "USDC", Decimals: 6}
	solSOL  = domain.Currency{ChainID: domain.ChainSolana, Symbol: "SOL", Decimals: 9, IsNative: true}
)

func ptr[T any](v T) *T { return &v }

func baseArgs() UseTradeArgs {
	return UseTradeArgs{
		Account:        "0x1111111111111111111111111111111111111111",
		InputCurrency:  ptr(eth),
		OutputCurrency: ptr(usdc),
		ExactField:     domain.FieldInput,
		Amount:         "1",
		CustomSlippage: ptr(decimal.RequireFromString("0.5")),
	}
}

func TestPrepareTradeInputRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*UseTradeArgs)
	}{
		{name: "skip", mutate: func(a *UseTradeArgs) { a.Skip = true }},
		{name: "missing input currency", mutate: func(a *UseTradeArgs) { a.InputCurrency = nil }},
		{name: "missing output currency", mutate: func(a *UseTradeArgs) { a.OutputCurrency = nil }},
		{name: "zero amount", mutate: func(a *UseTradeArgs) { a.Amount = "0" }},
		{name: "negative amount", mutate: func(a *UseTradeArgs) { a.Amount = "-5" }},
		{name: "decimal amount", mutate: func(a *UseTradeArgs) { a.Amount = "1.5" }},
		{name: "empty amount", mutate: func(a *UseTradeArgs) { a.Amount = "" }},
		{name: "same currency", mutate: func(a *UseTradeArgs) { a.OutputCurrency = ptr(eth) }},
		{name: "bad address", mutate: func(a *UseTradeArgs) { a.OutputCurrency = ptr(domain.Currency{ChainID: 1, Address: "0xnope"}) }},
		{name: "negative slippage", mutate: func(a *UseTradeArgs) { a.CustomSlippage = ptr(decimal.NewFromInt(-1)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := baseArgs()
			tt.mutate(&args)
			assert.Nil(t, PrepareTradeInput(args))
		})
	}
}

func TestFingerprintDeterminism(t *testing.T) {
	a := baseArgs()
	b := baseArgs()
	b.Account = "0x1111111111111111111111111111111111111111"
	b.Amount = " 01 "
	b.CustomSlippage = ptr(decimal.RequireFromString("0.50"))
	b.OutputCurrency = ptr(domain.Currency{ChainID: 1, Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Symbol: "USDC", Decimals: 6})
	b.Protocols = nil

	ia, ib := PrepareTradeInput(a), PrepareTradeInput(b)
	assert.NotNil(t, ia)
	assert.NotNil(t, ib)
	assert.Equal(t, ia.Fingerprint(), ib.Fingerprint())
	assert.Equal(t, ia.Hash(), ib.Hash())
}

func TestFingerprintDistinct(t *testing.T) {
	variants := map[string]func(*UseTradeArgs){
		"amount":     func(a *UseTradeArgs) { a.Amount = "2" },
		"currency":   func(a *UseTradeArgs) { a.OutputCurrency = ptr(dai) },
		"slippage":   func(a *UseTradeArgs) { a.CustomSlippage = ptr(decimal.RequireFromString("1")) },
		"auto":       func(a *UseTradeArgs) { a.CustomSlippage = nil },
		"exactField": func(a *UseTradeArgs) { a.ExactField = domain.FieldOutput },
		"routing":    func(a *UseTradeArgs) { a.RoutingPreference = domain.RoutingPreferenceClassic },
		"usd":        func(a *UseTradeArgs) { a.IsUSDQuote = true },
		"account":    func(a *UseTradeArgs) { a.Account = "0x2222222222222222222222222222222222222222" },
		"chain":      func(a *UseTradeArgs) { a.InputCurrency, a.OutputCurrency = ptr(baseETH), ptr(baseUSDC) },
		"protocols":  func(a *UseTradeArgs) { a.Protocols = []string{"V3"} },
	}

	seen := map[string]string{PrepareTradeInput(baseArgs()).Fingerprint(): "base"}
	for name, mutate := range variants {
		args := baseArgs()
		mutate(&args)
		input := PrepareTradeInput(args)
		assert.NotNil(t, input)
		if prev, dup := seen[input.Fingerprint()]; dup {
			t.Errorf("fingerprint of %s collides with %s", name, prev)
		}
		seen[input.Fingerprint()] = name
	}
}

func TestFingerprintFieldBoundaries(t *testing.T) {
	// Values containing the separator must not be confused with adjacent fields.
	a := baseArgs()
	a.Protocols = []string{"V2|V3"}
	b := baseArgs()
	b.Protocols = []string{"V2", "V3"}
	assert.True(t, PrepareTradeInput(a).Fingerprint() != PrepareTradeInput(b).Fingerprint())
}

func TestValidatedInputIsImmutable(t *testing.T) {
	slip := decimal.RequireFromString("0.5")
	args := baseArgs()
	args.CustomSlippage = &slip
	args.Protocols = []string{"V3", "V2"}
	input := PrepareTradeInput(args)
	before := input.Fingerprint()

	slip = decimal.NewFromInt(9)
	args.Protocols[0] = "MIXED"
	input.Amount().SetInt64(99)
	input.Protocols()[0] = "X"

	assert.Equal(t, input.Fingerprint(), before)
	assert.Equal(t, input.encode(), before)
	assert.Equal(t, input.Amount().String(), "1")
}

func TestSolanaDetection(t *testing.T) {
	args := baseArgs()
	args.InputCurrency, args.OutputCurrency = ptr(solSOL), ptr(solUSDC)
	args.CustomSlippage = nil
	input := PrepareTradeInput(args)
	assert.NotNil(t, input)
	assert.True(t, input.IsSolana())

	assert.False(t, PrepareTradeInput(baseArgs()).IsSolana())
}

func TestSamePair(t *testing.T) {
	a := PrepareTradeInput(baseArgs())
	args := baseArgs()
	args.Amount = "500"
	b := PrepareTradeInput(args)
	assert.True(t, a.SamePair(b))

	args.OutputCurrency = ptr(dai)
	assert.False(t, a.SamePair(PrepareTradeInput(args)))
	assert.False(t, a.SamePair(nil))
}
