package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

type Currency struct {
	ChainID  ChainID `json:"chainId"`
	Address  string  `json:"address"`
	Symbol   string  `json:"symbol"`
	Decimals int32   `json:"decimals"`
	IsNative bool    `json:"isNative"`
}

// ID is the canonical chain-scoped identifier used in fingerprints and logs.
func (c Currency) ID() string {
	if c.IsNative {
		return fmt.Sprintf("%d-native", c.ChainID)
	}
	return fmt.Sprintf("%d-%s", c.ChainID, strings.ToLower(c.Address))
}

// TradingAPIAddress returns the address form the pricing API expects.
func (c Currency) TradingAPIAddress() string {
	if c.IsNative {
		return NativeAddressForTradingAPI
	}
	return c.Address
}

func (c Currency) Equals(other Currency) bool {
	return c.ID() == other.ID()
}

func (c Currency) Wrapped() Currency {
	if !c.IsNative {
		return c
	}
	return Currency{
		ChainID:  c.ChainID,
		Address:  c.ChainID.Info().WrappedNative,
		Symbol:   "W" + c.Symbol,
		Decimals: c.Decimals,
	}
}

type CurrencyAmount struct {
	Currency Currency `json:"currency"`
	Raw      *big.Int `json:"raw"`
}

func NewCurrencyAmount(c Currency, raw string) (CurrencyAmount, bool) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return CurrencyAmount{}, false
	}
	return CurrencyAmount{Currency: c, Raw: v}, true
}

// Exact converts the raw amount to a decimal in whole-token units.
func (a CurrencyAmount) Exact() decimal.Decimal {
	if a.Raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.Raw, -a.Currency.Decimals)
}

func (a CurrencyAmount) IsZero() bool {
	return a.Raw == nil || a.Raw.Sign() == 0
}

func (a CurrencyAmount) String() string {
	return a.Exact().String() + " " + a.Currency.Symbol
}
