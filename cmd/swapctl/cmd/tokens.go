package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/swap-engine/internal/domain"
)

// parseToken reads a bare native symbol such as ETH or address:decimals[:symbol].
func parseToken(token string, chain domain.ChainID) (domain.Currency, error) {
	parts := strings.Split(token, ":")
	if len(parts) == 1 && !strings.HasPrefix(token, "0x") {
		decimals := int32(18)
		if chain.IsSolana() {
			decimals = 9
		}
		return domain.Currency{ChainID: chain, Symbol: strings.ToUpper(token), Decimals: decimals, IsNative: true}, nil
	}
	if len(parts) < 2 || len(parts) > 3 {
		return domain.Currency{}, fmt.Errorf("token %q: expected address:decimals[:symbol]", token)
	}
	if !common.IsHexAddress(parts[0]) {
		return domain.Currency{}, fmt.Errorf("token %q: invalid address", token)
	}
	dec, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil || dec < 0 || dec > 36 {
		return domain.Currency{}, fmt.Errorf("token %q: invalid decimals", token)
	}
	c := domain.Currency{ChainID: chain, Address: common.HexToAddress(parts[0]).Hex(), Decimals: int32(dec)}
	if len(parts) == 3 {
		c.Symbol = parts[2]
	}
	return c, nil
}

// toBaseUnits converts a human amount into the token's smallest unit.
func toBaseUnits(amount string, c domain.Currency) (string, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q", amount)
	}
	if !d.IsPositive() {
		return "", fmt.Errorf("amount must be positive")
	}
	raw := d.Shift(c.Decimals)
	if !raw.Equal(raw.Truncate(0)) {
		return "", fmt.Errorf("amount %s has more than %d decimals", amount, c.Decimals)
	}
	return raw.BigInt().String(), nil
}

func symbol(c domain.Currency) string {
	if c.Symbol != "" {
		return c.Symbol
	}
	if len(c.Address) > 10 {
		return c.Address[:6] + "..." + c.Address[len(c.Address)-4:]
	}
	return c.Address
}
