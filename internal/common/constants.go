// Package common contains common constants and variables used across services
package common

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	ERC20ABI = `[
		{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
		{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
	]`

	WETHABI = `[
		{"constant":false,"inputs":[],"name":"deposit","outputs":[],"payable":true,"type":"function"},
		{"constant":false,"inputs":[{"name":"wad","type":"uint256"}],"name":"withdraw","outputs":[],"type":"function"}
	]`

	// ServiceNamespace prefixes every query key owned by the trade service.
	ServiceNamespace = "tradeService"
)

var (
	// MaxUint256 is the infinite approval amount.
	MaxUint256 = common.MaxHash.Big()

	// tokensRequiringReset reject approve() when the current allowance is non-zero.
	tokensRequiringReset = map[uint64]map[string]struct{}{
		1: {
			strings.ToLower("0xdAC17F958D2ee523a2206206994597C13D831ec7"): {}, // USDT
			strings.ToLower("0x5A98FcBEA516Cf06857215779Fd812CA3beF1B32"): {}, // LDO
		},
	}
)

// RequiresAllowanceReset reports whether token must be revoked to zero before re-approval.
func RequiresAllowanceReset(chainID uint64, token string) bool {
	if byChain, ok := tokensRequiringReset[chainID]; ok {
		_, ok := byChain[strings.ToLower(token)]
		return ok
	}
	return false
}
