package trade

import (
	"hash/fnv"
	"math/big"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hxuan190/swap-engine/internal/domain"
)

// UseTradeArgs is raw, possibly incomplete user input.
type UseTradeArgs struct {
	Account        string
	InputCurrency  *domain.Currency
	OutputCurrency *domain.Currency
	// ExactField is the side whose amount the user typed.
	ExactField domain.CurrencyField
	// Amount is the exact side's amount in base units.
	Amount string
	// CustomSlippage is a percentage; nil means auto slippage.
	CustomSlippage    *decimal.Decimal
	RoutingPreference domain.RoutingPreference
	Protocols         []string
	Skip              bool
	IsUSDQuote        bool
}

// ValidatedTradeInput is the immutable, canonical form of UseTradeArgs and
// the key for every quote query derived from it.
type ValidatedTradeInput struct {
	account           string
	tokenIn           domain.Currency
	tokenOut          domain.Currency
	exactField        domain.CurrencyField
	amount            string
	slippage          *decimal.Decimal
	routingPreference domain.RoutingPreference
	protocols         []string
	isUSDQuote        bool

	fingerprint string
}

// PrepareTradeInput validates args. It returns nil when args are incomplete,
// invalid or skipped.
func PrepareTradeInput(args UseTradeArgs) *ValidatedTradeInput {
	if args.Skip || args.InputCurrency == nil || args.OutputCurrency == nil {
		return nil
	}
	in, out := *args.InputCurrency, *args.OutputCurrency
	if in.Equals(out) {
		return nil
	}
	if !validCurrency(in) || !validCurrency(out) {
		return nil
	}

	amount, ok := new(big.Int).SetString(strings.TrimSpace(args.Amount), 10)
	if !ok || amount.Sign() <= 0 {
		return nil
	}

	field := args.ExactField
	if field != domain.FieldOutput {
		field = domain.FieldInput
	}

	pref := args.RoutingPreference
	if pref == "" {
		pref = domain.RoutingPreferenceBestPrice
	}

	var slippage *decimal.Decimal
	if args.CustomSlippage != nil {
		if args.CustomSlippage.IsNegative() {
			return nil
		}
		s := *args.CustomSlippage
		slippage = &s
	}

	protocols := slices.Clone(args.Protocols)
	slices.Sort(protocols)

	v := &ValidatedTradeInput{
		account:           strings.ToLower(args.Account),
		tokenIn:           in,
		tokenOut:          out,
		exactField:        field,
		amount:            amount.String(),
		slippage:          slippage,
		routingPreference: pref,
		protocols:         slices.Compact(protocols),
		isUSDQuote:        args.IsUSDQuote,
	}
	v.fingerprint = v.encode()
	return v
}

func validCurrency(c domain.Currency) bool {
	if c.ChainID == domain.ChainUnknown {
		return false
	}
	if c.IsNative {
		return true
	}
	return domain.ValidAddress(c.ChainID, c.Address)
}

// encode quotes every field so no two distinct inputs share an encoding.
func (v *ValidatedTradeInput) encode() string {
	slippage := "auto"
	if v.slippage != nil {
		slippage = v.slippage.String()
	}
	fields := []string{
		v.account,
		v.tokenIn.ID(),
		v.tokenOut.ID(),
		string(v.exactField),
		v.amount,
		slippage,
		string(v.routingPreference),
		strings.Join(v.protocols, ","),
		strconv.FormatBool(v.isUSDQuote),
	}
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Quote(f))
	}
	return b.String()
}

// Fingerprint is the canonical string key of the input.
func (v *ValidatedTradeInput) Fingerprint() string { return v.fingerprint }

// Hash is a short FNV-1a digest of the fingerprint for logs and bucketing.
func (v *ValidatedTradeInput) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(v.fingerprint))
	return h.Sum64()
}

func (v *ValidatedTradeInput) Account() string                  { return v.account }
func (v *ValidatedTradeInput) TokenIn() domain.Currency         { return v.tokenIn }
func (v *ValidatedTradeInput) TokenOut() domain.Currency        { return v.tokenOut }
func (v *ValidatedTradeInput) ExactField() domain.CurrencyField { return v.exactField }
func (v *ValidatedTradeInput) TradeType() domain.TradeType      { return v.exactField.TradeType() }
func (v *ValidatedTradeInput) RoutingPreference() domain.RoutingPreference {
	return v.routingPreference
}
func (v *ValidatedTradeInput) IsUSDQuote() bool    { return v.isUSDQuote }
func (v *ValidatedTradeInput) Protocols() []string { return slices.Clone(v.protocols) }

// Amount returns a fresh copy of the exact-side amount.
func (v *ValidatedTradeInput) Amount() *big.Int {
	a, _ := new(big.Int).SetString(v.amount, 10)
	return a
}

func (v *ValidatedTradeInput) CustomSlippage() *decimal.Decimal {
	if v.slippage == nil {
		return nil
	}
	s := *v.slippage
	return &s
}

func (v *ValidatedTradeInput) IsBridging() bool {
	return v.tokenIn.ChainID != v.tokenOut.ChainID
}

// IsSolana reports whether either side originates on Solana.
func (v *ValidatedTradeInput) IsSolana() bool {
	return v.tokenIn.ChainID.IsSolana() || v.tokenOut.ChainID.IsSolana() ||
		(!v.tokenIn.IsNative && domain.IsSolanaAddress(v.tokenIn.Address))
}

// SamePair reports whether other quotes the same currencies in the same direction.
func (v *ValidatedTradeInput) SamePair(other *ValidatedTradeInput) bool {
	if v == nil || other == nil {
		return false
	}
	return v.tokenIn.Equals(other.tokenIn) && v.tokenOut.Equals(other.tokenOut)
}
