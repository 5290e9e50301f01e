package domain

type Routing string

const (
	RoutingClassic  Routing = "CLASSIC"
	RoutingDutchV2  Routing = "DUTCH_V2"
	RoutingDutchV3  Routing = "DUTCH_V3"
	RoutingPriority Routing = "PRIORITY"
	RoutingBridge   Routing = "BRIDGE"
	RoutingWrap     Routing = "WRAP"
	RoutingUnwrap   Routing = "UNWRAP"
)

func (r Routing) IsUniswapX() bool {
	return r == RoutingDutchV2 || r == RoutingDutchV3 || r == RoutingPriority
}

func (r Routing) IsWrap() bool {
	return r == RoutingWrap || r == RoutingUnwrap
}

// RoutingPreference is the user-selected venue restriction sent with quote requests.
type RoutingPreference string

const (
	RoutingPreferenceBestPrice RoutingPreference = "BEST_PRICE"
	RoutingPreferenceFastest   RoutingPreference = "FASTEST"
	RoutingPreferenceClassic   RoutingPreference = "CLASSIC"
	RoutingPreferenceUniswapX  RoutingPreference = "UNISWAPX_V2"
)

func ParseRoutingPreference(s string) (RoutingPreference, bool) {
	switch RoutingPreference(s) {
	case RoutingPreferenceBestPrice, RoutingPreferenceFastest, RoutingPreferenceClassic, RoutingPreferenceUniswapX:
		return RoutingPreference(s), true
	case "", "AUTO":
		return RoutingPreferenceBestPrice, true
	}
	return "", false
}

type TradeType string

const (
	ExactInput  TradeType = "EXACT_INPUT"
	ExactOutput TradeType = "EXACT_OUTPUT"
)

type CurrencyField string

const (
	FieldInput  CurrencyField = "input"
	FieldOutput CurrencyField = "output"
)

func (f CurrencyField) TradeType() TradeType {
	if f == FieldOutput {
		return ExactOutput
	}
	return ExactInput
}
