// Package txinfo turns an accepted trade into unsigned transaction requests,
// gas estimates and permit data, one strategy per routing.
package txinfo

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/metrics"
	"github.com/hxuan190/swap-engine/internal/tradingapi"
)

var (
	// ErrMissingRoutingService means no strategy was registered for a routing.
	// It is a wiring bug, never a user condition.
	ErrMissingRoutingService = errors.New("no swap tx service registered for routing")
	ErrRoutingMismatch       = errors.New("trade routing does not match service")
	ErrNoTrade               = errors.New("no trade")
)

// DerivedSwapInfo is the context of the swap form the trade was quoted for.
type DerivedSwapInfo struct {
	ChainID domain.ChainID
	Account string
	// TxDeadline bounds on-chain execution; zero lets the API choose.
	TxDeadline time.Time
	Urgency    tradingapi.Urgency
}

type Params struct {
	DerivedSwapInfo DerivedSwapInfo
	Trade           domain.Trade
	ApprovalTxInfo  domain.ApprovalTxInfo
}

type Service interface {
	GetSwapTxAndGasInfo(ctx context.Context, p Params) (*domain.SwapTxAndGasInfo, error)
}

// AsyncBuilder builds the swap transaction once the permit it consumes is signed.
type AsyncBuilder interface {
	BuildWithSignature(ctx context.Context, p Params, signature string) (*domain.TransactionRequest, error)
}

// Capabilities describe what the host environment allows without a prompt.
type Capabilities struct {
	CanPresignPermit bool
}

type Signer interface {
	SignTypedData(ctx context.Context, td apitypes.TypedData) (string, error)
}

// SwapAPI is the subset of the trading API used to build swap transactions.
type SwapAPI interface {
	Swap(ctx context.Context, req tradingapi.SwapRequest) (*tradingapi.SwapResponse, error)
}

type RoutingServicesMap map[domain.Routing]Service

// NewRoutingServicesMap registers a strategy for every routing the quote
// parser can produce.
func NewRoutingServicesMap(api SwapAPI, gas *GasService, signer Signer, caps Capabilities) RoutingServicesMap {
	classic := NewClassicService(api, gas, signer, caps)
	uniswapX := NewUniswapXService(gas)
	wrap := NewWrapService(gas)
	return RoutingServicesMap{
		domain.RoutingClassic:  classic,
		domain.RoutingDutchV2:  uniswapX,
		domain.RoutingDutchV3:  uniswapX,
		domain.RoutingPriority: uniswapX,
		domain.RoutingBridge:   NewBridgeService(api, gas),
		domain.RoutingWrap:     wrap,
		domain.RoutingUnwrap:   wrap,
	}
}

// Dispatcher routes a request to the strategy registered for the trade's routing.
type Dispatcher struct {
	services RoutingServicesMap
	logger   zerolog.Logger
}

func NewDispatcher(services RoutingServicesMap) *Dispatcher {
	return &Dispatcher{
		services: services,
		logger:   log.With().Str("component", "swap-txinfo").Logger(),
	}
}

func (d *Dispatcher) GetSwapTxAndGasInfo(ctx context.Context, p Params) (*domain.SwapTxAndGasInfo, error) {
	if p.Trade == nil {
		return nil, ErrNoTrade
	}
	routing := p.Trade.Routing()
	svc, ok := d.services[routing]
	if !ok {
		metrics.SwapTxRequests.WithLabelValues(string(routing), "unmapped").Inc()
		return nil, errors.Wrapf(ErrMissingRoutingService, "%q", routing)
	}

	info, err := svc.GetSwapTxAndGasInfo(ctx, p)
	if err != nil {
		metrics.SwapTxRequests.WithLabelValues(string(routing), "error").Inc()
		d.logger.Warn().Err(err).Str("routing", string(routing)).Msg("[swapTxInfo] failed to prepare swap tx")
		return nil, err
	}
	if info.Routing != routing {
		metrics.SwapTxRequests.WithLabelValues(string(routing), "mismatch").Inc()
		return nil, errors.Wrapf(ErrRoutingMismatch, "trade %q, info %q", routing, info.Routing)
	}
	metrics.SwapTxRequests.WithLabelValues(string(routing), "ok").Inc()
	return info, nil
}

// AsyncBuilder returns the strategy able to finish a signature-gated swap.
func (d *Dispatcher) AsyncBuilder(routing domain.Routing) (AsyncBuilder, error) {
	svc, ok := d.services[routing]
	if !ok {
		return nil, errors.Wrapf(ErrMissingRoutingService, "%q", routing)
	}
	b, ok := svc.(AsyncBuilder)
	if !ok {
		return nil, errors.Errorf("routing %q has no async swap builder", routing)
	}
	return b, nil
}

func txDeadline(info DerivedSwapInfo) int64 {
	if info.TxDeadline.IsZero() {
		return 0
	}
	return info.TxDeadline.Unix()
}

// failureReasons keeps the predicted failures the user can act on. A
// simulation error is expected while a revoke is still pending.
func failureReasons(reasons []domain.TxFailureReason, approval domain.ApprovalTxInfo) []domain.TxFailureReason {
	var out []domain.TxFailureReason
	for _, r := range reasons {
		if r == domain.TxFailureSimulationError && approval.NeedsRevoke() {
			continue
		}
		metrics.SimulationFailures.WithLabelValues(string(r)).Inc()
		out = append(out, r)
	}
	return out
}
