package txinfo

import (
	"context"
	"math"
	"math/big"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hxuan190/swap-engine/internal/chain/evm"
	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/metrics"
	"github.com/hxuan190/swap-engine/internal/tradingapi"
)

const (
	// DefaultGasLimit is used when estimation fails.
	DefaultGasLimit = 300_000
	MaxGasLimit     = 30_000_000

	factorScale = 10_000
	gwei        = 1_000_000_000
)

var ErrUnknownGasStrategy = errors.New("unknown gas strategy")

// GasStrategy is a named fee estimation policy.
type GasStrategy struct {
	Name                               string
	LimitInflationFactor               float64
	DisplayLimitInflationFactor        float64
	PriceInflationFactor               float64
	PercentileThresholdFor1559Fee      int
	ThresholdToInflateLastBlockBaseFee float64
	BaseFeeMultiplier                  float64
	BaseFeeHistoryWindow               int
	MinPriorityFeeGwei                 float64
	MaxPriorityFeeGwei                 float64
}

var presets = map[string]GasStrategy{
	"general": {
		Name:                          "general",
		LimitInflationFactor:          1.15,
		DisplayLimitInflationFactor:   1,
		PriceInflationFactor:          1.5,
		PercentileThresholdFor1559Fee: 75,
		MinPriorityFeeGwei:            2,
		MaxPriorityFeeGwei:            9,
	},
	"conservative": {
		Name:                               "conservative",
		LimitInflationFactor:               1.2,
		DisplayLimitInflationFactor:        1,
		PriceInflationFactor:               1.5,
		PercentileThresholdFor1559Fee:      90,
		ThresholdToInflateLastBlockBaseFee: 0.75,
		BaseFeeMultiplier:                  1.25,
		BaseFeeHistoryWindow:               20,
		MinPriorityFeeGwei:                 2,
		MaxPriorityFeeGwei:                 12,
	},
	"aggressive": {
		Name:                          "aggressive",
		LimitInflationFactor:          1.3,
		DisplayLimitInflationFactor:   1.1,
		PriceInflationFactor:          2,
		PercentileThresholdFor1559Fee: 95,
		BaseFeeMultiplier:             2,
		MinPriorityFeeGwei:            3,
		MaxPriorityFeeGwei:            20,
	},
}

func LookupGasStrategy(name string) (GasStrategy, error) {
	s, ok := presets[name]
	if !ok {
		return GasStrategy{}, errors.Wrapf(ErrUnknownGasStrategy, "%q", name)
	}
	return s, nil
}

func (s GasStrategy) API() tradingapi.GasStrategy {
	return tradingapi.GasStrategy{
		LimitInflationFactor:               s.LimitInflationFactor,
		DisplayLimitInflationFactor:        s.DisplayLimitInflationFactor,
		PriceInflationFactor:               s.PriceInflationFactor,
		PercentileThresholdFor1559Fee:      s.PercentileThresholdFor1559Fee,
		ThresholdToInflateLastBlockBaseFee: s.ThresholdToInflateLastBlockBaseFee,
		BaseFeeMultiplier:                  s.BaseFeeMultiplier,
		BaseFeeHistoryWindow:               s.BaseFeeHistoryWindow,
		MinPriorityFeeGwei:                 s.MinPriorityFeeGwei,
		MaxPriorityFeeGwei:                 s.MaxPriorityFeeGwei,
	}
}

// GasStrategies is one active strategy plus shadows evaluated for comparison.
type GasStrategies struct {
	Active  GasStrategy
	Shadows []GasStrategy
}

func NewGasStrategies(active string, shadows []string) (GasStrategies, error) {
	a, err := LookupGasStrategy(active)
	if err != nil {
		return GasStrategies{}, err
	}
	out := GasStrategies{Active: a}
	for _, name := range shadows {
		s, err := LookupGasStrategy(name)
		if err != nil {
			return GasStrategies{}, err
		}
		out.Shadows = append(out.Shadows, s)
	}
	return out, nil
}

// API lists the strategies in request order: active first.
func (g GasStrategies) API() []tradingapi.GasStrategy {
	out := make([]tradingapi.GasStrategy, 0, 1+len(g.Shadows))
	out = append(out, g.Active.API())
	for _, s := range g.Shadows {
		out = append(out, s.API())
	}
	return out
}

// ChainReader supplies the raw inputs for local fee estimation.
type ChainReader interface {
	Supports(chain domain.ChainID) bool
	EstimateGas(ctx context.Context, tx *domain.TransactionRequest) (uint64, error)
	FeeData(ctx context.Context, chain domain.ChainID) (evm.FeeData, error)
}

type GasService struct {
	strategies GasStrategies
	reader     ChainReader
	logger     zerolog.Logger
}

func NewGasService(strategies GasStrategies, reader ChainReader) *GasService {
	return &GasService{
		strategies: strategies,
		reader:     reader,
		logger:     log.With().Str("component", "swap-gas").Logger(),
	}
}

func (g *GasService) Strategies() GasStrategies {
	return g.strategies
}

// Estimate prices tx under every strategy. Only the first result is meant to
// be applied; the rest are for comparison.
func (g *GasService) Estimate(ctx context.Context, tx *domain.TransactionRequest) (domain.GasFeeResult, []domain.GasEstimate) {
	if g.reader == nil || !g.reader.Supports(tx.ChainID) {
		return domain.GasFeeResult{Error: "gas estimation unavailable"}, nil
	}

	var (
		units uint64
		fees  evm.FeeData
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		u, err := g.reader.EstimateGas(egCtx, tx)
		if err != nil {
			// Estimation reverts for txs that depend on a prior step.
			g.logger.Debug().Err(err).Msg("[gas] estimate failed, using default limit")
			u = DefaultGasLimit
		}
		units = u
		return nil
	})
	eg.Go(func() error {
		f, err := g.reader.FeeData(egCtx, tx.ChainID)
		if err != nil {
			return err
		}
		fees = f
		return nil
	})
	if err := eg.Wait(); err != nil {
		return domain.GasFeeResult{Error: err.Error()}, nil
	}

	active := computeFee(units, fees, g.strategies.Active)
	shadows := make([]domain.GasEstimate, 0, len(g.strategies.Shadows))
	for _, s := range g.strategies.Shadows {
		shadows = append(shadows, computeFee(units, fees, s))
	}
	result := domain.GasFeeResult{
		Value:        active.Value,
		DisplayValue: displayValue(units, fees, g.strategies.Active),
		Params:       active.Params,
	}
	recordDiff(result, shadows)
	return result, shadows
}

// FromSwapResponse maps the API's per-strategy estimates, which follow the
// request order, to the active fee and shadow estimates.
func (g *GasService) FromSwapResponse(resp *tradingapi.SwapResponse) (domain.GasFeeResult, []domain.GasEstimate) {
	if len(resp.GasEstimates) == 0 {
		v := tradingapi.ParseAmount(resp.GasFee)
		if v == nil {
			return domain.GasFeeResult{Error: "missing gas fee"}, nil
		}
		return domain.GasFeeResult{Value: v, DisplayValue: new(big.Int).Set(v)}, nil
	}

	first := fromAPIEstimate(g.strategies.Active.Name, resp.GasEstimates[0])
	active := domain.GasFeeResult{Value: first.Value, Params: first.Params, Error: first.Error}
	if first.Value != nil {
		active.DisplayValue = scale(first.Value, g.strategies.Active.DisplayLimitInflationFactor/nonZero(g.strategies.Active.LimitInflationFactor))
	}

	var shadows []domain.GasEstimate
	for i, s := range g.strategies.Shadows {
		if i+1 >= len(resp.GasEstimates) {
			shadows = append(shadows, domain.GasEstimate{Strategy: s.Name, Error: "missing estimate"})
			continue
		}
		shadows = append(shadows, fromAPIEstimate(s.Name, resp.GasEstimates[i+1]))
	}
	recordDiff(active, shadows)
	return active, shadows
}

func fromAPIEstimate(name string, e tradingapi.GasEstimateResponse) domain.GasEstimate {
	v := tradingapi.ParseAmount(e.GasFee)
	if v == nil {
		return domain.GasEstimate{Strategy: name, Error: "invalid gas fee"}
	}
	limit, _ := strconv.ParseUint(e.GasLimit, 10, 64)
	return domain.GasEstimate{
		Strategy: name,
		Value:    v,
		Params: &domain.GasFeeParams{
			GasLimit:             limit,
			MaxFeePerGas:         tradingapi.ParseAmount(e.MaxFeePerGas),
			MaxPriorityFeePerGas: tradingapi.ParseAmount(e.MaxPriorityFeePerGas),
			GasPrice:             tradingapi.ParseAmount(e.GasPrice),
		},
	}
}

func computeFee(units uint64, fees evm.FeeData, s GasStrategy) domain.GasEstimate {
	limit := inflateLimit(units, s.LimitInflationFactor)
	params := &domain.GasFeeParams{GasLimit: limit}
	var perGas *uint256.Int

	if fees.BaseFee != nil {
		base, overflow := uint256.FromBig(fees.BaseFee)
		if overflow {
			return domain.GasEstimate{Strategy: s.Name, Error: "base fee overflow"}
		}
		if s.BaseFeeMultiplier > 0 {
			base = mulFactor(base, s.BaseFeeMultiplier)
		}
		tip := clampTip(fees.TipCap, s)
		perGas = new(uint256.Int).Add(base, tip)
		params.MaxFeePerGas = perGas.ToBig()
		params.MaxPriorityFeePerGas = tip.ToBig()
	} else {
		if fees.GasPrice == nil {
			return domain.GasEstimate{Strategy: s.Name, Error: "no fee data"}
		}
		price, overflow := uint256.FromBig(fees.GasPrice)
		if overflow {
			return domain.GasEstimate{Strategy: s.Name, Error: "gas price overflow"}
		}
		if s.PriceInflationFactor > 0 {
			price = mulFactor(price, s.PriceInflationFactor)
		}
		perGas = price
		params.GasPrice = price.ToBig()
	}

	value := new(uint256.Int).Mul(perGas, uint256.NewInt(limit))
	return domain.GasEstimate{Strategy: s.Name, Value: value.ToBig(), Params: params}
}

func displayValue(units uint64, fees evm.FeeData, s GasStrategy) *big.Int {
	display := s
	display.LimitInflationFactor = s.DisplayLimitInflationFactor
	return computeFee(units, fees, display).Value
}

func inflateLimit(units uint64, factor float64) uint64 {
	if factor <= 0 {
		factor = 1
	}
	limit := new(uint256.Int).Mul(uint256.NewInt(units), uint256.NewInt(bps(factor)))
	limit.Div(limit, uint256.NewInt(factorScale))
	if !limit.IsUint64() || limit.Uint64() > MaxGasLimit {
		return MaxGasLimit
	}
	return limit.Uint64()
}

func clampTip(tip *big.Int, s GasStrategy) *uint256.Int {
	out := new(uint256.Int)
	if tip != nil {
		if v, overflow := uint256.FromBig(tip); !overflow {
			out = v
		}
	}
	if s.MinPriorityFeeGwei > 0 {
		lo := uint256.NewInt(uint64(s.MinPriorityFeeGwei * gwei))
		if out.Lt(lo) {
			out = lo
		}
	}
	if s.MaxPriorityFeeGwei > 0 {
		hi := uint256.NewInt(uint64(s.MaxPriorityFeeGwei * gwei))
		if out.Gt(hi) {
			out = hi
		}
	}
	return out
}

func mulFactor(v *uint256.Int, factor float64) *uint256.Int {
	out := new(uint256.Int).Mul(v, uint256.NewInt(bps(factor)))
	return out.Div(out, uint256.NewInt(factorScale))
}

// bps converts a multiplier to basis points of factorScale.
func bps(factor float64) uint64 {
	return uint64(math.Round(factor * factorScale))
}

func scale(v *big.Int, factor float64) *big.Int {
	if factor <= 0 || factor == 1 {
		return new(big.Int).Set(v)
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return new(big.Int).Set(v)
	}
	return mulFactor(u, factor).ToBig()
}

func nonZero(f float64) float64 {
	if f <= 0 {
		return 1
	}
	return f
}

// applyGasParams writes the active fee parameters onto tx.
func applyGasParams(tx *domain.TransactionRequest, fee domain.GasFeeResult) {
	if tx == nil || fee.Params == nil {
		return
	}
	if fee.Params.GasLimit > 0 {
		tx.GasLimit = fee.Params.GasLimit
	}
	if fee.Params.MaxFeePerGas != nil {
		tx.MaxFeePerGas = new(big.Int).Set(fee.Params.MaxFeePerGas)
		tx.MaxPriorityFeePerGas = copyBig(fee.Params.MaxPriorityFeePerGas)
		tx.GasPrice = nil
	} else if fee.Params.GasPrice != nil {
		tx.GasPrice = new(big.Int).Set(fee.Params.GasPrice)
	}
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func recordDiff(active domain.GasFeeResult, shadows []domain.GasEstimate) {
	if !active.Ok() || active.Value.Sign() == 0 {
		return
	}
	activeF, _ := new(big.Float).SetInt(active.Value).Float64()
	for _, s := range shadows {
		if s.Value == nil {
			continue
		}
		shadowF, _ := new(big.Float).SetInt(s.Value).Float64()
		metrics.GasEstimateDiff.WithLabelValues(s.Strategy).Observe(shadowF / activeF)
	}
}
