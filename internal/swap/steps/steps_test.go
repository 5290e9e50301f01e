package steps

import (
	"math/big"
	"strconv"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"

	"github.com/hxuan190/swap-engine/internal/domain"
)

var (
	eth  = domain.Currency{ChainID: 1, Address: "0x0000000000000000000000000000000000000000", Symbol: "ETH", Decimals: 18, IsNative: true}
	usdc = domain.Currency{ChainID: 1, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6}
	usdt = domain.Currency{ChainID: 1, Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Symbol: "USDT", Decimals: 6}
)

func amt(c domain.Currency, v int64) domain.CurrencyAmount {
	return domain.CurrencyAmount{Currency: c, Raw: big.NewInt(v)}
}

func tx(to string) *domain.TransactionRequest {
	return &domain.TransactionRequest{ChainID: 1, To: to, Data: "0x"}
}

func permitAt(deadline time.Time) *domain.Permit {
	return domain.NewPermit(
		apitypes.TypedDataDomain{Name: "Permit2"},
		apitypes.Types{"PermitSingle": {{Name: "sigDeadline", Type: "uint256"}}},
		"PermitSingle",
		apitypes.TypedDataMessage{"sigDeadline": strconv.FormatInt(deadline.Unix(), 10)},
	)
}

var (
	noApproval = domain.ApprovalTxInfo{Action: domain.ApprovalActionNone}
	approve    = domain.ApprovalTxInfo{Action: domain.ApprovalActionApprove, Token: usdc, Spender: domain.Permit2Address, ApproveTx: tx(usdc.Address)}
	revoke     = domain.ApprovalTxInfo{Action: domain.ApprovalActionRevokeApprove, Token: usdt, Spender: domain.Permit2Address, ApproveTx: tx(usdt.Address), RevokeTx: tx(usdt.Address)}
)

func classicInfo(approval domain.ApprovalTxInfo, permit *domain.Permit, unsigned bool) *domain.SwapTxAndGasInfo {
	trade := domain.NewClassicTrade(amt(usdc, 1), amt(eth, 1), domain.ExactInput, "r", decimal.Zero, time.Time{}, nil)
	info := &domain.SwapTxAndGasInfo{
		Routing:    domain.RoutingClassic,
		Trade:      trade,
		Approval:   approval,
		Permit:     permit,
		UnsignedTx: unsigned,
	}
	if !unsigned {
		info.TxRequests = []*domain.TransactionRequest{tx("0xrouter")}
	}
	return info
}

func TestGenerateOrdering(t *testing.T) {
	far := time.Now().Add(time.Hour)
	order := domain.OrderInfo{Deadline: far}
	uniswapX := domain.NewUniswapXTrade(domain.RoutingDutchV2, amt(eth, 1), amt(usdc, 1), domain.ExactInput, "r", decimal.Zero, order, nil)
	bridge := domain.NewBridgeTrade(amt(usdc, 1), amt(domain.Currency{ChainID: 8453, Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"}, 1), domain.ExactInput, "r", 5, nil)

	tests := []struct {
		name string
		info *domain.SwapTxAndGasInfo
		want []StepType
	}{
		{
			name: "no approval no permit",
			info: classicInfo(noApproval, nil, false),
			want: []StepType{SwapTransaction},
		},
		{
			name: "approval only",
			info: classicInfo(approve, nil, false),
			want: []StepType{TokenApprovalTransaction, SwapTransaction},
		},
		{
			name: "approval and permit",
			info: classicInfo(approve, permitAt(far), true),
			want: []StepType{TokenApprovalTransaction, Permit2Signature, SwapTransactionAsync},
		},
		{
			name: "revoke approval and permit",
			info: classicInfo(revoke, permitAt(far), true),
			want: []StepType{TokenRevocationTransaction, TokenApprovalTransaction, Permit2Signature, SwapTransactionAsync},
		},
		{
			name: "presigned permit",
			info: func() *domain.SwapTxAndGasInfo {
				i := classicInfo(approve, permitAt(far), false)
				i.PermitSignature = "0xsig"
				return i
			}(),
			want: []StepType{TokenApprovalTransaction, SwapTransaction},
		},
		{
			name: "uniswapx with wrap",
			info: &domain.SwapTxAndGasInfo{
				Routing:       domain.RoutingDutchV2,
				Trade:         uniswapX,
				Approval:      approve,
				Permit:        permitAt(far),
				WrapTxRequest: tx("0xweth"),
			},
			want: []StepType{WrapTransaction, TokenApprovalTransaction, UniswapXSignature},
		},
		{
			name: "bridge",
			info: &domain.SwapTxAndGasInfo{
				Routing:    domain.RoutingBridge,
				Trade:      bridge,
				Approval:   approve,
				TxRequests: []*domain.TransactionRequest{tx("0xspoke")},
			},
			want: []StepType{TokenApprovalTransaction, BridgeTransaction},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(tt.info)
			assert.NoError(t, err)
			assert.DeepEqual(t, Kinds(got), tt.want)
			for _, s := range got {
				assert.Equal(t, s.Status, StatusPreview)
			}
		})
	}
}

func TestGenerateRejectsRoutingMismatch(t *testing.T) {
	info := classicInfo(noApproval, nil, false)
	info.Routing = domain.RoutingBridge
	_, err := Generate(info)
	assert.True(t, errors.Is(err, ErrRoutingMismatch))

	_, err = Generate(&domain.SwapTxAndGasInfo{Routing: "LIMIT_ORDER"})
	assert.True(t, errors.Is(err, ErrUnsupportedRouting))

	missing := classicInfo(noApproval, nil, false)
	missing.TxRequests = nil
	_, err = Generate(missing)
	assert.True(t, errors.Is(err, ErrMissingTxRequest))
}

func TestGenerateIsIdempotent(t *testing.T) {
	info := classicInfo(approve, permitAt(time.Now().Add(time.Hour)), true)

	first, err := Generate(info)
	assert.NoError(t, err)
	second, err := Generate(info)
	assert.NoError(t, err)
	assert.DeepEqual(t, Kinds(first), Kinds(second))

	f := NewFlow(first)
	i, err := f.Start()
	assert.NoError(t, err)
	assert.NoError(t, f.Begin(i))

	for idx := range second {
		assert.True(t, first[idx] != second[idx])
		assert.Equal(t, second[idx].Status, StatusPreview)
	}
}

func TestGenerateIncreasePosition(t *testing.T) {
	info := &domain.IncreasePositionTxAndGasInfo{
		Approvals:  [2]domain.ApprovalTxInfo{revoke, approve},
		Permit:     permitAt(time.Now().Add(time.Hour)),
		UnsignedTx: true,
	}
	got, err := GenerateIncreasePosition(info)
	assert.NoError(t, err)
	assert.DeepEqual(t, Kinds(got), []StepType{
		TokenRevocationTransaction,
		TokenApprovalTransaction,
		TokenApprovalTransaction,
		Permit2Signature,
		IncreasePositionTransactionAsync,
	})
	assert.Equal(t, got[1].Token.Address, usdt.Address)
	assert.Equal(t, got[2].Token.Address, usdc.Address)

	plain, err := GenerateIncreasePosition(&domain.IncreasePositionTxAndGasInfo{TxRequest: tx("0xpm")})
	assert.NoError(t, err)
	assert.DeepEqual(t, Kinds(plain), []StepType{IncreasePositionTransaction})
}

func TestFlowEnforcesOrder(t *testing.T) {
	list, err := Generate(classicInfo(approve, permitAt(time.Now().Add(time.Hour)), true))
	assert.NoError(t, err)
	f := NewFlow(list)

	i, err := f.Start()
	assert.NoError(t, err)
	assert.Equal(t, i, 0)

	assert.True(t, errors.Is(f.Begin(1), ErrOutOfOrder))
	assert.True(t, errors.Is(f.Complete(0, Result{}), ErrInvalidTransition))

	assert.NoError(t, f.Begin(0))
	assert.True(t, f.Executing())
	assert.NoError(t, f.Complete(0, Result{TxHash: "0xapprove"}))

	steps := f.Steps()
	assert.Equal(t, steps[1].Status, StatusActive)
	assert.Equal(t, steps[2].Status, StatusPreview)

	// The permit must carry a signature for its consumer.
	assert.NoError(t, f.Begin(1))
	assert.True(t, errors.Is(f.Complete(1, Result{}), ErrSignatureRequired))
	assert.NoError(t, f.Complete(1, Result{Signature: "0xpermit"}))

	steps = f.Steps()
	assert.Equal(t, steps[2].Status, StatusActive)
	assert.Equal(t, steps[2].Signature, "0xpermit")

	assert.NoError(t, f.SetTxRequest(2, tx("0xrouter")))
	assert.NoError(t, f.Begin(2))
	assert.True(t, f.Executing())
	assert.NoError(t, f.Complete(2, Result{TxHash: "0xswap"}))
	assert.True(t, f.Done())
	assert.False(t, f.Executing())
}

func TestAsyncStepWaitsForSignature(t *testing.T) {
	list := []*Step{{Type: SwapTransactionAsync, Status: StatusPreview, ConsumesSignature: true}}
	f := NewFlow(list)
	_, err := f.Start()
	assert.True(t, errors.Is(err, ErrSignatureRequired))
	assert.Equal(t, f.Steps()[0].Status, StatusPreview)
}

func TestFlowFailAndRetry(t *testing.T) {
	list, err := Generate(classicInfo(approve, nil, false))
	assert.NoError(t, err)
	f := NewFlow(list)

	_, err = f.Start()
	assert.NoError(t, err)
	assert.NoError(t, f.Begin(0))
	assert.NoError(t, f.Fail(0, errors.New("user rejected")))

	s := f.Steps()[0]
	assert.Equal(t, s.Status, StatusFailed)
	assert.Equal(t, s.Error, "user rejected")
	assert.False(t, f.Steps()[1].Status == StatusActive)

	assert.NoError(t, f.Retry(0))
	assert.Equal(t, f.Steps()[0].Status, StatusActive)
	assert.Equal(t, f.Steps()[0].Error, "")
}

func waitForStatus(t *testing.T, f *Flow, i int, want Status) {
	t.Helper()
	for n := 0; n < 200; n++ {
		if f.Steps()[i].Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("step %d never reached %s, got %s", i, want, f.Steps()[i].Status)
}

func TestDeadlineExpiry(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_000, 0))

	list, err := Generate(classicInfo(noApproval, permitAt(mock.Now().Add(5*time.Second)), true))
	assert.NoError(t, err)
	f := NewFlow(list, WithClock(mock))

	i, err := f.Start()
	assert.NoError(t, err)
	assert.Equal(t, list[i].Type, Permit2Signature)
	remaining, ok := f.Remaining(i)
	assert.True(t, ok)
	assert.Equal(t, remaining, 5*time.Second)

	mock.Add(5 * time.Second)
	waitForStatus(t, f, i, StatusTimedOut)

	assert.True(t, f.TimedOut())
	assert.True(t, errors.Is(f.Retry(i), ErrStepTimedOut))
	_, err = f.Start()
	assert.True(t, errors.Is(err, ErrStepTimedOut))
}

func TestDeadlineStopsOnceInProgress(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_000, 0))

	list, err := Generate(classicInfo(noApproval, permitAt(mock.Now().Add(5*time.Second)), true))
	assert.NoError(t, err)
	f := NewFlow(list, WithClock(mock))

	i, err := f.Start()
	assert.NoError(t, err)
	assert.NoError(t, f.Begin(i))
	mock.Add(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, f.Steps()[i].Status, StatusInProgress)
}

func TestExpiredDeadlineOnActivation(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_000, 0))

	list, err := Generate(classicInfo(noApproval, permitAt(mock.Now().Add(-time.Second)), true))
	assert.NoError(t, err)
	f := NewFlow(list, WithClock(mock))

	_, err = f.Start()
	assert.True(t, errors.Is(err, ErrStepTimedOut))
	assert.Equal(t, f.Steps()[0].Status, StatusTimedOut)
}

func TestAbort(t *testing.T) {
	list, err := Generate(classicInfo(approve, nil, false))
	assert.NoError(t, err)

	var seen []Status
	f := NewFlow(list, WithListener(func(_ int, s Step) { seen = append(seen, s.Status) }))

	i, err := f.Start()
	assert.NoError(t, err)
	assert.NoError(t, f.Begin(i))
	assert.True(t, f.Executing())

	f.Abort()
	assert.False(t, f.Executing())
	assert.Equal(t, f.Steps()[0].Status, StatusFailed)
	assert.Equal(t, f.Steps()[1].Status, StatusPreview)
	assert.DeepEqual(t, seen, []Status{StatusActive, StatusInProgress, StatusFailed})

	_, err = f.Start()
	assert.True(t, errors.Is(err, ErrFlowAborted))
	assert.True(t, errors.Is(f.Complete(0, Result{}), ErrFlowAborted))
}
