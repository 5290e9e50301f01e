package evm

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
	"github.com/zeebo/assert"

	"github.com/hxuan190/swap-engine/internal/domain"
)

const (
	testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
	owner   = "0x1111111111111111111111111111111111111111"
	usdt    = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
)

type fakeBackend struct {
	allowance *big.Int
	baseFee   *big.Int
	lastCall  ethereum.CallMsg
	lastEst   ethereum.CallMsg
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.lastCall = msg
	return erc20ABI.Methods["allowance"].Outputs.Pack(f.allowance)
}

func (f *fakeBackend) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.lastEst = msg
	return 46000, nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(3_000_000_000), nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: f.baseFee}, nil
}

func TestAllowance(t *testing.T) {
	backend := &fakeBackend{allowance: big.NewInt(12345)}
	c := NewClient(map[domain.ChainID]Backend{domain.ChainMainnet: backend})

	got, err := c.Allowance(context.Background(), domain.ChainMainnet, usdt, owner, domain.Permit2Address)
	assert.NoError(t, err)
	assert.Equal(t, got.Int64(), int64(12345))
	assert.Equal(t, strings.ToLower(backend.lastCall.To.Hex()), strings.ToLower(usdt))
	assert.Equal(t, hexutil.Encode(backend.lastCall.Data[:4]), "0xdd62ed3e")

	_, err = c.Allowance(context.Background(), domain.ChainBase, usdt, owner, domain.Permit2Address)
	assert.True(t, errors.Is(err, ErrUnsupportedChain))
	assert.False(t, c.Supports(domain.ChainBase))
}

func TestFeeData(t *testing.T) {
	ctx := context.Background()

	eip1559 := NewClient(map[domain.ChainID]Backend{domain.ChainMainnet: &fakeBackend{baseFee: big.NewInt(10_000_000_000)}})
	fees, err := eip1559.FeeData(ctx, domain.ChainMainnet)
	assert.NoError(t, err)
	assert.Equal(t, fees.BaseFee.Int64(), int64(10_000_000_000))
	assert.Equal(t, fees.TipCap.Int64(), int64(1_000_000_000))
	assert.Nil(t, fees.GasPrice)

	legacy := NewClient(map[domain.ChainID]Backend{domain.ChainBNB: &fakeBackend{}})
	fees, err = legacy.FeeData(ctx, domain.ChainBNB)
	assert.NoError(t, err)
	assert.Nil(t, fees.BaseFee)
	assert.Equal(t, fees.GasPrice.Int64(), int64(3_000_000_000))
}

func TestEstimateGasPassesCalldata(t *testing.T) {
	backend := &fakeBackend{}
	c := NewClient(map[domain.ChainID]Backend{domain.ChainMainnet: backend})

	tx, err := WrapTx(domain.ChainMainnet, owner, big.NewInt(5))
	assert.NoError(t, err)
	units, err := c.EstimateGas(context.Background(), tx)
	assert.NoError(t, err)
	assert.Equal(t, units, uint64(46000))
	assert.Equal(t, backend.lastEst.Value.Int64(), int64(5))
	assert.Equal(t, hexutil.Encode(backend.lastEst.Data), "0xd0e30db0")

	_, err = c.EstimateGas(context.Background(), &domain.TransactionRequest{ChainID: domain.ChainMainnet, Data: "zz"})
	assert.Error(t, err)
}

func TestCalldata(t *testing.T) {
	approve, err := ApproveTx(domain.ChainMainnet, owner, usdt, domain.Permit2Address, big.NewInt(0))
	assert.NoError(t, err)
	assert.Equal(t, approve.To, usdt)
	assert.True(t, strings.HasPrefix(approve.Data, "0x095ea7b3"))
	assert.Equal(t, approve.Value.Sign(), 0)

	wrap, err := WrapTx(domain.ChainBase, owner, big.NewInt(7))
	assert.NoError(t, err)
	assert.Equal(t, wrap.To, domain.ChainBase.Info().WrappedNative)
	assert.Equal(t, wrap.Value.Int64(), int64(7))

	unwrap, err := UnwrapTx(domain.ChainMainnet, owner, big.NewInt(7))
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(unwrap.Data, "0x2e1a7d4d"))
	assert.Equal(t, unwrap.Value.Sign(), 0)

	_, err = WrapTx(domain.ChainSolana, owner, big.NewInt(1))
	assert.Error(t, err)
}

func typedData(chainID int64) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Permit": {
				{Name: "spender", Type: "address"},
				{Name: "amount", Type: "uint256"},
			},
		},
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              "Permit2",
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: domain.Permit2Address,
		},
		Message: apitypes.TypedDataMessage{
			"spender": "0x3fC91A3afd70395Cd496C647d5a6CC9D4B2b7FAD",
			"amount":  "1000000",
		},
	}
}

func TestSignAndRecover(t *testing.T) {
	signer, err := NewLocalSigner(testKey)
	assert.NoError(t, err)

	td := typedData(1)
	sig, err := signer.SignTypedData(context.Background(), td)
	assert.NoError(t, err)

	raw, err := hexutil.Decode(sig)
	assert.NoError(t, err)
	assert.Equal(t, len(raw), 65)
	assert.True(t, raw[64] == 27 || raw[64] == 28)

	got, err := RecoverTypedDataSigner(td, sig)
	assert.NoError(t, err)
	assert.Equal(t, got, signer.Address())

	_, err = RecoverTypedDataSigner(td, "0x1234")
	assert.Error(t, err)

	_, err = NewLocalSigner("not-a-key")
	assert.Error(t, err)
}

func TestCheckChain(t *testing.T) {
	assert.NoError(t, CheckChain(typedData(1), 1))
	assert.True(t, errors.Is(CheckChain(typedData(8453), 1), ErrChainMismatch))
	assert.NoError(t, CheckChain(apitypes.TypedData{}, 1))
}
