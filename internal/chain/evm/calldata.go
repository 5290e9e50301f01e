package evm

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"

	appcommon "github.com/hxuan190/swap-engine/internal/common"
	"github.com/hxuan190/swap-engine/internal/domain"
)

var (
	erc20ABI = mustABI(appcommon.ERC20ABI)
	wethABI  = mustABI(appcommon.WETHABI)
)

func mustABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// ApproveTx builds approve(spender, amount) on token. Amount "0" revokes.
func ApproveTx(chain domain.ChainID, owner, token, spender string, amount *big.Int) (*domain.TransactionRequest, error) {
	data, err := erc20ABI.Pack("approve", common.HexToAddress(spender), amount)
	if err != nil {
		return nil, errors.Wrap(err, "pack approve")
	}
	return &domain.TransactionRequest{
		ChainID: chain,
		From:    owner,
		To:      token,
		Data:    hexutil.Encode(data),
		Value:   big.NewInt(0),
	}, nil
}

// WrapTx builds WETH deposit() carrying amount as value.
func WrapTx(chain domain.ChainID, owner string, amount *big.Int) (*domain.TransactionRequest, error) {
	weth := chain.Info().WrappedNative
	if weth == "" {
		return nil, errors.Errorf("no wrapped native token on chain %d", chain)
	}
	data, err := wethABI.Pack("deposit")
	if err != nil {
		return nil, errors.Wrap(err, "pack deposit")
	}
	return &domain.TransactionRequest{
		ChainID: chain,
		From:    owner,
		To:      weth,
		Data:    hexutil.Encode(data),
		Value:   new(big.Int).Set(amount),
	}, nil
}

// UnwrapTx builds WETH withdraw(amount).
func UnwrapTx(chain domain.ChainID, owner string, amount *big.Int) (*domain.TransactionRequest, error) {
	weth := chain.Info().WrappedNative
	if weth == "" {
		return nil, errors.Errorf("no wrapped native token on chain %d", chain)
	}
	data, err := wethABI.Pack("withdraw", amount)
	if err != nil {
		return nil, errors.Wrap(err, "pack withdraw")
	}
	return &domain.TransactionRequest{
		ChainID: chain,
		From:    owner,
		To:      weth,
		Data:    hexutil.Encode(data),
		Value:   big.NewInt(0),
	}, nil
}
