// Package evm reads allowances and fee data from EVM JSON-RPC endpoints and
// packs the calldata the swap flow needs.
package evm

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/swap-engine/internal/domain"
)

var ErrUnsupportedChain = errors.New("no rpc endpoint for chain")

// FeeData is the latest fee market snapshot for a chain.
type FeeData struct {
	BaseFee  *big.Int
	TipCap   *big.Int
	GasPrice *big.Int
}

// Backend is the subset of ethclient the reader uses.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

type Client struct {
	mu       sync.RWMutex
	backends map[domain.ChainID]Backend
	closers  []func()
}

// Dial connects to every configured endpoint. Chains that fail to dial are
// logged and skipped.
func Dial(ctx context.Context, urls map[uint64]string) *Client {
	c := &Client{backends: make(map[domain.ChainID]Backend, len(urls))}
	for chain, url := range urls {
		ec, err := ethclient.DialContext(ctx, url)
		if err != nil {
			log.Error().Err(err).Uint64("chainId", chain).Msg("[evm] failed to dial rpc")
			continue
		}
		c.backends[domain.ChainID(chain)] = ec
		c.closers = append(c.closers, ec.Close)
	}
	return c
}

// NewClient wraps pre-built backends.
func NewClient(backends map[domain.ChainID]Backend) *Client {
	return &Client{backends: backends}
}

func (c *Client) backend(chain domain.ChainID) (Backend, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.backends[chain]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedChain, "chain %d", chain)
	}
	return b, nil
}

func (c *Client) Supports(chain domain.ChainID) bool {
	_, err := c.backend(chain)
	return err == nil
}

func (c *Client) Allowance(ctx context.Context, chain domain.ChainID, token, owner, spender string) (*big.Int, error) {
	b, err := c.backend(chain)
	if err != nil {
		return nil, err
	}
	data, err := erc20ABI.Pack("allowance", common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, errors.Wrap(err, "pack allowance")
	}
	tokenAddr := common.HexToAddress(token)
	out, err := b.CallContract(ctx, ethereum.CallMsg{To: &tokenAddr, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "allowance(%s)", token)
	}
	res, err := erc20ABI.Unpack("allowance", out)
	if err != nil {
		return nil, errors.Wrap(err, "unpack allowance")
	}
	if len(res) == 0 {
		return nil, errors.New("empty allowance result")
	}
	v, ok := res[0].(*big.Int)
	if !ok {
		return nil, errors.New("unexpected allowance type")
	}
	return v, nil
}

func (c *Client) EstimateGas(ctx context.Context, tx *domain.TransactionRequest) (uint64, error) {
	b, err := c.backend(tx.ChainID)
	if err != nil {
		return 0, err
	}
	data, err := hexutil.Decode(orEmptyHex(tx.Data))
	if err != nil {
		return 0, errors.Wrap(err, "decode calldata")
	}
	to := common.HexToAddress(tx.To)
	gas, err := b.EstimateGas(ctx, ethereum.CallMsg{
		From:  common.HexToAddress(tx.From),
		To:    &to,
		Value: tx.Value,
		Data:  data,
	})
	if err != nil {
		return 0, errors.Wrap(err, "estimate gas")
	}
	return gas, nil
}

func (c *Client) FeeData(ctx context.Context, chain domain.ChainID) (FeeData, error) {
	b, err := c.backend(chain)
	if err != nil {
		return FeeData{}, err
	}
	head, err := b.HeaderByNumber(ctx, nil)
	if err != nil {
		return FeeData{}, errors.Wrap(err, "latest header")
	}
	if head.BaseFee == nil {
		price, err := b.SuggestGasPrice(ctx)
		if err != nil {
			return FeeData{}, errors.Wrap(err, "suggest gas price")
		}
		return FeeData{GasPrice: price}, nil
	}
	tip, err := b.SuggestGasTipCap(ctx)
	if err != nil {
		return FeeData{}, errors.Wrap(err, "suggest tip")
	}
	return FeeData{BaseFee: head.BaseFee, TipCap: tip}, nil
}

func (c *Client) Close() {
	for _, closeFn := range c.closers {
		closeFn()
	}
}

func orEmptyHex(s string) string {
	if s == "" {
		return "0x"
	}
	return s
}
