package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

type ChainID uint64

const (
	ChainMainnet    ChainID = 1
	ChainOptimism   ChainID = 10
	ChainBNB        ChainID = 56
	ChainUnichain   ChainID = 130
	ChainPolygon    ChainID = 137
	ChainZkSync     ChainID = 324
	ChainWorldChain ChainID = 480
	ChainBase       ChainID = 8453
	ChainArbitrum   ChainID = 42161
	ChainAvalanche  ChainID = 43114
	ChainBlast      ChainID = 81457
	ChainZora       ChainID = 7777777
	ChainSepolia    ChainID = 11155111
	ChainSolana     ChainID = 501000101
	ChainUnknown    ChainID = 0
)

type Platform string

const (
	PlatformEVM Platform = "EVM"
	PlatformSVM Platform = "SVM"
)

// NativeAddressForTradingAPI is how the pricing API expects the native asset.
const NativeAddressForTradingAPI = "0x0000000000000000000000000000000000000000"

type ChainInfo struct {
	ID       ChainID
	Name     string
	Platform Platform
	IsL2     bool
	// WrappedNative is the ERC-20 wrapper of the chain's native asset.
	WrappedNative string
}

var chains = map[ChainID]ChainInfo{
	ChainMainnet:    {ID: ChainMainnet, Name: "ethereum", Platform: PlatformEVM, WrappedNative: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"},
	ChainOptimism:   {ID: ChainOptimism, Name: "optimism", Platform: PlatformEVM, IsL2: true, WrappedNative: "0x4200000000000000000000000000000000000006"},
	ChainBNB:        {ID: ChainBNB, Name: "bnb", Platform: PlatformEVM, WrappedNative: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"},
	ChainUnichain:   {ID: ChainUnichain, Name: "unichain", Platform: PlatformEVM, IsL2: true, WrappedNative: "0x4200000000000000000000000000000000000006"},
	ChainPolygon:    {ID: ChainPolygon, Name: "polygon", Platform: PlatformEVM, WrappedNative: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"},
	ChainZkSync:     {ID: ChainZkSync, Name: "zksync", Platform: PlatformEVM, IsL2: true, WrappedNative: "0x5AEa5775959fBC2557Cc8789bC1bf90A239D9a91"},
	ChainWorldChain: {ID: ChainWorldChain, Name: "worldchain", Platform: PlatformEVM, IsL2: true, WrappedNative: "0x4200000000000000000000000000000000000006"},
	ChainBase:       {ID: ChainBase, Name: "base", Platform: PlatformEVM, IsL2: true, WrappedNative: "0x4200000000000000000000000000000000000006"},
	ChainArbitrum:   {ID: ChainArbitrum, Name: "arbitrum", Platform: PlatformEVM, IsL2: true, WrappedNative: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"},
	ChainAvalanche:  {ID: ChainAvalanche, Name: "avalanche", Platform: PlatformEVM, WrappedNative: "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7"},
	ChainBlast:      {ID: ChainBlast, Name: "blast", Platform: PlatformEVM, IsL2: true, WrappedNative: "0x4300000000000000000000000000000000000004"},
	ChainZora:       {ID: ChainZora, Name: "zora", Platform: PlatformEVM, IsL2: true, WrappedNative: "0x4200000000000000000000000000000000000006"},
	ChainSepolia:    {ID: ChainSepolia, Name: "sepolia", Platform: PlatformEVM, WrappedNative: "0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"},
	ChainSolana:     {ID: ChainSolana, Name: "solana", Platform: PlatformSVM},
}

func LookupChain(id ChainID) (ChainInfo, bool) {
	info, ok := chains[id]
	return info, ok
}

func (c ChainID) Info() ChainInfo {
	if info, ok := chains[c]; ok {
		return info
	}
	return ChainInfo{ID: c, Platform: PlatformEVM}
}

func (c ChainID) IsL2() bool {
	return c.Info().IsL2
}

func (c ChainID) IsSolana() bool {
	return c.Info().Platform == PlatformSVM
}

func (c ChainID) Supported() bool {
	_, ok := chains[c]
	return ok
}

// IsSolanaAddress reports whether addr parses as a base58 ed25519 public key
// and not as a hex address.
func IsSolanaAddress(addr string) bool {
	if strings.HasPrefix(addr, "0x") {
		return false
	}
	_, err := solana.PublicKeyFromBase58(addr)
	return err == nil
}

// ValidAddress checks addr against the address format of the chain's platform.
func ValidAddress(chain ChainID, addr string) bool {
	if chain.IsSolana() {
		return IsSolanaAddress(addr)
	}
	return common.IsHexAddress(addr)
}
