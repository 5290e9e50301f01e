package evm

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
)

var ErrChainMismatch = errors.New("typed data chain id mismatch")

// LocalSigner signs EIP-712 typed data with an in-process key. It backs
// headless deployments where permits may be pre-signed without a prompt.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewLocalSigner(hexKey string) (*LocalSigner, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, errors.Wrap(err, "parse signer key")
	}
	return &LocalSigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (s *LocalSigner) Address() string {
	return s.address.Hex()
}

// SignTypedData returns a 65-byte [R || S || V] signature with V in {27, 28}.
func (s *LocalSigner) SignTypedData(_ context.Context, td apitypes.TypedData) (string, error) {
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return "", errors.Wrap(err, "hash typed data")
	}
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return "", errors.Wrap(err, "sign typed data")
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// CheckChain rejects typed data whose domain targets a different chain.
func CheckChain(td apitypes.TypedData, chainID uint64) error {
	if td.Domain.ChainId == nil {
		return nil
	}
	got := (*big.Int)(td.Domain.ChainId)
	if got.Cmp(new(big.Int).SetUint64(chainID)) != 0 {
		return errors.Wrapf(ErrChainMismatch, "domain %s, expected %d", got, chainID)
	}
	return nil
}

// RecoverTypedDataSigner returns the address that produced sig over td.
func RecoverTypedDataSigner(td apitypes.TypedData, sig string) (string, error) {
	raw, err := hexutil.Decode(sig)
	if err != nil {
		return "", errors.Wrap(err, "decode signature")
	}
	if len(raw) != crypto.SignatureLength {
		return "", errors.New("invalid signature length")
	}
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return "", errors.Wrap(err, "hash typed data")
	}
	raw = append([]byte(nil), raw...)
	if raw[crypto.RecoveryIDOffset] >= 27 {
		raw[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(hash, raw)
	if err != nil {
		return "", errors.Wrap(err, "recover signer")
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}
