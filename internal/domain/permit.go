package domain

import (
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Permit2Address is the canonical Permit2 deployment, identical on every EVM chain.
const Permit2Address = "0x000000000022d473030f116ddee9f6b43ac78ba3"

// Permit holds EIP-712 typed data that must be signed before a dependent
// transaction can be built or an order submitted.
type Permit struct {
	TypedData apitypes.TypedData `json:"typedData"`
}

func NewPermit(domain apitypes.TypedDataDomain, types apitypes.Types, primaryType string, message apitypes.TypedDataMessage) *Permit {
	return &Permit{TypedData: apitypes.TypedData{
		Types:       types,
		PrimaryType: primaryType,
		Domain:      domain,
		Message:     message,
	}}
}

// NullablePermit is nil when no signature is required.
type NullablePermit = *Permit
