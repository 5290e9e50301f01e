package tradingapi

import (
	"encoding/json"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"

	"github.com/hxuan190/swap-engine/internal/domain"
)

const (
	permitSinglePrimaryType = "PermitSingle"
	permitWitnessPrimary    = "PermitWitnessTransferFrom"
)

var eip712DomainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// ToPermit converts API permit data into signable typed data.
func (p *PermitData) ToPermit() (*domain.Permit, error) {
	if p == nil {
		return nil, nil
	}
	var (
		dom    apitypes.TypedDataDomain
		types  apitypes.Types
		values apitypes.TypedDataMessage
	)
	if err := sonic.Unmarshal(p.Domain, &dom); err != nil {
		return nil, errors.Wrap(err, "decode permit domain")
	}
	if err := sonic.Unmarshal(p.Types, &types); err != nil {
		return nil, errors.Wrap(err, "decode permit types")
	}
	if err := sonic.Unmarshal(p.Values, &values); err != nil {
		return nil, errors.Wrap(err, "decode permit values")
	}
	if _, ok := types["EIP712Domain"]; !ok {
		types["EIP712Domain"] = domainTypeFor(dom)
	}
	return domain.NewPermit(dom, types, primaryTypeOf(types), values), nil
}

// FromPermit is the inverse of ToPermit, used when echoing permit data to /swap.
func FromPermit(permit *domain.Permit) (*PermitData, error) {
	if permit == nil {
		return nil, nil
	}
	dom, err := sonic.Marshal(permit.TypedData.Domain)
	if err != nil {
		return nil, errors.Wrap(err, "encode permit domain")
	}
	types := make(apitypes.Types, len(permit.TypedData.Types))
	for k, v := range permit.TypedData.Types {
		if k != "EIP712Domain" {
			types[k] = v
		}
	}
	ty, err := sonic.Marshal(types)
	if err != nil {
		return nil, errors.Wrap(err, "encode permit types")
	}
	vals, err := sonic.Marshal(permit.TypedData.Message)
	if err != nil {
		return nil, errors.Wrap(err, "encode permit values")
	}
	return &PermitData{Domain: json.RawMessage(dom), Types: json.RawMessage(ty), Values: json.RawMessage(vals)}, nil
}

func domainTypeFor(dom apitypes.TypedDataDomain) []apitypes.Type {
	out := make([]apitypes.Type, 0, 4)
	if dom.Name != "" {
		out = append(out, eip712DomainType[0])
	}
	if dom.Version != "" {
		out = append(out, apitypes.Type{Name: "version", Type: "string"})
	}
	if dom.ChainId != nil {
		out = append(out, eip712DomainType[1])
	}
	if dom.VerifyingContract != "" {
		out = append(out, eip712DomainType[2])
	}
	return out
}

// primaryTypeOf picks the one non-domain type that no other type references.
func primaryTypeOf(types apitypes.Types) string {
	for _, known := range []string{permitSinglePrimaryType, permitWitnessPrimary} {
		if _, ok := types[known]; ok {
			return known
		}
	}
	referenced := make(map[string]bool)
	for _, fields := range types {
		for _, f := range fields {
			referenced[strings.TrimSuffix(f.Type, "[]")] = true
		}
	}
	for name := range types {
		if name != "EIP712Domain" && !referenced[name] {
			return name
		}
	}
	return ""
}
