package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type RPCConfig struct {
	// URLs maps an EVM chain id to its JSON-RPC endpoint.
	URLs map[uint64]string
	// SignerPrivateKey is a hex key for headless permit signing. Optional.
	SignerPrivateKey string
}

func (r *RPCConfig) Key() string {
	return RPC_CONFIG_KEY
}

// Load reads EVM_RPC_URLS in the form "1=https://a,8453=https://b".
func (r *RPCConfig) Load() error {
	urls, err := parseChainMap(os.Getenv("EVM_RPC_URLS"), func(v string) (string, error) { return v, nil })
	if err != nil {
		return fmt.Errorf("EVM_RPC_URLS: %w", err)
	}
	r.URLs = urls
	r.SignerPrivateKey = strings.TrimPrefix(os.Getenv("SIGNER_PRIVATE_KEY"), "0x")
	return r.Validate()
}

func (r *RPCConfig) Validate() error {
	for chain, url := range r.URLs {
		if url == "" {
			return errors.New("invalid rpc config: empty url for chain " + strconv.FormatUint(chain, 10))
		}
	}
	return nil
}

func parseChainMap[V any](raw string, parse func(string) (V, error)) (map[uint64]V, error) {
	out := make(map[uint64]V)
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			k, v, ok = strings.Cut(part, ":")
		}
		if !ok {
			return nil, fmt.Errorf("malformed entry %q", part)
		}
		chain, err := strconv.ParseUint(strings.TrimSpace(k), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed chain id %q: %w", k, err)
		}
		val, err := parse(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("malformed value for chain %d: %w", chain, err)
		}
		out[chain] = val
	}
	return out, nil
}
