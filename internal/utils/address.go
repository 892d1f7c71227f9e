package utils

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is the null identity. Ownership renounced to this address can
// never be recovered.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// NormalizeAddress lowercases and 0x-prefixes a hex address so that map keys
// and database lookups are case-insensitive.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		addr = "0x" + addr
	}
	return strings.ToLower(addr)
}

// IsValidAddress reports whether addr is a 20-byte hex address.
func IsValidAddress(addr string) bool {
	return common.IsHexAddress(strings.TrimSpace(addr))
}

// IsZeroAddress reports whether addr is the null identity (or empty).
func IsZeroAddress(addr string) bool {
	normalized := NormalizeAddress(addr)
	return normalized == "" || normalized == ZeroAddress
}

// ParseAddress validates and parses a hex address, rejecting the zero
// address. Used everywhere an identity argument must be non-null.
func ParseAddress(addr string) (common.Address, error) {
	trimmed := strings.TrimSpace(addr)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address: %q", addr)
	}
	parsed := common.HexToAddress(trimmed)
	if parsed == (common.Address{}) {
		return common.Address{}, fmt.Errorf("zero address not allowed")
	}
	return parsed, nil
}

// AddressKey converts a common.Address to the canonical storage form.
func AddressKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
