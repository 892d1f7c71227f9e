package utils

import (
	"fmt"
	"math/big"
	"strings"
)

var weiPerEther = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// ParseWei parses a decimal wei string (as stored in NUMERIC(78,0) columns)
// into a big.Int. Empty strings are treated as zero so that freshly created
// rows with column defaults round-trip cleanly.
func ParseWei(s string) (*big.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid wei amount: %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative wei amount: %q", s)
	}
	return v, nil
}

// MustParseWei is ParseWei for values the code itself wrote. A parse failure
// here means the database was modified out of band.
func MustParseWei(s string) *big.Int {
	v, err := ParseWei(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatWei renders a big.Int for storage. Nil is stored as "0".
func FormatWei(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// WeiToEtherString formats a wei amount as a decimal ether string for API
// responses and log lines. Precision 18 covers the full wei resolution.
func WeiToEtherString(v *big.Int) string {
	if v == nil || v.Sign() == 0 {
		return "0"
	}
	f := new(big.Float).SetInt(v)
	f.Quo(f, weiPerEther)
	out := f.Text('f', 18)
	out = strings.TrimRight(out, "0")
	out = strings.TrimSuffix(out, ".")
	if out == "" {
		return "0"
	}
	return out
}
