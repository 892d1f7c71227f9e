package utils

import (
	"math/big"
	"testing"
)

func TestParseWei(t *testing.T) {
	v, err := ParseWei("1000000000000000000")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v.String() != "1000000000000000000" {
		t.Fatalf("value mismatch: %s", v)
	}

	// column defaults round-trip as zero
	v, err = ParseWei("")
	if err != nil {
		t.Fatalf("empty string: %v", err)
	}
	if v.Sign() != 0 {
		t.Fatalf("empty string should parse to zero, got %s", v)
	}

	if _, err := ParseWei("12.5"); err == nil {
		t.Error("fractional wei accepted")
	}
	if _, err := ParseWei("-1"); err == nil {
		t.Error("negative wei accepted")
	}
	if _, err := ParseWei("0x10"); err == nil {
		t.Error("hex wei accepted")
	}
}

func TestParseWeiFullPrecision(t *testing.T) {
	// 78 decimal digits, the widest value the NUMERIC(78,0) columns hold
	wide := "115792089237316195423570985008687907853269984665640564039457584007913129639935"
	v, err := ParseWei(wide)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if FormatWei(v) != wide {
		t.Fatal("full-precision value did not round-trip")
	}
}

func TestFormatWei(t *testing.T) {
	if FormatWei(nil) != "0" {
		t.Error("nil should format as 0")
	}
	if FormatWei(big.NewInt(42)) != "42" {
		t.Error("plain value misformatted")
	}
}

func TestWeiToEtherString(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1000000000000000000", "1"},
		{"1500000000000000000", "1.5"},
		{"1000000000000000", "0.001"},
	}
	for _, tc := range cases {
		v, _ := new(big.Int).SetString(tc.in, 10)
		if got := WeiToEtherString(v); got != tc.want {
			t.Errorf("WeiToEtherString(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if WeiToEtherString(nil) != "0" {
		t.Error("nil should format as 0")
	}
}
