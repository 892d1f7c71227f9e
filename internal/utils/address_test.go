package utils

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestNormalizeAddress(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0xABCDEF1234567890abcdef1234567890ABCDEF12", "0xabcdef1234567890abcdef1234567890abcdef12"},
		{"abcdef1234567890abcdef1234567890abcdef12", "0xabcdef1234567890abcdef1234567890abcdef12"},
		{"  0xAbCd00000000000000000000000000000000EF12  ", "0xabcd00000000000000000000000000000000ef12"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeAddress(tc.in); got != tc.want {
			t.Errorf("NormalizeAddress(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsZeroAddress(t *testing.T) {
	if !IsZeroAddress(ZeroAddress) {
		t.Error("canonical zero address not recognized")
	}
	if !IsZeroAddress("0X0000000000000000000000000000000000000000") {
		t.Error("uppercase-prefixed zero address not recognized")
	}
	if !IsZeroAddress("") {
		t.Error("empty string should count as zero")
	}
	if IsZeroAddress("0x0000000000000000000000000000000000000001") {
		t.Error("non-zero address reported as zero")
	}
}

func TestParseAddress(t *testing.T) {
	parsed, err := ParseAddress("0x1111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("valid address rejected: %v", err)
	}
	if AddressKey(parsed) != "0x1111111111111111111111111111111111111111" {
		t.Fatalf("unexpected key: %s", AddressKey(parsed))
	}

	if _, err := ParseAddress("not-an-address"); err == nil {
		t.Error("garbage accepted")
	}
	if _, err := ParseAddress("0x1234"); err == nil {
		t.Error("short hex accepted")
	}
	if _, err := ParseAddress(ZeroAddress); err == nil {
		t.Error("zero address accepted")
	}
}

func TestAddressKeyIsLowercase(t *testing.T) {
	addr := common.HexToAddress("0xABCDEF1234567890ABCDEF1234567890ABCDEF12")
	key := AddressKey(addr)
	if key != "0xabcdef1234567890abcdef1234567890abcdef12" {
		t.Fatalf("key not lowercased: %s", key)
	}
	if NormalizeAddress(addr.Hex()) != key {
		t.Fatal("AddressKey and NormalizeAddress disagree")
	}
}
