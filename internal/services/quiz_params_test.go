package services

import (
	"math/big"
	"testing"
)

func TestQuizParamsRoundtrip(t *testing.T) {
	correct, _ := new(big.Int).SetString("1000000000000000000", 10)
	incorrect := big.NewInt(25_000_000)

	blob, err := EncodeQuizParams(correct, incorrect)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(blob) != 64 {
		t.Fatalf("expected two packed uint256 words, got %d bytes", len(blob))
	}

	gotCorrect, gotIncorrect, err := DecodeQuizParams(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotCorrect.Cmp(correct) != 0 || gotIncorrect.Cmp(incorrect) != 0 {
		t.Fatalf("roundtrip mismatch: got (%s, %s)", gotCorrect, gotIncorrect)
	}
}

func TestQuizParamsNilRatesEncodeAsZero(t *testing.T) {
	blob, err := EncodeQuizParams(nil, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	correct, incorrect, err := DecodeQuizParams(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if correct.Sign() != 0 || incorrect.Sign() != 0 {
		t.Fatalf("nil rates should decode to zero, got (%s, %s)", correct, incorrect)
	}
}

func TestQuizParamsRejectNegativeRates(t *testing.T) {
	if _, err := EncodeQuizParams(big.NewInt(-1), big.NewInt(0)); err == nil {
		t.Fatal("negative correct reward accepted")
	}
	if _, err := EncodeQuizParams(big.NewInt(0), big.NewInt(-1)); err == nil {
		t.Fatal("negative incorrect reward accepted")
	}
}

func TestQuizParamsRejectGarbage(t *testing.T) {
	if _, _, err := DecodeQuizParams([]byte("not abi data")); err == nil {
		t.Fatal("garbage blob accepted")
	}
	if _, _, err := DecodeQuizParams(nil); err == nil {
		t.Fatal("empty blob accepted")
	}
}
