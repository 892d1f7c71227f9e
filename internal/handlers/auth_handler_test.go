package handlers

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestRecoverSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	wallet := crypto.PubkeyToAddress(key.PublicKey).Hex()

	message := "Quiz Platform Authentication\nNonce: deadbeef\nTimestamp: 1756400000"
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	digest := crypto.Keccak256([]byte(prefixed))

	sig, err := crypto.Sign(digest, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	// wallets emit V as 27/28
	sig[64] += 27

	recovered, err := recoverSigner(message, hexutil.Encode(sig))
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if !strings.EqualFold(recovered, wallet) {
		t.Fatalf("recovered %s, want %s", recovered, wallet)
	}

	// a different message must not recover the same wallet
	recovered, err = recoverSigner("tampered message", hexutil.Encode(sig))
	if err == nil && strings.EqualFold(recovered, wallet) {
		t.Fatal("tampered message recovered the original wallet")
	}
}

func TestRecoverSignerRejectsMalformedSignatures(t *testing.T) {
	if _, err := recoverSigner("msg", "not-hex"); err == nil {
		t.Error("non-hex signature accepted")
	}
	if _, err := recoverSigner("msg", "0x1234"); err == nil {
		t.Error("short signature accepted")
	}
}

func TestJWTTokenRoundtrip(t *testing.T) {
	h := NewAuthHandler()
	const wallet = "0x1111111111111111111111111111111111111111"

	token, err := h.generateJWTToken(wallet)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := ValidateJWTToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserAddress != wallet {
		t.Fatalf("claims address mismatch: %s", claims.UserAddress)
	}

	if _, err := ValidateJWTToken("garbage.token.here"); err == nil {
		t.Error("garbage token accepted")
	}
	if _, err := ValidateJWTToken(token + "x"); err == nil {
		t.Error("tampered token accepted")
	}
}
