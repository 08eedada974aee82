package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = byte(i)
	}
	addr := MustNewAddress(STCPrefix, raw)
	encoded := addr.String()
	if !strings.HasPrefix(encoded, string(STCPrefix)+"1") {
		t.Fatalf("unexpected encoding: %s", encoded)
	}

	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded.Bytes(), raw) {
		t.Fatalf("round trip mismatch: %x != %x", decoded.Bytes(), raw)
	}
	if !decoded.Equal(addr) {
		t.Fatalf("addresses should compare equal")
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddress("not-bech32"); err == nil {
		t.Fatalf("expected decode failure")
	}
	if _, err := DecodeAddress(""); err == nil {
		t.Fatalf("expected decode failure for empty input")
	}
}

func TestKeyDerivesAddress(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	addr := key.PubKey().Address()
	if addr.Prefix() != STCPrefix {
		t.Fatalf("unexpected prefix: %s", addr.Prefix())
	}
	if addr.IsZero() {
		t.Fatalf("derived address should not be zero")
	}

	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !restored.PubKey().Address().Equal(addr) {
		t.Fatalf("restored key derives a different address")
	}
}
