package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	key := hex.EncodeToString(bytes.Repeat([]byte{7}, keySize))
	svc, err := New(key)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !svc.Configured() {
		t.Fatalf("expected configured service")
	}
	plain := []byte("%PDF-1.3 pay stub")
	sealed, err := svc.Seal(plain)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Equal(sealed, plain) {
		t.Fatalf("expected ciphertext to differ from plaintext")
	}
	opened, err := svc.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(opened, plain) {
		t.Fatalf("expected %q, got %q", plain, opened)
	}
}

func TestEmptyKeyPassesThrough(t *testing.T) {
	svc, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if svc.Configured() {
		t.Fatalf("expected unconfigured service")
	}
	out, err := svc.Seal([]byte("plain"))
	if err != nil || string(out) != "plain" {
		t.Fatalf("expected passthrough, got %q, %v", out, err)
	}
}

func TestRejectsShortKey(t *testing.T) {
	if _, err := New("too-short"); err != ErrInvalidKey {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestOpenRejectsTruncatedInput(t *testing.T) {
	svc, err := New(hex.EncodeToString(bytes.Repeat([]byte{1}, keySize)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := svc.Open([]byte{1, 2}); err != ErrCiphertextTooShort {
		t.Fatalf("expected ErrCiphertextTooShort, got %v", err)
	}
}
