package token

import (
	"encoding/base64"
	"strings"
	"testing"
)

// Requirement: NewPair produces a token with at least 256 bits of entropy
// and a hex sha256 hash of it.
func TestNewPair(t *testing.T) {
	pair, err := NewPair()
	if err != nil {
		t.Fatalf("NewPair() error = %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(pair.Token)
	if err != nil {
		t.Fatalf("token is not base64url: %v", err)
	}
	if len(raw) < 32 {
		t.Errorf("token carries %d random bytes, want >= 32", len(raw))
	}

	if pair.Hash != Hash(pair.Token) {
		t.Errorf("Hash mismatch: pair.Hash = %q, Hash(token) = %q", pair.Hash, Hash(pair.Token))
	}
	if len(pair.Hash) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(pair.Hash))
	}
}

// Requirement: consecutive tokens are unique.
func TestNewPair_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		pair, err := NewPair()
		if err != nil {
			t.Fatalf("NewPair() error = %v", err)
		}
		if seen[pair.Token] {
			t.Fatalf("duplicate token generated: %s", pair.Token)
		}
		seen[pair.Token] = true
	}
}

// Requirement: Verify accepts the matching token and rejects everything else.
func TestVerify(t *testing.T) {
	pair, err := NewPair()
	if err != nil {
		t.Fatalf("NewPair() error = %v", err)
	}

	tests := []struct {
		name    string
		token   string
		hash    string
		want    bool
		wantErr bool
	}{
		{name: "matching token", token: pair.Token, hash: pair.Hash, want: true},
		{name: "wrong token", token: pair.Token + "x", hash: pair.Hash, want: false},
		{name: "empty token", token: "", hash: pair.Hash, wantErr: true},
		{name: "empty hash", token: pair.Token, hash: "", wantErr: true},
		{name: "case-flipped hash", token: pair.Token, hash: strings.ToUpper(pair.Hash), want: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Verify(test.token, test.hash)
			if (err != nil) != test.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, test.wantErr)
			}
			if got != test.want {
				t.Errorf("Verify() = %v, want %v", got, test.want)
			}
		})
	}
}

// Requirement: externally minted tokens of arbitrary format hash and verify
// the same way as generated ones.
func TestVerify_ExternalToken(t *testing.T) {
	external := "session_9f86d081884c7d659a2feaa0c55ad015"

	ok, err := Verify(external, Hash(external))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !ok {
		t.Error("externally minted token did not verify against its own hash")
	}
}
