package folio

import (
	"errors"
	"strings"
	"testing"
)

func TestMintAndLookupAPIKey(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	plaintext, key, err := s.MintAPIKey("ci-deploy")
	if err != nil {
		t.Fatalf("MintAPIKey failed: %v", err)
	}
	if !strings.HasPrefix(plaintext, "fk_") {
		t.Errorf("plaintext = %q, want fk_ prefix", plaintext)
	}
	if key.Prefix != plaintext[:apiKeyPrefixLen] {
		t.Errorf("display prefix = %q, want %q", key.Prefix, plaintext[:apiKeyPrefixLen])
	}
	if key.KeyHash == plaintext || strings.Contains(key.KeyHash, plaintext) {
		t.Error("plaintext leaked into stored hash")
	}
	if key.KeyHash != HashAPIKey(plaintext) {
		t.Error("stored hash does not match the plaintext digest")
	}

	got, err := s.LookupAPIKey(plaintext)
	if err != nil {
		t.Fatalf("LookupAPIKey failed: %v", err)
	}
	if got.ID != key.ID || got.Name != "ci-deploy" {
		t.Errorf("LookupAPIKey = %+v, want the minted key", got)
	}
	if got.LastUsedAt != nil {
		t.Error("fresh key already has a last-used time")
	}
}

func TestLookupAPIKeyRejectsUnknown(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if _, err := s.LookupAPIKey("fk_not-a-real-key"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LookupAPIKey(unknown) err = %v, want ErrNotFound", err)
	}
}

func TestTouchAPIKey(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	plaintext, key, err := s.MintAPIKey("touched")
	if err != nil {
		t.Fatalf("MintAPIKey failed: %v", err)
	}
	if err := s.TouchAPIKey(key.ID); err != nil {
		t.Fatalf("TouchAPIKey failed: %v", err)
	}
	got, err := s.LookupAPIKey(plaintext)
	if err != nil {
		t.Fatalf("LookupAPIKey failed: %v", err)
	}
	if got.LastUsedAt == nil {
		t.Error("LastUsedAt still nil after touch")
	}
}

func TestRevokeAPIKey(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	plaintext, key, err := s.MintAPIKey("short-lived")
	if err != nil {
		t.Fatalf("MintAPIKey failed: %v", err)
	}
	if err := s.RevokeAPIKey(key.ID); err != nil {
		t.Fatalf("RevokeAPIKey failed: %v", err)
	}
	if _, err := s.LookupAPIKey(plaintext); !errors.Is(err, ErrNotFound) {
		t.Errorf("revoked key still resolves, err = %v", err)
	}

	keys, err := s.ListAPIKeys()
	if err != nil {
		t.Fatalf("ListAPIKeys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("ListAPIKeys after revoke = %d keys, want 0", len(keys))
	}
}
