package token

import (
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := New("test-signing-key", "api.kindbox.app", time.Hour)

	tok, err := svc.Generate("uid-1", "siti@example.com")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := svc.Validate(tok)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != "uid-1" {
		t.Errorf("UserID = %q, want uid-1", claims.UserID)
	}
	if claims.Email != "siti@example.com" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.Issuer != "api.kindbox.app" {
		t.Errorf("Issuer = %q", claims.Issuer)
	}
}

func TestValidateExpired(t *testing.T) {
	svc := New("test-signing-key", "api.kindbox.app", -time.Minute)

	tok, err := svc.Generate("uid-1", "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := svc.Validate(tok); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestValidateWrongKey(t *testing.T) {
	svc := New("test-signing-key", "api.kindbox.app", time.Hour)
	other := New("another-key", "api.kindbox.app", time.Hour)

	tok, err := svc.Generate("uid-1", "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := other.Validate(tok); err == nil {
		t.Fatal("expected error for token signed with a different key")
	}
}

func TestValidateGarbage(t *testing.T) {
	svc := New("test-signing-key", "api.kindbox.app", time.Hour)
	if _, err := svc.Validate("not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestGenerateSigningKey(t *testing.T) {
	a, err := GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey failed: %v", err)
	}
	b, err := GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey failed: %v", err)
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
	if a == b {
		t.Error("two generated keys are identical")
	}
}
