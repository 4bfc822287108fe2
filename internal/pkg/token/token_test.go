package token

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/plateful/tenantcore/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()

	signed, err := Generate(userID, tenantID, domain.RoleManager, "secret", time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := Validate(signed, "secret")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("user id mismatch: %s", claims.UserID)
	}
	if claims.TenantID != tenantID {
		t.Errorf("tenant id mismatch: %s", claims.TenantID)
	}
	if claims.Role != domain.RoleManager {
		t.Errorf("role mismatch: %s", claims.Role)
	}
}

func TestTokenRejection(t *testing.T) {
	signed, err := Generate(uuid.New(), uuid.New(), domain.RoleOwner, "secret", time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	t.Run("Wrong Secret", func(t *testing.T) {
		if _, err := Validate(signed, "other-secret"); err == nil {
			t.Error("expected validation to fail with the wrong key")
		}
	})

	t.Run("Expired", func(t *testing.T) {
		stale, err := Generate(uuid.New(), uuid.New(), domain.RoleOwner, "secret", -time.Minute)
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if _, err := Validate(stale, "secret"); err == nil {
			t.Error("expected validation to fail for an expired token")
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := Validate("not.a.token", "secret"); err == nil {
			t.Error("expected validation to fail for a malformed token")
		}
	})
}
