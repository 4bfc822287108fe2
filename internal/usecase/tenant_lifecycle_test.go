package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/plateful/tenantcore/internal/domain"
	"github.com/plateful/tenantcore/internal/domain/mocks"
)

func seedTenant(repo *mocks.MockTenantRepository, status domain.TenantStatus) *domain.Tenant {
	id := uuid.New()
	t := &domain.Tenant{
		ID:           id,
		BusinessName: "Pizza Palace",
		Contact:      domain.ContactInfo{Email: "owner@pizzapalace.example"},
		Plan:         domain.PlanBasic,
		SchemaName:   domain.SchemaNameFor(id),
		Status:       status,
		CreatedAt:    time.Now().UTC().Add(-time.Hour),
		UpdatedAt:    time.Now().UTC().Add(-time.Hour),
	}
	repo.Tenants[id] = t
	return t
}

func newLifecycleUC(repo *mocks.MockTenantRepository) (*TenantLifecycleUseCase, *mocks.MockProvisioner, *mocks.MockAuditPublisher, *mocks.MockTenantCache) {
	prov := &mocks.MockProvisioner{}
	auditPub := &mocks.MockAuditPublisher{}
	cache := mocks.NewMockTenantCache()
	uc := NewTenantLifecycleUseCase(repo, prov, cache, auditPub, testLogger, testMetrics)
	return uc, prov, auditPub, cache
}

func TestLifecycleGet(t *testing.T) {
	t.Run("Active Tenant Found", func(t *testing.T) {
		repo := mocks.NewMockTenantRepository()
		seeded := seedTenant(repo, domain.StatusActive)
		uc, _, _, cache := newLifecycleUC(repo)

		got, err := uc.Get(context.Background(), seeded.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.ID != seeded.ID {
			t.Error("wrong tenant returned")
		}
		if cached, _ := cache.Get(context.Background(), seeded.ID); cached == nil {
			t.Error("expected record to be cached after the lookup")
		}
	})

	t.Run("Deactivated Tenant Invisible", func(t *testing.T) {
		repo := mocks.NewMockTenantRepository()
		seeded := seedTenant(repo, domain.StatusDeactivated)
		uc, _, _, _ := newLifecycleUC(repo)

		_, err := uc.Get(context.Background(), seeded.ID)
		if !errors.Is(err, domain.ErrTenantNotFound) {
			t.Fatalf("expected ErrTenantNotFound, got %v", err)
		}
	})

	t.Run("Cache Hit Skips Repository", func(t *testing.T) {
		repo := mocks.NewMockTenantRepository()
		seeded := seedTenant(repo, domain.StatusActive)
		uc, _, _, cache := newLifecycleUC(repo)
		_ = cache.Set(context.Background(), seeded)

		if _, err := uc.Get(context.Background(), seeded.ID); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if repo.QueryCount != 0 {
			t.Errorf("expected 0 repository queries on a cache hit, got %d", repo.QueryCount)
		}
	})
}

func TestLifecycleUpdate(t *testing.T) {
	t.Run("Empty Patch Rejected", func(t *testing.T) {
		repo := mocks.NewMockTenantRepository()
		seeded := seedTenant(repo, domain.StatusActive)
		uc, _, _, _ := newLifecycleUC(repo)

		_, err := uc.Update(context.Background(), seeded.ID, UpdatePatch{})
		var validationErr *domain.ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("Whitelisted Fields Updated", func(t *testing.T) {
		repo := mocks.NewMockTenantRepository()
		seeded := seedTenant(repo, domain.StatusActive)
		uc, _, _, cache := newLifecycleUC(repo)

		name := "Pasta Palace"
		plan := domain.PlanPremium
		updated, err := uc.Update(context.Background(), seeded.ID, UpdatePatch{BusinessName: &name, Plan: &plan})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if updated.BusinessName != name || updated.Plan != plan {
			t.Errorf("patch not applied: %+v", updated)
		}
		if updated.SchemaName != seeded.SchemaName || updated.ID != seeded.ID {
			t.Error("identity fields changed on update")
		}
		if len(cache.Invalidated) == 0 {
			t.Error("expected cache invalidation after update")
		}
	})

	t.Run("Unknown Plan Rejected", func(t *testing.T) {
		repo := mocks.NewMockTenantRepository()
		seeded := seedTenant(repo, domain.StatusActive)
		uc, _, _, _ := newLifecycleUC(repo)

		plan := domain.SubscriptionPlan("GOLD")
		_, err := uc.Update(context.Background(), seeded.ID, UpdatePatch{Plan: &plan})
		var validationErr *domain.ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestLifecycleDeactivate(t *testing.T) {
	repo := mocks.NewMockTenantRepository()
	seeded := seedTenant(repo, domain.StatusActive)
	uc, prov, auditPub, _ := newLifecycleUC(repo)

	if err := uc.Deactivate(context.Background(), seeded.ID); err != nil {
		t.Fatalf("first deactivate failed: %v", err)
	}
	if repo.Tenants[seeded.ID].Status != domain.StatusDeactivated {
		t.Error("tenant not deactivated")
	}
	if len(prov.Deprovisioned) != 0 {
		t.Error("deactivation must not drop the schema")
	}

	// Second call is a no-op success.
	if err := uc.Deactivate(context.Background(), seeded.ID); err != nil {
		t.Fatalf("second deactivate failed: %v", err)
	}
	if got := len(auditPub.EventsOfKind(domain.AuditTenantDeactivated)); got != 1 {
		t.Errorf("expected exactly 1 deactivation audit event, got %d", got)
	}
}

func TestLifecycleSuspendResume(t *testing.T) {
	repo := mocks.NewMockTenantRepository()
	seeded := seedTenant(repo, domain.StatusActive)
	uc, _, _, _ := newLifecycleUC(repo)

	if err := uc.Suspend(context.Background(), seeded.ID); err != nil {
		t.Fatalf("suspend failed: %v", err)
	}
	if repo.Tenants[seeded.ID].Status != domain.StatusSuspended {
		t.Error("tenant not suspended")
	}
	if err := uc.Resume(context.Background(), seeded.ID); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if repo.Tenants[seeded.ID].Status != domain.StatusActive {
		t.Error("tenant not resumed")
	}

	// Resuming an active tenant is a no-op success.
	if err := uc.Resume(context.Background(), seeded.ID); err != nil {
		t.Fatalf("idempotent resume failed: %v", err)
	}
}

func TestLifecyclePurge(t *testing.T) {
	repo := mocks.NewMockTenantRepository()
	seeded := seedTenant(repo, domain.StatusActive)
	uc, prov, auditPub, _ := newLifecycleUC(repo)

	if err := uc.Purge(context.Background(), seeded.ID); err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if len(prov.Deprovisioned) != 1 || prov.Deprovisioned[0] != seeded.SchemaName {
		t.Errorf("expected schema %q dropped, got %v", seeded.SchemaName, prov.Deprovisioned)
	}
	// The registry row survives as a tombstone.
	if repo.Tenants[seeded.ID].Status != domain.StatusDeactivated {
		t.Error("purged tenant record must remain, deactivated")
	}
	if len(auditPub.EventsOfKind(domain.AuditTenantPurged)) != 1 {
		t.Error("expected a purge audit event")
	}
}

func TestLifecycleList(t *testing.T) {
	repo := mocks.NewMockTenantRepository()
	for i := 0; i < 5; i++ {
		seedTenant(repo, domain.StatusActive)
	}
	seedTenant(repo, domain.StatusPending)
	uc, _, _, _ := newLifecycleUC(repo)

	result, err := uc.List(context.Background(), 1, 3, domain.StatusActive)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Total)
	}
	if len(result.Tenants) != 3 {
		t.Errorf("expected page of 3, got %d", len(result.Tenants))
	}

	if _, err := uc.List(context.Background(), 1, 10, domain.TenantStatus("BOGUS")); err == nil {
		t.Error("expected unknown status filter to be rejected")
	}
}

func TestLifecycleFeaturesFor(t *testing.T) {
	repo := mocks.NewMockTenantRepository()
	uc, _, _, _ := newLifecycleUC(repo)

	limits, err := uc.FeaturesFor(domain.PlanPremium)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if limits.MaxOutlets != 5 || !limits.CustomReports {
		t.Errorf("unexpected premium limits %+v", limits)
	}

	if _, err := uc.FeaturesFor("GOLD"); err == nil {
		t.Error("expected unknown plan to be rejected")
	}
}
