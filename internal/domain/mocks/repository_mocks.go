package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plateful/tenantcore/internal/domain"
)

// MockTenantRepository is an in-memory implementation of
// domain.TenantRepository for testing.
type MockTenantRepository struct {
	mu          sync.Mutex
	Tenants     map[uuid.UUID]*domain.Tenant
	CreateErr   error
	FindErr     error
	UpdateErr   error
	StatusErr   error
	ListErr     error
	QueryCount  int
	StatusCalls []domain.TenantStatus
}

func NewMockTenantRepository() *MockTenantRepository {
	return &MockTenantRepository{Tenants: make(map[uuid.UUID]*domain.Tenant)}
}

func (m *MockTenantRepository) Create(ctx context.Context, t *domain.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCount++
	if m.CreateErr != nil {
		return m.CreateErr
	}
	cp := *t
	m.Tenants[t.ID] = &cp
	return nil
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCount++
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	t, ok := m.Tenants[id]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockTenantRepository) FindByEmail(ctx context.Context, email string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCount++
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	for _, t := range m.Tenants {
		if t.Contact.Email == email && t.Status != domain.StatusDeactivated {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrTenantNotFound
}

func (m *MockTenantRepository) Update(ctx context.Context, t *domain.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCount++
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if _, ok := m.Tenants[t.ID]; !ok {
		return domain.ErrTenantNotFound
	}
	cp := *t
	m.Tenants[t.ID] = &cp
	return nil
}

func (m *MockTenantRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TenantStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCount++
	m.StatusCalls = append(m.StatusCalls, status)
	if m.StatusErr != nil {
		return m.StatusErr
	}
	t, ok := m.Tenants[id]
	if !ok {
		return domain.ErrTenantNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockTenantRepository) List(ctx context.Context, offset, limit int, statusFilter domain.TenantStatus) ([]*domain.Tenant, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCount++
	if m.ListErr != nil {
		return nil, 0, m.ListErr
	}
	var out []*domain.Tenant
	for _, t := range m.Tenants {
		if statusFilter != "" && t.Status != statusFilter {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *MockTenantRepository) FindStalePending(ctx context.Context, olderThan time.Duration) ([]*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCount++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	var out []*domain.Tenant
	for _, t := range m.Tenants {
		if t.Status == domain.StatusPending && t.CreatedAt.Before(cutoff) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// MockProvisioner records provision/deprovision calls.
type MockProvisioner struct {
	mu             sync.Mutex
	Provisioned    []string
	Deprovisioned  []string
	ProvisionErr   error
	DeprovisionErr error
}

func (m *MockProvisioner) Provision(ctx context.Context, schemaName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ProvisionErr != nil {
		return m.ProvisionErr
	}
	m.Provisioned = append(m.Provisioned, schemaName)
	return nil
}

func (m *MockProvisioner) Deprovision(ctx context.Context, schemaName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeprovisionErr != nil {
		return m.DeprovisionErr
	}
	m.Deprovisioned = append(m.Deprovisioned, schemaName)
	return nil
}

// MockAuditPublisher collects published audit events.
type MockAuditPublisher struct {
	mu         sync.Mutex
	Events     []domain.AuditEvent
	PublishErr error
}

func (m *MockAuditPublisher) Publish(ctx context.Context, event domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.Events = append(m.Events, event)
	return nil
}

// EventsOfKind returns the recorded events matching kind.
func (m *MockAuditPublisher) EventsOfKind(kind domain.AuditKind) []domain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditEvent
	for _, e := range m.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// MockTenantCache is a map-backed domain.TenantCache.
type MockTenantCache struct {
	mu          sync.Mutex
	Entries     map[uuid.UUID]*domain.Tenant
	GetErr      error
	SetErr      error
	Invalidated []uuid.UUID
}

func NewMockTenantCache() *MockTenantCache {
	return &MockTenantCache{Entries: make(map[uuid.UUID]*domain.Tenant)}
}

func (m *MockTenantCache) Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	t, ok := m.Entries[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *MockTenantCache) Set(ctx context.Context, t *domain.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	cp := *t
	m.Entries[t.ID] = &cp
	return nil
}

func (m *MockTenantCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invalidated = append(m.Invalidated, id)
	delete(m.Entries, id)
	return nil
}
