package customers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hatvoni/insider/internal/shared"
)

type memoryRepo struct {
	customers map[string]Customer
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: map[string]Customer{}}
}

func (m *memoryRepo) Create(_ context.Context, c Customer) (Customer, error) {
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.customers[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Update(_ context.Context, c Customer) (Customer, error) {
	existing, ok := m.customers[c.ID]
	if !ok {
		return Customer{}, ErrNotFound
	}
	c.IsArchived = existing.IsArchived
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now()
	m.customers[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (*Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *memoryRepo) List(_ context.Context, _ string, includeArchived bool, _, _ int) ([]Customer, int, error) {
	out := []Customer{}
	for _, c := range m.customers {
		if c.IsArchived && !includeArchived {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memoryRepo) SetArchived(_ context.Context, id string, archived bool) error {
	c, ok := m.customers[id]
	if !ok {
		return ErrNotFound
	}
	c.IsArchived = archived
	m.customers[id] = c
	return nil
}

type memoryAudit struct {
	entries []shared.AuditLog
}

func (m *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	m.entries = append(m.entries, log)
	return nil
}

func TestCreateTrimsMasterData(t *testing.T) {
	audit := &memoryAudit{}
	svc := NewService(newMemoryRepo(), audit)

	customer, err := svc.Create(context.Background(), Input{
		Name:      "  Minta Bolt Kft. ",
		Email:     " rendeles@mintabolt.hu ",
		TaxNumber: " 12345678-2-42 ",
		ActorID:   3,
	})
	require.NoError(t, err)
	require.Equal(t, "Minta Bolt Kft.", customer.Name)
	require.Equal(t, "rendeles@mintabolt.hu", customer.Email)
	require.Equal(t, "12345678-2-42", customer.TaxNumber)
	require.Len(t, audit.entries, 1)
	require.Equal(t, "customers:create", audit.entries[0].Action)
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), Input{Name: "   "})
	require.Error(t, err)
}

func TestUpdateUnknownCustomer(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Update(context.Background(), "missing", Input{Name: "Valaki"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestArchiveHidesFromDefaultListing(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &memoryAudit{})

	customer, err := svc.Create(context.Background(), Input{Name: "Sarki Pékség Bt."})
	require.NoError(t, err)

	require.NoError(t, svc.Archive(context.Background(), customer.ID, 1))

	visible, _, err := svc.List(context.Background(), "", false, 50, 0)
	require.NoError(t, err)
	require.Empty(t, visible)

	all, _, err := svc.List(context.Background(), "", true, 50, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].IsArchived)

	require.NoError(t, svc.Restore(context.Background(), customer.ID, 1))
	visible, _, err = svc.List(context.Background(), "", false, 50, 0)
	require.NoError(t, err)
	require.Len(t, visible, 1)
}

func TestArchiveUnknownCustomer(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	require.ErrorIs(t, svc.Archive(context.Background(), "missing", 1), ErrNotFound)
}
