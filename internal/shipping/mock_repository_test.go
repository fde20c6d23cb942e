package shipping

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/harborline/harborline/internal/shared"
)

var errBoom = errors.New("boom")

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

// mockRepository keeps trees in memory. Transactions run against the live
// trees; the domain methods leave a tree untouched when they reject.
type mockRepository struct {
	mu       sync.Mutex
	cycles   map[uuid.UUID]*ShipmentCycle
	order    []uuid.UUID
	calls    []string
	failOn   string
	listHits int
	// lockView replaces what LockCycle sees, as if another writer committed
	// after the cycle was listed.
	lockView map[uuid.UUID]*ShipmentCycle
}

func newMockRepository() *mockRepository {
	return &mockRepository{cycles: make(map[uuid.UUID]*ShipmentCycle)}
}

func (m *mockRepository) put(c *ShipmentCycle) {
	m.cycles[c.ID] = c
	m.order = append(m.order, c.ID)
}

func (m *mockRepository) record(call string) error {
	m.calls = append(m.calls, call)
	if m.failOn == call {
		return errBoom
	}
	return nil
}

func (m *mockRepository) GetCycle(_ context.Context, id uuid.UUID) (*ShipmentCycle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cycles[id]
	if !ok {
		return nil, fmt.Errorf("shipment %s: %w", id, ErrNotFound)
	}
	return c, nil
}

func (m *mockRepository) ListCycles(_ context.Context, filter ListFilter, limit, offset int) ([]*ShipmentCycle, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listHits++
	if err := m.record("ListCycles"); err != nil {
		return nil, 0, err
	}
	var matched []*ShipmentCycle
	for _, id := range m.order {
		c, ok := m.cycles[id]
		if !ok || c.InstituteID != filter.InstituteID {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		matched = append(matched, c)
	}
	total := len(matched)
	if limit > 0 {
		if offset > len(matched) {
			offset = len(matched)
		}
		end := offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[offset:end]
	}
	return matched, total, nil
}

func (m *mockRepository) ListInstituteIDs(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[int64]bool)
	var ids []int64
	for _, id := range m.order {
		if c, ok := m.cycles[id]; ok && !seen[c.InstituteID] {
			seen[c.InstituteID] = true
			ids = append(ids, c.InstituteID)
		}
	}
	return ids, nil
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, &mockTx{repo: m})
}

type mockTx struct {
	repo *mockRepository
}

func (t *mockTx) LockCycle(_ context.Context, id uuid.UUID) (*ShipmentCycle, error) {
	if err := t.repo.record("LockCycle"); err != nil {
		return nil, err
	}
	if c, ok := t.repo.lockView[id]; ok {
		return c, nil
	}
	c, ok := t.repo.cycles[id]
	if !ok {
		return nil, fmt.Errorf("shipment %s: %w", id, ErrNotFound)
	}
	return c, nil
}

func (t *mockTx) CycleIDForLighter(_ context.Context, lighterID uuid.UUID) (uuid.UUID, error) {
	for _, c := range t.repo.cycles {
		if _, err := c.FindLighter(lighterID); err == nil {
			return c.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("lighter %s: %w", lighterID, ErrNotFound)
}

func (t *mockTx) CycleIDForTruck(_ context.Context, truckID uuid.UUID) (uuid.UUID, error) {
	for _, c := range t.repo.cycles {
		if _, _, err := c.FindTruck(truckID); err == nil {
			return c.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("truck unloading %s: %w", truckID, ErrNotFound)
}

func (t *mockTx) InsertCycle(_ context.Context, c *ShipmentCycle) error {
	if err := t.repo.record("InsertCycle"); err != nil {
		return err
	}
	t.repo.put(c)
	return nil
}

func (t *mockTx) UpdateCycle(context.Context, *ShipmentCycle) error {
	return t.repo.record("UpdateCycle")
}

func (t *mockTx) DeleteCycle(_ context.Context, id uuid.UUID) error {
	if err := t.repo.record("DeleteCycle"); err != nil {
		return err
	}
	delete(t.repo.cycles, id)
	return nil
}

func (t *mockTx) UpdateFlowSummary(_ context.Context, id uuid.UUID, summary string) error {
	if err := t.repo.record("UpdateFlowSummary"); err != nil {
		return err
	}
	if c, ok := t.repo.cycles[id]; ok {
		c.FlowSummary = summary
	}
	return nil
}

func (t *mockTx) InsertLighter(context.Context, *LighterLoading) error {
	return t.repo.record("InsertLighter")
}

func (t *mockTx) UpdateLighterStatus(context.Context, uuid.UUID, LoadStatus) error {
	return t.repo.record("UpdateLighterStatus")
}

func (t *mockTx) DeleteLighter(context.Context, uuid.UUID) error {
	return t.repo.record("DeleteLighter")
}

func (t *mockTx) InsertTruck(context.Context, *TruckUnloading) error {
	return t.repo.record("InsertTruck")
}

func (t *mockTx) DeleteTruck(context.Context, uuid.UUID) error {
	return t.repo.record("DeleteTruck")
}

func (t *mockTx) InsertProduct(context.Context, *ProductDetail) error {
	return t.repo.record("InsertProduct")
}

// ============================================================================
// MOCK COLLABORATORS
// ============================================================================

type mockAudit struct {
	logs []shared.AuditLog
}

func (a *mockAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type mockIdempotency struct {
	seen    map[string]bool
	deleted []string
}

func newMockIdempotency() *mockIdempotency {
	return &mockIdempotency{seen: make(map[string]bool)}
}

func (i *mockIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	k := module + "/" + key
	if i.seen[k] {
		return shared.ErrIdempotencyConflict
	}
	i.seen[k] = true
	return nil
}

func (i *mockIdempotency) Delete(_ context.Context, key, module string) error {
	k := module + "/" + key
	delete(i.seen, k)
	i.deleted = append(i.deleted, k)
	return nil
}

type mockMetrics struct {
	rejections map[string]int
	builds     []bool
}

func (m *mockMetrics) ObserveCapacityRejection(operation string) {
	if m.rejections == nil {
		m.rejections = make(map[string]int)
	}
	m.rejections[operation]++
}

func (m *mockMetrics) ObserveDashboardBuild(shared bool) {
	m.builds = append(m.builds, shared)
}

type mockWarmer struct {
	institutes []int64
	err        error
}

func (m *mockWarmer) EnqueueDashboardWarmup(_ context.Context, instituteID int64) error {
	m.institutes = append(m.institutes, instituteID)
	return m.err
}
