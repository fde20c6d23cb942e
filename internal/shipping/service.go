package shipping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/harborline/harborline/internal/shared"
)

const idempotencyModule = "shipping.create"

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyGuard rejects replayed create requests.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// MetricsObserver receives shipping domain counters.
type MetricsObserver interface {
	ObserveCapacityRejection(operation string)
	ObserveDashboardBuild(shared bool)
}

// DashboardWarmer schedules a background rebuild of an institute dashboard.
type DashboardWarmer interface {
	EnqueueDashboardWarmup(ctx context.Context, instituteID int64) error
}

// Service provides business logic for shipment cycles.
type Service struct {
	repo    Repository
	cache   *DashboardCache
	audit   AuditRecorder
	idem    IdempotencyGuard
	metrics MetricsObserver
	warmer  DashboardWarmer
	logger  *slog.Logger
}

// NewService constructs a shipping service.
func NewService(repo Repository, cache *DashboardCache, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NewDashboardCache(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// SetAuditRecorder enables the audit trail.
func (s *Service) SetAuditRecorder(audit AuditRecorder) {
	s.audit = audit
}

// SetIdempotencyGuard enables Idempotency-Key handling on create.
func (s *Service) SetIdempotencyGuard(idem IdempotencyGuard) {
	s.idem = idem
}

// SetMetrics enables domain counters.
func (s *Service) SetMetrics(metrics MetricsObserver) {
	s.metrics = metrics
}

// SetDashboardWarmer makes writes schedule a dashboard rebuild after
// invalidating the cache.
func (s *Service) SetDashboardWarmer(warmer DashboardWarmer) {
	s.warmer = warmer
}

// ListResult is one page of cycles.
type ListResult struct {
	Cycles     []*ShipmentCycle
	Pagination shared.Pagination
}

// ============================================================================
// SHIPMENT CYCLE OPERATIONS
// ============================================================================

// Create persists a whole tree after strict validation. A non-empty
// idempotencyKey is recorded first and released again if creation fails.
func (s *Service) Create(ctx context.Context, scope shared.Scope, req CreateShipmentRequest, idempotencyKey string) (c *ShipmentCycle, err error) {
	if idempotencyKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
			return nil, err
		}
		defer func() {
			if err == nil {
				return
			}
			if delErr := s.idem.Delete(ctx, idempotencyKey, idempotencyModule); delErr != nil {
				s.logger.Warn("release idempotency key", slog.String("key", idempotencyKey), slog.Any("error", delErr))
			}
		}()
	}

	c, err = req.ToShipmentCycle(scope.InstituteID, scope.UserID)
	if err != nil {
		return nil, err
	}
	if err := ValidateStrict(c); err != nil {
		s.observeRejection("create", err)
		return nil, err
	}
	if err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertCycle(ctx, c)
	}); err != nil {
		return nil, fmt.Errorf("create shipment: %w", err)
	}

	s.afterWrite(ctx, scope, "create", "shipment_cycle", c.ID, map[string]any{
		"mother_vessel": c.MotherVesselName,
		"lighters":      len(c.Lighters),
		"trucks":        c.TruckCount(),
	})
	return c, nil
}

// Get returns one tree. Cycles of other institutes are reported as not found.
func (s *Service) Get(ctx context.Context, scope shared.Scope, id uuid.UUID) (*ShipmentCycle, error) {
	c, err := s.repo.GetCycle(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.InstituteID != scope.InstituteID {
		return nil, fmt.Errorf("shipment %s: %w", id, ErrNotFound)
	}
	return c, nil
}

// List returns a page of cycles for the filter's institute.
func (s *Service) List(ctx context.Context, filter ListFilter, page, perPage int) (ListResult, error) {
	p := shared.NewPagination(page, perPage, 0)
	cycles, total, err := s.repo.ListCycles(ctx, filter, p.PerPage, p.Offset())
	if err != nil {
		return ListResult{}, fmt.Errorf("list shipments: %w", err)
	}
	return ListResult{Cycles: cycles, Pagination: shared.NewPagination(p.Page, p.PerPage, total)}, nil
}

// Update replaces the scalar fields of a cycle. Capacity is not re-checked;
// an imbalance introduced here shows up in the validation report.
func (s *Service) Update(ctx context.Context, scope shared.Scope, id uuid.UUID, req UpdateShipmentRequest) (*ShipmentCycle, error) {
	if req.Status != nil && !req.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	if err := ValidateIncomingQuantity(req.TotalIncomingQuantity); err != nil {
		return nil, err
	}
	c, err := s.mutate(ctx, scope, "update", fixedCycle(id), func(ctx context.Context, tx TxRepository, c *ShipmentCycle) error {
		c.Consignee = req.Consignee
		c.MotherVesselName = req.MotherVesselName
		c.ArrivalDate = req.ArrivalDate
		c.TotalIncomingQuantity = req.TotalIncomingQuantity
		c.ItemType = req.ItemType
		if req.Status != nil {
			c.Status = *req.Status
		}
		c.RefreshFlowSummary()
		return tx.UpdateCycle(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, scope, "update", "shipment_cycle", c.ID, map[string]any{"status": c.Status})
	return c, nil
}

// Delete removes a cycle and its descendants.
func (s *Service) Delete(ctx context.Context, scope shared.Scope, id uuid.UUID) error {
	if _, err := s.mutate(ctx, scope, "delete", fixedCycle(id), func(ctx context.Context, tx TxRepository, c *ShipmentCycle) error {
		return tx.DeleteCycle(ctx, c.ID)
	}); err != nil {
		return err
	}
	s.afterWrite(ctx, scope, "delete", "shipment_cycle", id, nil)
	return nil
}

// ============================================================================
// STRUCTURAL OPERATIONS
// ============================================================================

// AddLighter attaches a new lighter, with any nested trucks, to the cycle.
func (s *Service) AddLighter(ctx context.Context, scope shared.Scope, cycleID uuid.UUID, req LighterRequest) (*LighterLoading, error) {
	l, err := req.ToLighterLoading()
	if err != nil {
		return nil, err
	}
	if _, err := s.mutate(ctx, scope, "add_lighter", fixedCycle(cycleID), func(ctx context.Context, tx TxRepository, c *ShipmentCycle) error {
		if err := c.AddLighterLoading(l); err != nil {
			return err
		}
		if err := tx.InsertLighter(ctx, l); err != nil {
			return err
		}
		return tx.UpdateFlowSummary(ctx, c.ID, c.FlowSummary)
	}); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, scope, "add_lighter", "lighter_loading", l.ID, map[string]any{
		"shipment_cycle_id": l.ShipmentCycleID,
		"loaded_quantity":   l.LoadedQuantity.String(),
	})
	return l, nil
}

// RemoveLighter deletes a lighter and its trucks from the cycle.
func (s *Service) RemoveLighter(ctx context.Context, scope shared.Scope, cycleID, lighterID uuid.UUID) error {
	if _, err := s.mutate(ctx, scope, "remove_lighter", fixedCycle(cycleID), func(ctx context.Context, tx TxRepository, c *ShipmentCycle) error {
		if _, err := c.RemoveLighterLoading(lighterID); err != nil {
			return err
		}
		if err := tx.DeleteLighter(ctx, lighterID); err != nil {
			return err
		}
		return tx.UpdateFlowSummary(ctx, c.ID, c.FlowSummary)
	}); err != nil {
		return err
	}
	s.afterWrite(ctx, scope, "remove_lighter", "lighter_loading", lighterID, map[string]any{"shipment_cycle_id": cycleID})
	return nil
}

// AddTruck attaches a truck unloading to a lighter. The returned lighter is
// the parent after the addition.
func (s *Service) AddTruck(ctx context.Context, scope shared.Scope, lighterID uuid.UUID, req TruckRequest) (*TruckUnloading, *LighterLoading, error) {
	t, err := req.ToTruckUnloading()
	if err != nil {
		return nil, nil, err
	}
	var parent *LighterLoading
	if _, err := s.mutate(ctx, scope, "add_truck", cycleOfLighter(lighterID), func(ctx context.Context, tx TxRepository, c *ShipmentCycle) error {
		if err := c.AddTruckUnloading(lighterID, t); err != nil {
			return err
		}
		parent, _ = c.FindLighter(lighterID)
		if err := tx.InsertTruck(ctx, t); err != nil {
			return err
		}
		return tx.UpdateFlowSummary(ctx, c.ID, c.FlowSummary)
	}); err != nil {
		return nil, nil, err
	}
	s.afterWrite(ctx, scope, "add_truck", "truck_unloading", t.ID, map[string]any{
		"lighter_loading_id": lighterID,
		"challan":            t.Challan,
		"unloaded_quantity":  t.UnloadedQuantity.String(),
	})
	return t, parent, nil
}

// RemoveTruck deletes a truck unloading from its lighter.
func (s *Service) RemoveTruck(ctx context.Context, scope shared.Scope, lighterID, truckID uuid.UUID) error {
	if _, err := s.mutate(ctx, scope, "remove_truck", cycleOfLighter(lighterID), func(ctx context.Context, tx TxRepository, c *ShipmentCycle) error {
		if _, err := c.RemoveTruckUnloading(lighterID, truckID); err != nil {
			return err
		}
		if err := tx.DeleteTruck(ctx, truckID); err != nil {
			return err
		}
		return tx.UpdateFlowSummary(ctx, c.ID, c.FlowSummary)
	}); err != nil {
		return err
	}
	s.afterWrite(ctx, scope, "remove_truck", "truck_unloading", truckID, map[string]any{"lighter_loading_id": lighterID})
	return nil
}

// UpdateLighterStatus moves a lighter through its lifecycle. Marking it
// LOADED releases its dependent trucks.
func (s *Service) UpdateLighterStatus(ctx context.Context, scope shared.Scope, lighterID uuid.UUID, status LoadStatus) (*LighterLoading, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	var lighter *LighterLoading
	if _, err := s.mutate(ctx, scope, "lighter_status", cycleOfLighter(lighterID), func(ctx context.Context, tx TxRepository, c *ShipmentCycle) error {
		l, err := c.FindLighter(lighterID)
		if err != nil {
			return err
		}
		l.Status = status
		lighter = l
		return tx.UpdateLighterStatus(ctx, lighterID, status)
	}); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, scope, "lighter_status", "lighter_loading", lighterID, map[string]any{"status": status})
	return lighter, nil
}

// AddProduct attaches a product detail to a truck unloading.
func (s *Service) AddProduct(ctx context.Context, scope shared.Scope, truckID uuid.UUID, req ProductRequest) (*ProductDetail, error) {
	p := req.ToProductDetail()
	if _, err := s.mutate(ctx, scope, "add_product", cycleOfTruck(truckID), func(ctx context.Context, tx TxRepository, c *ShipmentCycle) error {
		t, _, err := c.FindTruck(truckID)
		if err != nil {
			return err
		}
		if err := t.AddProductDetail(p); err != nil {
			return err
		}
		return tx.InsertProduct(ctx, p)
	}); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, scope, "add_product", "product_detail", p.ID, map[string]any{"truck_unloading_id": truckID})
	return p, nil
}

// ============================================================================
// REPORTING
// ============================================================================

// Validate returns the advisory balance report. It never fails on imbalance.
func (s *Service) Validate(ctx context.Context, scope shared.Scope, id uuid.UUID) (ValidationReport, error) {
	c, err := s.Get(ctx, scope, id)
	if err != nil {
		return ValidationReport{}, err
	}
	return ValidateCycle(c), nil
}

// Dashboard returns the institute-wide dashboard, cached until the next write.
func (s *Service) Dashboard(ctx context.Context, instituteID int64) (DashboardResponse, error) {
	resp, sharedBuild, err := s.cache.Fetch(ctx, instituteID, func(ctx context.Context) (DashboardResponse, error) {
		cycles, _, err := s.repo.ListCycles(ctx, ListFilter{InstituteID: instituteID}, 0, 0)
		if err != nil {
			return DashboardResponse{}, err
		}
		d, err := BuildDashboard(cycles)
		if err != nil {
			return DashboardResponse{}, err
		}
		return ToDashboardResponse(d), nil
	})
	if err != nil {
		return DashboardResponse{}, fmt.Errorf("build dashboard: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveDashboardBuild(sharedBuild)
	}
	return resp, nil
}

// RefreshResult summarises one flow-summary refresh pass.
type RefreshResult struct {
	Scanned    int
	Refreshed  int
	Unbalanced int
}

// RefreshFlowSummaries rewrites stored flow summaries that drifted from the
// tree shape and counts unbalanced cycles. Each rewrite is computed from the
// tree as locked inside the transaction.
func (s *Service) RefreshFlowSummaries(ctx context.Context, instituteID int64) (RefreshResult, error) {
	cycles, _, err := s.repo.ListCycles(ctx, ListFilter{InstituteID: instituteID}, 0, 0)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("list shipments: %w", err)
	}
	result := RefreshResult{Scanned: len(cycles)}
	var stale []*ShipmentCycle
	for _, c := range cycles {
		if !IsCycleBalanced(c) {
			result.Unbalanced++
		}
		if c.FlowSummaryStale() {
			stale = append(stale, c)
		}
	}
	if len(stale) == 0 {
		return result, nil
	}
	refreshed := 0
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, c := range stale {
			locked, err := tx.LockCycle(ctx, c.ID)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("lock shipment %s: %w", c.ID, err)
			}
			if !locked.FlowSummaryStale() {
				continue
			}
			summary := FlowSummary(locked)
			if err := tx.UpdateFlowSummary(ctx, locked.ID, summary); err != nil {
				return fmt.Errorf("update flow summary %s: %w", c.ID, err)
			}
			locked.FlowSummary = summary
			refreshed++
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	result.Refreshed = refreshed
	if refreshed == 0 {
		return result, nil
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate dashboard cache", slog.Any("error", err))
	}
	return result, nil
}

// InstituteIDs lists institutes that own cycles.
func (s *Service) InstituteIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ListInstituteIDs(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

type cycleResolver func(ctx context.Context, tx TxRepository) (uuid.UUID, error)

func fixedCycle(id uuid.UUID) cycleResolver {
	return func(context.Context, TxRepository) (uuid.UUID, error) { return id, nil }
}

func cycleOfLighter(lighterID uuid.UUID) cycleResolver {
	return func(ctx context.Context, tx TxRepository) (uuid.UUID, error) {
		return tx.CycleIDForLighter(ctx, lighterID)
	}
}

func cycleOfTruck(truckID uuid.UUID) cycleResolver {
	return func(ctx context.Context, tx TxRepository) (uuid.UUID, error) {
		return tx.CycleIDForTruck(ctx, truckID)
	}
}

// mutate runs fn against the locked tree of the resolved cycle inside one
// transaction.
func (s *Service) mutate(ctx context.Context, scope shared.Scope, operation string, resolve cycleResolver, fn func(context.Context, TxRepository, *ShipmentCycle) error) (*ShipmentCycle, error) {
	var cycle *ShipmentCycle
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := resolve(ctx, tx)
		if err != nil {
			return err
		}
		c, err := tx.LockCycle(ctx, id)
		if err != nil {
			return err
		}
		if c.InstituteID != scope.InstituteID {
			return fmt.Errorf("shipment %s: %w", id, ErrNotFound)
		}
		if err := fn(ctx, tx, c); err != nil {
			return err
		}
		cycle = c
		return nil
	})
	if err != nil {
		s.observeRejection(operation, err)
		return nil, err
	}
	return cycle, nil
}

func (s *Service) observeRejection(operation string, err error) {
	if s.metrics != nil && IsCapacityError(err) {
		s.metrics.ObserveCapacityRejection(operation)
	}
}

func (s *Service) afterWrite(ctx context.Context, scope shared.Scope, action, entity string, id uuid.UUID, meta map[string]any) {
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  scope.UserID,
			Action:   "shipping." + action,
			Entity:   entity,
			EntityID: id.String(),
			Meta:     meta,
		})
		if err != nil {
			s.logger.Warn("record audit log", slog.String("action", action), slog.Any("error", err))
		}
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate dashboard cache", slog.Any("error", err))
	}
	if s.warmer != nil {
		if err := s.warmer.EnqueueDashboardWarmup(ctx, scope.InstituteID); err != nil {
			s.logger.Warn("enqueue dashboard warmup", slog.Int64("institute_id", scope.InstituteID), slog.Any("error", err))
		}
	}
}
