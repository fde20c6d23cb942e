package shipping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborline/harborline/internal/platform/db"
)

// Repository defines persistence for shipment trees.
type Repository interface {
	// Read operations
	GetCycle(ctx context.Context, id uuid.UUID) (*ShipmentCycle, error)
	ListCycles(ctx context.Context, filter ListFilter, limit, offset int) ([]*ShipmentCycle, int, error)
	ListInstituteIDs(ctx context.Context) ([]int64, error)

	// Write operations (transactional)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional operations. LockCycle takes a row lock
// so concurrent mutations of one tree are serialised.
type TxRepository interface {
	LockCycle(ctx context.Context, id uuid.UUID) (*ShipmentCycle, error)
	CycleIDForLighter(ctx context.Context, lighterID uuid.UUID) (uuid.UUID, error)
	CycleIDForTruck(ctx context.Context, truckID uuid.UUID) (uuid.UUID, error)

	InsertCycle(ctx context.Context, c *ShipmentCycle) error
	UpdateCycle(ctx context.Context, c *ShipmentCycle) error
	DeleteCycle(ctx context.Context, id uuid.UUID) error
	UpdateFlowSummary(ctx context.Context, id uuid.UUID, summary string) error

	InsertLighter(ctx context.Context, l *LighterLoading) error
	UpdateLighterStatus(ctx context.Context, id uuid.UUID, status LoadStatus) error
	DeleteLighter(ctx context.Context, id uuid.UUID) error

	InsertTruck(ctx context.Context, t *TruckUnloading) error
	DeleteTruck(ctx context.Context, id uuid.UUID) error

	InsertProduct(ctx context.Context, p *ProductDetail) error
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// repository implements Repository using pgxpool.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// txRepository implements TxRepository.
type txRepository struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, pgx.RepeatableRead, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const cycleColumns = `
	id, institute_id, consignee, mother_vessel_name, arrival_date,
	total_incoming_quantity, item_type, status, document_path, flow_summary,
	created_by, assigned_to, created_at, updated_at`

// GetCycle loads the cycle with its full tree.
func (r *repository) GetCycle(ctx context.Context, id uuid.UUID) (*ShipmentCycle, error) {
	return getCycle(ctx, r.pool, id, "")
}

// ListCycles returns full trees for an institute, newest arrival first.
func (r *repository) ListCycles(ctx context.Context, filter ListFilter, limit, offset int) ([]*ShipmentCycle, int, error) {
	where := []string{"institute_id = $1"}
	args := []any{filter.InstituteID}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("arrival_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("arrival_date <= $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(consignee ILIKE $%d OR mother_vessel_name ILIKE $%d)", len(args), len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM shipment_cycles WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + cycleColumns + " FROM shipment_cycles WHERE " + clause + " ORDER BY arrival_date DESC, created_at DESC"
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	cycles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*ShipmentCycle, error) {
		return scanCycle(row)
	})
	if err != nil {
		return nil, 0, err
	}
	if err := loadChildren(ctx, r.pool, cycles); err != nil {
		return nil, 0, err
	}
	return cycles, total, nil
}

// ListInstituteIDs returns every institute that owns at least one cycle.
func (r *repository) ListInstituteIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT institute_id FROM shipment_cycles ORDER BY institute_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// ============================================================================
// TREE LOADING
// ============================================================================

func getCycle(ctx context.Context, q querier, id uuid.UUID, lock string) (*ShipmentCycle, error) {
	c, err := scanCycle(q.QueryRow(ctx, "SELECT "+cycleColumns+" FROM shipment_cycles WHERE id = $1"+lock, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("shipment %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	if err := loadChildren(ctx, q, []*ShipmentCycle{c}); err != nil {
		return nil, err
	}
	return c, nil
}

func scanCycle(row pgx.Row) (*ShipmentCycle, error) {
	var c ShipmentCycle
	err := row.Scan(
		&c.ID, &c.InstituteID, &c.Consignee, &c.MotherVesselName, &c.ArrivalDate,
		&c.TotalIncomingQuantity, &c.ItemType, &c.Status, &c.DocumentPath, &c.FlowSummary,
		&c.CreatedBy, &c.AssignedTo, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// loadChildren fetches lighters, trucks and products for the cycles in three
// queries and links them in stored position order.
func loadChildren(ctx context.Context, q querier, cycles []*ShipmentCycle) error {
	if len(cycles) == 0 {
		return nil
	}
	byCycle := make(map[uuid.UUID]*ShipmentCycle, len(cycles))
	cycleIDs := make([]uuid.UUID, 0, len(cycles))
	for _, c := range cycles {
		c.Lighters = nil
		byCycle[c.ID] = c
		cycleIDs = append(cycleIDs, c.ID)
	}

	rows, err := q.Query(ctx, `
		SELECT id, shipment_cycle_id, lighter_name, destination, unloading_point, loading_date,
		       loaded_quantity, lighter_cost, status, document_path, created_at, updated_at
		FROM lighter_loadings
		WHERE shipment_cycle_id = ANY($1)
		ORDER BY shipment_cycle_id, position`, cycleIDs)
	if err != nil {
		return fmt.Errorf("load lighters: %w", err)
	}
	lighters, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*LighterLoading, error) {
		l := &LighterLoading{}
		var loadingDate *time.Time
		err := row.Scan(&l.ID, &l.ShipmentCycleID, &l.LighterName, &l.Destination, &l.UnloadingPoint, &loadingDate,
			&l.LoadedQuantity, &l.LighterCost, &l.Status, &l.DocumentPath, &l.CreatedAt, &l.UpdatedAt)
		l.LoadingDate = derefTime(loadingDate)
		return l, err
	})
	if err != nil {
		return fmt.Errorf("load lighters: %w", err)
	}
	if len(lighters) == 0 {
		return nil
	}
	byLighter := make(map[uuid.UUID]*LighterLoading, len(lighters))
	lighterIDs := make([]uuid.UUID, 0, len(lighters))
	for _, l := range lighters {
		if c, ok := byCycle[l.ShipmentCycleID]; ok {
			c.Lighters = append(c.Lighters, l)
		}
		byLighter[l.ID] = l
		lighterIDs = append(lighterIDs, l.ID)
	}

	rows, err = q.Query(ctx, `
		SELECT id, lighter_loading_id, challan, conveyance_name, number_of_trucks, discharging_location,
		       destination, party, unloading_date, unloaded_quantity, unloading_cost, status,
		       depends_on_lighter_completion, created_at, updated_at
		FROM truck_unloadings
		WHERE lighter_loading_id = ANY($1)
		ORDER BY lighter_loading_id, position`, lighterIDs)
	if err != nil {
		return fmt.Errorf("load trucks: %w", err)
	}
	trucks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*TruckUnloading, error) {
		t := &TruckUnloading{}
		var unloadingDate *time.Time
		err := row.Scan(&t.ID, &t.LighterLoadingID, &t.Challan, &t.ConveyanceName, &t.NumberOfTrucks, &t.DischargingLocation,
			&t.Destination, &t.Party, &unloadingDate, &t.UnloadedQuantity, &t.UnloadingCost, &t.Status,
			&t.DependsOnLighterCompletion, &t.CreatedAt, &t.UpdatedAt)
		t.UnloadingDate = derefTime(unloadingDate)
		return t, err
	})
	if err != nil {
		return fmt.Errorf("load trucks: %w", err)
	}
	if len(trucks) == 0 {
		return nil
	}
	byTruck := make(map[uuid.UUID]*TruckUnloading, len(trucks))
	truckIDs := make([]uuid.UUID, 0, len(trucks))
	for _, t := range trucks {
		if l, ok := byLighter[t.LighterLoadingID]; ok {
			l.Trucks = append(l.Trucks, t)
		}
		byTruck[t.ID] = t
		truckIDs = append(truckIDs, t.ID)
	}

	rows, err = q.Query(ctx, `
		SELECT id, truck_unloading_id, item, delivery_quantity, survey_quantity,
		       lighter_cost, unloading_cost, truck_transport_cost
		FROM product_details
		WHERE truck_unloading_id = ANY($1)
		ORDER BY truck_unloading_id, position`, truckIDs)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*ProductDetail, error) {
		p := &ProductDetail{}
		err := row.Scan(&p.ID, &p.TruckUnloadingID, &p.Item, &p.DeliveryQuantity, &p.SurveyQuantity,
			&p.LighterCost, &p.UnloadingCost, &p.TruckTransportCost)
		return p, err
	})
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	for _, p := range products {
		if t, ok := byTruck[p.TruckUnloadingID]; ok {
			t.Products = append(t.Products, p)
		}
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
