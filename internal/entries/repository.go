package entries

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborline/harborline/internal/platform/db"
	"github.com/harborline/harborline/internal/shared"
)

// Repository persists board entries.
type Repository interface {
	List(ctx context.Context, instituteID, boardID int64) ([]Entry, error)
	Insert(ctx context.Context, e *Entry) error
	// Modify locks the row, applies fn and writes the result back.
	Modify(ctx context.Context, instituteID, boardID, id int64, fn func(*Entry) error) (*Entry, error)
	Delete(ctx context.Context, instituteID, boardID, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const entryColumns = `
	id, board_id, institute_id, position, consignee, lighter_vessel_name,
	vessel_destination, entry_date, challan_no, converting_vessel, no_of_trucks,
	discharging_location, final_destination, item_name, billable_quantity,
	lighter_cost, unload_cost, truck_cost, created_by, updated_by, created_at, updated_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID, &e.BoardID, &e.InstituteID, &e.Position, &e.Consignee, &e.LighterVesselName,
		&e.VesselDestination, &e.Date, &e.ChallanNo, &e.ConvertingVessel, &e.NoOfTrucks,
		&e.DischargingLocation, &e.FinalDestination, &e.ItemName, &e.BillableQuantity,
		&e.LighterCost, &e.UnloadCost, &e.TruckCost, &e.CreatedBy, &e.UpdatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// List returns a board's entries in position order.
func (r *repository) List(ctx context.Context, instituteID, boardID int64) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+`
		FROM shipment_entries
		WHERE institute_id = $1 AND board_id = $2
		ORDER BY position, id`, instituteID, boardID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		return scanEntry(row)
	})
}

// Insert appends a blank row after the board's last position. Appends to the
// same board are serialized on a transaction-scoped advisory lock.
func (r *repository) Insert(ctx context.Context, e *Entry) error {
	return db.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended('shipment_entries:' || $1::text || ':' || $2::text, 0))`,
			e.InstituteID, e.BoardID); err != nil {
			return fmt.Errorf("lock board: %w", err)
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO shipment_entries (board_id, institute_id, position, created_by, updated_by)
			VALUES ($1, $2, (SELECT COALESCE(MAX(position) + 1, 0) FROM shipment_entries WHERE institute_id = $2 AND board_id = $1), $3, $3)
			RETURNING `+entryColumns, e.BoardID, e.InstituteID, e.CreatedBy)
		inserted, err := scanEntry(row)
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		*e = inserted
		return nil
	})
}

// Modify applies fn under a row lock.
func (r *repository) Modify(ctx context.Context, instituteID, boardID, id int64, fn func(*Entry) error) (*Entry, error) {
	var updated Entry
	err := db.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		e, err := scanEntry(tx.QueryRow(ctx, `SELECT `+entryColumns+`
			FROM shipment_entries
			WHERE id = $1 AND institute_id = $2 AND board_id = $3
			FOR UPDATE`, id, instituteID, boardID))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("entry %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if err := fn(&e); err != nil {
			return err
		}

		updated, err = scanEntry(tx.QueryRow(ctx, `
			UPDATE shipment_entries SET
				consignee = $2, lighter_vessel_name = $3, vessel_destination = $4, entry_date = $5,
				challan_no = $6, converting_vessel = $7, no_of_trucks = $8, discharging_location = $9,
				final_destination = $10, item_name = $11, billable_quantity = $12, lighter_cost = $13,
				unload_cost = $14, truck_cost = $15, updated_by = $16, updated_at = NOW()
			WHERE id = $1
			RETURNING `+entryColumns,
			e.ID, e.Consignee, e.LighterVesselName, e.VesselDestination, e.Date,
			e.ChallanNo, e.ConvertingVessel, e.NoOfTrucks, e.DischargingLocation,
			e.FinalDestination, e.ItemName, e.BillableQuantity, e.LighterCost,
			e.UnloadCost, e.TruckCost, e.UpdatedBy,
		))
		if shared.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateChallan, derefString(e.ChallanNo))
		}
		if err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes one entry.
func (r *repository) Delete(ctx context.Context, instituteID, boardID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM shipment_entries WHERE id = $1 AND institute_id = $2 AND board_id = $3`, id, instituteID, boardID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entry %d: %w", id, ErrNotFound)
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
