package shipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LockCycle loads the tree with a row lock on the cycle.
func (r *txRepository) LockCycle(ctx context.Context, id uuid.UUID) (*ShipmentCycle, error) {
	return getCycle(ctx, r.tx, id, " FOR UPDATE")
}

// CycleIDForLighter resolves the owning cycle of a lighter.
func (r *txRepository) CycleIDForLighter(ctx context.Context, lighterID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.tx.QueryRow(ctx, `SELECT shipment_cycle_id FROM lighter_loadings WHERE id = $1`, lighterID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("lighter %s: %w", lighterID, ErrNotFound)
	}
	return id, err
}

// CycleIDForTruck resolves the owning cycle of a truck unloading.
func (r *txRepository) CycleIDForTruck(ctx context.Context, truckID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.tx.QueryRow(ctx, `
		SELECT l.shipment_cycle_id
		FROM truck_unloadings t
		JOIN lighter_loadings l ON l.id = t.lighter_loading_id
		WHERE t.id = $1`, truckID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("truck unloading %s: %w", truckID, ErrNotFound)
	}
	return id, err
}

// InsertCycle persists the cycle and every descendant.
func (r *txRepository) InsertCycle(ctx context.Context, c *ShipmentCycle) error {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO shipment_cycles (
			id, institute_id, consignee, mother_vessel_name, arrival_date,
			total_incoming_quantity, item_type, status, document_path, flow_summary,
			created_by, assigned_to
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		c.ID, c.InstituteID, c.Consignee, c.MotherVesselName, c.ArrivalDate,
		c.TotalIncomingQuantity, c.ItemType, c.Status, c.DocumentPath, c.FlowSummary,
		c.CreatedBy, c.AssignedTo,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert shipment cycle: %w", err)
	}
	for _, l := range c.Lighters {
		if err := r.InsertLighter(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

// UpdateCycle writes the scalar columns of the cycle.
func (r *txRepository) UpdateCycle(ctx context.Context, c *ShipmentCycle) error {
	err := r.tx.QueryRow(ctx, `
		UPDATE shipment_cycles SET
			consignee = $2, mother_vessel_name = $3, arrival_date = $4,
			total_incoming_quantity = $5, item_type = $6, status = $7,
			document_path = $8, flow_summary = $9, assigned_to = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Consignee, c.MotherVesselName, c.ArrivalDate,
		c.TotalIncomingQuantity, c.ItemType, c.Status,
		c.DocumentPath, c.FlowSummary, c.AssignedTo,
	).Scan(&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("shipment %s: %w", c.ID, ErrNotFound)
	}
	return err
}

// DeleteCycle removes the cycle; children go through ON DELETE CASCADE.
func (r *txRepository) DeleteCycle(ctx context.Context, id uuid.UUID) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM shipment_cycles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shipment %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *txRepository) UpdateFlowSummary(ctx context.Context, id uuid.UUID, summary string) error {
	_, err := r.tx.Exec(ctx, `UPDATE shipment_cycles SET flow_summary = $2, updated_at = NOW() WHERE id = $1`, id, summary)
	return err
}

// InsertLighter appends the lighter after its siblings, then its trucks.
func (r *txRepository) InsertLighter(ctx context.Context, l *LighterLoading) error {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO lighter_loadings (
			id, shipment_cycle_id, position, lighter_name, destination, unloading_point,
			loading_date, loaded_quantity, lighter_cost, status, document_path
		) VALUES (
			$1, $2,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM lighter_loadings WHERE shipment_cycle_id = $2),
			$3, $4, $5, $6, $7, $8, $9, $10
		)
		RETURNING created_at, updated_at`,
		l.ID, l.ShipmentCycleID, l.LighterName, l.Destination, l.UnloadingPoint,
		nullableTime(l.LoadingDate), l.LoadedQuantity, l.LighterCost, l.Status, l.DocumentPath,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert lighter %q: %w", l.LighterName, err)
	}
	for _, t := range l.Trucks {
		if err := r.InsertTruck(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) UpdateLighterStatus(ctx context.Context, id uuid.UUID, status LoadStatus) error {
	tag, err := r.tx.Exec(ctx, `UPDATE lighter_loadings SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lighter %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *txRepository) DeleteLighter(ctx context.Context, id uuid.UUID) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM lighter_loadings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lighter %s: %w", id, ErrNotFound)
	}
	return nil
}

// InsertTruck appends the truck unloading after its siblings, then its products.
func (r *txRepository) InsertTruck(ctx context.Context, t *TruckUnloading) error {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO truck_unloadings (
			id, lighter_loading_id, position, challan, conveyance_name, number_of_trucks,
			discharging_location, destination, party, unloading_date, unloaded_quantity,
			unloading_cost, status, depends_on_lighter_completion
		) VALUES (
			$1, $2,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM truck_unloadings WHERE lighter_loading_id = $2),
			$3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING created_at, updated_at`,
		t.ID, t.LighterLoadingID, t.Challan, t.ConveyanceName, t.NumberOfTrucks,
		t.DischargingLocation, t.Destination, t.Party, nullableTime(t.UnloadingDate), t.UnloadedQuantity,
		t.UnloadingCost, t.Status, t.DependsOnLighterCompletion,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert truck unloading %q: %w", t.Challan, err)
	}
	for _, p := range t.Products {
		if err := r.InsertProduct(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) DeleteTruck(ctx context.Context, id uuid.UUID) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM truck_unloadings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("truck unloading %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *txRepository) InsertProduct(ctx context.Context, p *ProductDetail) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO product_details (
			id, truck_unloading_id, position, item, delivery_quantity, survey_quantity,
			lighter_cost, unloading_cost, truck_transport_cost
		) VALUES (
			$1, $2,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM product_details WHERE truck_unloading_id = $2),
			$3, $4, $5, $6, $7, $8
		)`,
		p.ID, p.TruckUnloadingID, p.Item, p.DeliveryQuantity, p.SurveyQuantity,
		p.LighterCost, p.UnloadingCost, p.TruckTransportCost,
	)
	if err != nil {
		return fmt.Errorf("insert product %q: %w", p.Item, err)
	}
	return nil
}
