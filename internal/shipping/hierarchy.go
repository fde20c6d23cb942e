package shipping

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ============================================================================
// CYCLE <-> LIGHTER
// ============================================================================

// AddLighterLoading attaches l to the cycle and rejects the insertion with
// ErrCapacityExceeded when the cycle would load more than it received. On
// rejection the cycle is left exactly as it was.
func (c *ShipmentCycle) AddLighterLoading(l *LighterLoading) error {
	if err := validateLighter(l); err != nil {
		return err
	}
	if !IsLighterBalanced(l) {
		return lighterCapacityError(l)
	}
	if err := c.attachLighter(l); err != nil {
		return err
	}
	if !IsCycleBalanced(c) {
		c.detachLighter(l.ID)
		return fmt.Errorf("%w: total loaded quantity (%s) exceeds incoming quantity (%s)",
			ErrCapacityExceeded, c.TotalLoadedQuantity().Add(l.LoadedQuantity), c.TotalIncomingQuantity)
	}
	c.RefreshFlowSummary()
	return nil
}

// RemoveLighterLoading detaches the lighter and returns it with an empty
// back reference.
func (c *ShipmentCycle) RemoveLighterLoading(id uuid.UUID) (*LighterLoading, error) {
	l := c.detachLighter(id)
	if l == nil {
		return nil, fmt.Errorf("lighter %s: %w", id, ErrNotFound)
	}
	c.RefreshFlowSummary()
	return l, nil
}

// FindLighter returns the lighter with the given id.
func (c *ShipmentCycle) FindLighter(id uuid.UUID) (*LighterLoading, error) {
	for _, l := range c.Lighters {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, fmt.Errorf("lighter %s: %w", id, ErrNotFound)
}

// FindTruck returns the truck with the given id and its parent lighter.
func (c *ShipmentCycle) FindTruck(id uuid.UUID) (*TruckUnloading, *LighterLoading, error) {
	for _, l := range c.Lighters {
		for _, t := range l.Trucks {
			if t.ID == id {
				return t, l, nil
			}
		}
	}
	return nil, nil, fmt.Errorf("truck %s: %w", id, ErrNotFound)
}

// AddTruckUnloading adds t to the lighter identified by lighterID and
// regenerates the flow summary.
func (c *ShipmentCycle) AddTruckUnloading(lighterID uuid.UUID, t *TruckUnloading) error {
	l, err := c.FindLighter(lighterID)
	if err != nil {
		return err
	}
	if err := l.AddTruckUnloading(t); err != nil {
		return err
	}
	c.RefreshFlowSummary()
	return nil
}

// RemoveTruckUnloading removes a truck from one of the cycle's lighters.
func (c *ShipmentCycle) RemoveTruckUnloading(lighterID, truckID uuid.UUID) (*TruckUnloading, error) {
	l, err := c.FindLighter(lighterID)
	if err != nil {
		return nil, err
	}
	t, err := l.RemoveTruckUnloading(truckID)
	if err != nil {
		return nil, err
	}
	c.RefreshFlowSummary()
	return t, nil
}

func (c *ShipmentCycle) attachLighter(l *LighterLoading) error {
	if l.ShipmentCycleID != uuid.Nil && l.ShipmentCycleID != c.ID {
		return fmt.Errorf("lighter %s: %w", l.ID, ErrAlreadyAttached)
	}
	for _, existing := range c.Lighters {
		if existing.ID == l.ID {
			return fmt.Errorf("lighter %s: %w", l.ID, ErrAlreadyAttached)
		}
	}
	l.ShipmentCycleID = c.ID
	c.Lighters = append(c.Lighters, l)
	return nil
}

func (c *ShipmentCycle) detachLighter(id uuid.UUID) *LighterLoading {
	for i, l := range c.Lighters {
		if l.ID != id {
			continue
		}
		c.Lighters = append(c.Lighters[:i:i], c.Lighters[i+1:]...)
		l.ShipmentCycleID = uuid.Nil
		return l
	}
	return nil
}

// ============================================================================
// LIGHTER <-> TRUCK
// ============================================================================

// AddTruckUnloading attaches t and rejects it with ErrCapacityExceeded when
// the lighter would discharge more than it loaded. The truck collection is
// unchanged on rejection. Callers holding the cycle should go through
// ShipmentCycle.AddTruckUnloading so the flow summary stays current.
func (l *LighterLoading) AddTruckUnloading(t *TruckUnloading) error {
	if err := validateTruck(t); err != nil {
		return err
	}
	if err := l.attachTruck(t); err != nil {
		return err
	}
	if !IsLighterBalanced(l) {
		l.detachTruck(t.ID)
		return lighterCapacityError(l, t)
	}
	return nil
}

// RemoveTruckUnloading detaches the truck with the given id.
func (l *LighterLoading) RemoveTruckUnloading(id uuid.UUID) (*TruckUnloading, error) {
	t := l.detachTruck(id)
	if t == nil {
		return nil, fmt.Errorf("truck %s: %w", id, ErrNotFound)
	}
	return t, nil
}

func (l *LighterLoading) attachTruck(t *TruckUnloading) error {
	if t.LighterLoadingID != uuid.Nil && t.LighterLoadingID != l.ID {
		return fmt.Errorf("truck %s: %w", t.ID, ErrAlreadyAttached)
	}
	for _, existing := range l.Trucks {
		if existing.ID == t.ID {
			return fmt.Errorf("truck %s: %w", t.ID, ErrAlreadyAttached)
		}
	}
	t.LighterLoadingID = l.ID
	if t.ConveyanceName == "" {
		t.ConveyanceName = l.LighterName
	}
	l.Trucks = append(l.Trucks, t)
	return nil
}

func (l *LighterLoading) detachTruck(id uuid.UUID) *TruckUnloading {
	for i, t := range l.Trucks {
		if t.ID != id {
			continue
		}
		l.Trucks = append(l.Trucks[:i:i], l.Trucks[i+1:]...)
		t.LighterLoadingID = uuid.Nil
		return t
	}
	return nil
}

// lighterCapacityError reports the overflow of l. When pending is set it has
// already been detached and is added back into the reported total.
func lighterCapacityError(l *LighterLoading, pending ...*TruckUnloading) error {
	unloaded := l.TotalUnloadedQuantity()
	for _, t := range pending {
		unloaded = unloaded.Add(t.UnloadedQuantity)
	}
	return fmt.Errorf("%w: unloaded quantity (%s) exceeds loaded quantity (%s) for lighter: %s",
		ErrCapacityExceeded, unloaded, l.LoadedQuantity, l.LighterName)
}

// ============================================================================
// TRUCK <-> PRODUCT
// ============================================================================

// AddProductDetail attaches p to the truck. Products are informational and
// carry no capacity rule.
func (t *TruckUnloading) AddProductDetail(p *ProductDetail) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if p.TruckUnloadingID != uuid.Nil && p.TruckUnloadingID != t.ID {
		return fmt.Errorf("product %s: %w", p.ID, ErrAlreadyAttached)
	}
	for _, existing := range t.Products {
		if existing.ID == p.ID {
			return fmt.Errorf("product %s: %w", p.ID, ErrAlreadyAttached)
		}
	}
	p.TruckUnloadingID = t.ID
	t.Products = append(t.Products, p)
	return nil
}

// RemoveProductDetail detaches the product with the given id.
func (t *TruckUnloading) RemoveProductDetail(id uuid.UUID) (*ProductDetail, error) {
	for i, p := range t.Products {
		if p.ID != id {
			continue
		}
		t.Products = append(t.Products[:i:i], t.Products[i+1:]...)
		p.TruckUnloadingID = uuid.Nil
		return p, nil
	}
	return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
}

// IsCapacityError reports whether err is a capacity rejection.
func IsCapacityError(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}
