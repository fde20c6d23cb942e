package shipping

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// FIXTURES
// ============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func newCycle(vessel, incoming string) *ShipmentCycle {
	c := NewShipmentCycle()
	c.MotherVesselName = vessel
	c.Consignee = "Bashundhara Group"
	c.ItemType = "Wheat"
	c.TotalIncomingQuantity = dec(incoming)
	return c
}

func newLighter(name, loaded, cost string) *LighterLoading {
	l := NewLighterLoading()
	l.LighterName = name
	l.LoadedQuantity = dec(loaded)
	l.LighterCost = dec(cost)
	return l
}

func newTruck(challan, unloaded, cost string) *TruckUnloading {
	t := NewTruckUnloading()
	t.Challan = challan
	t.UnloadedQuantity = dec(unloaded)
	t.UnloadingCost = dec(cost)
	return t
}

func newProduct(item, lighter, unloading, transport string) *ProductDetail {
	p := NewProductDetail()
	p.Item = item
	p.DeliveryQuantity = dec("10")
	p.LighterCost = dec(lighter)
	p.UnloadingCost = dec(unloading)
	p.TruckTransportCost = dec(transport)
	return p
}

// ============================================================================
// CONSTRUCTORS
// ============================================================================

func TestConstructorDefaults(t *testing.T) {
	c := NewShipmentCycle()
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.Equal(t, ShipmentStatusPending, c.Status)

	l := NewLighterLoading()
	assert.Equal(t, LoadStatusPending, l.Status)
	assert.True(t, l.LighterCost.IsZero())
	assert.Equal(t, uuid.Nil, l.ShipmentCycleID)

	tr := NewTruckUnloading()
	assert.Equal(t, 1, tr.NumberOfTrucks)
	assert.True(t, tr.DependsOnLighterCompletion)
	assert.Equal(t, LoadStatusPending, tr.Status)
}

func TestStatusIsValid(t *testing.T) {
	assert.True(t, ShipmentStatusCancelled.IsValid())
	assert.False(t, ShipmentStatus("DONE").IsValid())
	assert.True(t, LoadStatusInTransit.IsValid())
	assert.False(t, LoadStatus("").IsValid())
}

// ============================================================================
// ADD / REMOVE
// ============================================================================

func TestAddLighterLoadingLinksBothSides(t *testing.T) {
	c := newCycle("MV Ocean Star", "1000")
	l := newLighter("Sea Hawk", "400", "0")

	require.NoError(t, c.AddLighterLoading(l))
	assert.Equal(t, c.ID, l.ShipmentCycleID)
	require.Len(t, c.Lighters, 1)
	assert.Same(t, l, c.Lighters[0])
	assert.Equal(t, "Unloaded from 1 Mother Vessel (MV Ocean Star) to 1 Lighter(s), then to 0 Truck(s)", c.FlowSummary)
}

func TestRemoveLighterLoadingClearsBackReference(t *testing.T) {
	c := newCycle("MV Ocean Star", "1000")
	l := newLighter("Sea Hawk", "400", "0")
	require.NoError(t, c.AddLighterLoading(l))

	removed, err := c.RemoveLighterLoading(l.ID)
	require.NoError(t, err)
	assert.Same(t, l, removed)
	assert.Equal(t, uuid.Nil, l.ShipmentCycleID)
	assert.Empty(t, c.Lighters)
	assert.Contains(t, c.FlowSummary, "to 0 Lighter(s)")

	_, err = c.RemoveLighterLoading(l.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddLighterLoadingRejectsForeignLighter(t *testing.T) {
	a := newCycle("MV A", "1000")
	b := newCycle("MV B", "1000")
	l := newLighter("Sea Hawk", "100", "0")
	require.NoError(t, a.AddLighterLoading(l))

	err := b.AddLighterLoading(l)
	assert.ErrorIs(t, err, ErrAlreadyAttached)
	assert.Empty(t, b.Lighters)
	assert.Equal(t, a.ID, l.ShipmentCycleID)

	err = a.AddLighterLoading(l)
	assert.ErrorIs(t, err, ErrAlreadyAttached)
	assert.Len(t, a.Lighters, 1)
}

func TestAddTruckUnloadingDefaultsConveyanceToLighter(t *testing.T) {
	c := newCycle("MV Ocean Star", "1000")
	l := newLighter("Sea Hawk", "400", "0")
	require.NoError(t, c.AddLighterLoading(l))

	tr := newTruck("CH-1", "100", "0")
	require.NoError(t, c.AddTruckUnloading(l.ID, tr))
	assert.Equal(t, l.ID, tr.LighterLoadingID)
	assert.Equal(t, "Sea Hawk", tr.ConveyanceName)
	assert.Contains(t, c.FlowSummary, "then to 1 Truck(s)")

	err := c.AddTruckUnloading(uuid.New(), newTruck("CH-2", "1", "0"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveTruckUnloading(t *testing.T) {
	c := newCycle("MV Ocean Star", "1000")
	l := newLighter("Sea Hawk", "400", "0")
	require.NoError(t, c.AddLighterLoading(l))
	tr := newTruck("CH-1", "100", "0")
	require.NoError(t, c.AddTruckUnloading(l.ID, tr))

	removed, err := c.RemoveTruckUnloading(l.ID, tr.ID)
	require.NoError(t, err)
	assert.Same(t, tr, removed)
	assert.Equal(t, uuid.Nil, tr.LighterLoadingID)
	assert.Empty(t, l.Trucks)
	assert.Contains(t, c.FlowSummary, "then to 0 Truck(s)")

	_, err = l.RemoveTruckUnloading(tr.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddRemoveProductDetail(t *testing.T) {
	tr := newTruck("CH-1", "100", "0")
	p := newProduct("Wheat", "1", "2", "3")

	require.NoError(t, tr.AddProductDetail(p))
	assert.Equal(t, tr.ID, p.TruckUnloadingID)

	other := newTruck("CH-2", "100", "0")
	assert.ErrorIs(t, other.AddProductDetail(p), ErrAlreadyAttached)

	removed, err := tr.RemoveProductDetail(p.ID)
	require.NoError(t, err)
	assert.Same(t, p, removed)
	assert.Equal(t, uuid.Nil, p.TruckUnloadingID)
	assert.Empty(t, tr.Products)

	_, err = tr.RemoveProductDetail(p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================================================
// CAPACITY
// ============================================================================

func TestAddTruckBeyondRemainingLeavesLighterUnchanged(t *testing.T) {
	c := newCycle("MV Ocean Star", "1000")
	l := newLighter("Sea Hawk", "500", "0")
	require.NoError(t, c.AddLighterLoading(l))
	first := newTruck("CH-1", "300", "0")
	require.NoError(t, c.AddTruckUnloading(l.ID, first))
	summary := c.FlowSummary

	over := newTruck("CH-2", "201", "0")
	err := c.AddTruckUnloading(l.ID, over)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.True(t, IsCapacityError(err))
	assert.Contains(t, err.Error(), "for lighter: Sea Hawk")
	assert.Contains(t, err.Error(), "(501)")

	require.Len(t, l.Trucks, 1)
	assert.Same(t, first, l.Trucks[0])
	assert.Equal(t, uuid.Nil, over.LighterLoadingID)
	assert.Equal(t, summary, c.FlowSummary)
}

func TestAddLighterWithOverloadedTrucksRejected(t *testing.T) {
	c := newCycle("MV Ocean Star", "1000")
	l := newLighter("Sea Hawk", "100", "0")
	l.Trucks = []*TruckUnloading{newTruck("CH-1", "150", "0")}

	err := c.AddLighterLoading(l)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Empty(t, c.Lighters)
}

func TestAddRejectsInvalidNumbers(t *testing.T) {
	c := newCycle("MV Ocean Star", "1000")

	err := c.AddLighterLoading(newLighter("Zero", "0", "0"))
	assert.ErrorIs(t, err, ErrInvalidNumericValue)

	err = c.AddLighterLoading(newLighter("Negative cost", "10", "-1"))
	assert.ErrorIs(t, err, ErrInvalidNumericValue)
	assert.Empty(t, c.Lighters)

	l := newLighter("Sea Hawk", "100", "0")
	require.NoError(t, c.AddLighterLoading(l))
	err = c.AddTruckUnloading(l.ID, newTruck("CH-1", "-5", "0"))
	assert.ErrorIs(t, err, ErrInvalidNumericValue)

	bad := newTruck("CH-2", "5", "0")
	bad.NumberOfTrucks = 0
	assert.ErrorIs(t, c.AddTruckUnloading(l.ID, bad), ErrInvalidNumericValue)
	assert.Empty(t, l.Trucks)

	tr := newTruck("CH-3", "5", "0")
	assert.ErrorIs(t, tr.AddProductDetail(newProduct("Rice", "0", "-0.01", "0")), ErrInvalidNumericValue)
}

func TestScenarioA_FullyBalancedCycle(t *testing.T) {
	c := newCycle("MV Ocean Star", "1000")
	l := newLighter("Sea Hawk", "1000", "0")
	require.NoError(t, c.AddLighterLoading(l))
	require.NoError(t, c.AddTruckUnloading(l.ID, newTruck("CH-1", "1000", "0")))

	assert.True(t, IsCycleBalanced(c))
	assert.True(t, IsLighterBalanced(l))
	assertDecimal(t, "0", l.RemainingQuantity())
}

func TestScenarioB_ExtraTruckRejected(t *testing.T) {
	c := newCycle("MV Ocean Star", "1000")
	l := newLighter("Sea Hawk", "1000", "0")
	require.NoError(t, c.AddLighterLoading(l))
	require.NoError(t, c.AddTruckUnloading(l.ID, newTruck("CH-1", "1000", "0")))

	err := c.AddTruckUnloading(l.ID, newTruck("CH-2", "1", "0"))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Len(t, l.Trucks, 1)
}

func TestScenarioC_LighterExceedsIncoming(t *testing.T) {
	c := newCycle("MV Ocean Star", "500")
	l := newLighter("Sea Hawk", "600", "0")

	err := c.AddLighterLoading(l)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Contains(t, err.Error(), "total loaded quantity (600) exceeds incoming quantity (500)")
	assert.Empty(t, c.Lighters)
	assert.Equal(t, uuid.Nil, l.ShipmentCycleID)
}

func TestCumulativeLighterLoadExceedsIncoming(t *testing.T) {
	c := newCycle("MV Ocean Star", "1000")
	require.NoError(t, c.AddLighterLoading(newLighter("A", "600", "0")))
	require.NoError(t, c.AddLighterLoading(newLighter("B", "400", "0")))

	err := c.AddLighterLoading(newLighter("C", "0.001", "0"))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Len(t, c.Lighters, 2)
	assert.Contains(t, c.FlowSummary, "to 2 Lighter(s)")
}
