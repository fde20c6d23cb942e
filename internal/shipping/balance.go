package shipping

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	msgCycleOverloaded   = "WARNING: Loaded quantity exceeds incoming quantity!"
	msgLighterOverloaded = "WARNING: Unloaded quantity exceeds loaded quantity!"
)

// IsLighterBalanced reports whether the trucks discharged no more than the
// lighter loaded.
func IsLighterBalanced(l *LighterLoading) bool {
	return !l.TotalUnloadedQuantity().GreaterThan(l.LoadedQuantity)
}

// IsCycleBalanced reports whether the lighters loaded no more than the
// mother vessel delivered.
func IsCycleBalanced(c *ShipmentCycle) bool {
	return !c.TotalLoadedQuantity().GreaterThan(c.TotalIncomingQuantity)
}

// CanProceed reports whether a truck unloading is actionable. Dependent
// trucks wait until their lighter is LOADED.
func CanProceed(t *TruckUnloading, parent *LighterLoading) bool {
	if !t.DependsOnLighterCompletion {
		return true
	}
	return parent != nil && parent.Status == LoadStatusLoaded
}

// CanTruckProceed resolves the truck inside the cycle and applies CanProceed.
func (c *ShipmentCycle) CanTruckProceed(truckID uuid.UUID) (bool, error) {
	t, l, err := c.FindTruck(truckID)
	if err != nil {
		return false, err
	}
	return CanProceed(t, l), nil
}

// ValidateStrict is the hard mode used before a new tree is persisted. It
// fails with ErrInvalidNumericValue or ErrCapacityExceeded.
func ValidateStrict(c *ShipmentCycle) error {
	if err := ValidateTree(c); err != nil {
		return err
	}
	for _, l := range c.Lighters {
		if !IsLighterBalanced(l) {
			return lighterCapacityError(l)
		}
	}
	if !IsCycleBalanced(c) {
		return fmt.Errorf("%w: total loaded quantity (%s) exceeds incoming quantity (%s)",
			ErrCapacityExceeded, c.TotalLoadedQuantity(), c.TotalIncomingQuantity)
	}
	return nil
}

// ============================================================================
// ADVISORY REPORT
// ============================================================================

// ValidationReport is the read-only balance report for one cycle. Imbalances
// are described in messages rather than returned as errors.
type ValidationReport struct {
	ShipmentID          uuid.UUID
	MotherVessel        string
	IncomingQuantity    decimal.Decimal
	TotalLoadedQuantity decimal.Decimal
	Balanced            bool
	Message             string
	Lighters            []LighterValidation
	BlockedTrucks       []DependencyFlag
}

// LighterValidation is the per-lighter entry of a ValidationReport.
type LighterValidation struct {
	LighterID             uuid.UUID
	LighterName           string
	LoadedQuantity        decimal.Decimal
	TotalUnloadedQuantity decimal.Decimal
	RemainingQuantity     decimal.Decimal
	Balanced              bool
	Message               string
}

// DependencyFlag marks a dependent truck whose lighter is not LOADED.
type DependencyFlag struct {
	TruckID       uuid.UUID
	Challan       string
	LighterID     uuid.UUID
	LighterName   string
	LighterStatus LoadStatus
	Message       string
}

// ValidateCycle builds the advisory report. It never mutates the cycle.
func ValidateCycle(c *ShipmentCycle) ValidationReport {
	report := ValidationReport{
		ShipmentID:          c.ID,
		MotherVessel:        c.MotherVesselName,
		IncomingQuantity:    c.TotalIncomingQuantity,
		TotalLoadedQuantity: c.TotalLoadedQuantity(),
		Balanced:            IsCycleBalanced(c),
		Lighters:            make([]LighterValidation, 0, len(c.Lighters)),
		BlockedTrucks:       []DependencyFlag{},
	}
	if !report.Balanced {
		report.Message = msgCycleOverloaded
	}
	for _, l := range c.Lighters {
		entry := LighterValidation{
			LighterID:             l.ID,
			LighterName:           l.LighterName,
			LoadedQuantity:        l.LoadedQuantity,
			TotalUnloadedQuantity: l.TotalUnloadedQuantity(),
			RemainingQuantity:     l.RemainingQuantity(),
			Balanced:              IsLighterBalanced(l),
		}
		if !entry.Balanced {
			entry.Message = msgLighterOverloaded
		}
		report.Lighters = append(report.Lighters, entry)

		for _, t := range l.Trucks {
			if CanProceed(t, l) {
				continue
			}
			report.BlockedTrucks = append(report.BlockedTrucks, DependencyFlag{
				TruckID:       t.ID,
				Challan:       t.Challan,
				LighterID:     l.ID,
				LighterName:   l.LighterName,
				LighterStatus: l.Status,
				Message:       fmt.Sprintf("%s: lighter %s is %s", ErrDependencyNotSatisfied, l.LighterName, l.Status),
			})
		}
	}
	return report
}
