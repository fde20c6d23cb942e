// Package entries implements the shipment entry board: flat spreadsheet-like
// rows edited one field at a time.
package entries

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound         = errors.New("entry not found")
	ErrDuplicateChallan = errors.New("challan number already used")
	ErrInvalidUpdate    = errors.New("invalid entry update")
)

// Entry is one row of a board. Nullable columns stay nil until set.
type Entry struct {
	ID                  int64
	BoardID             int64
	InstituteID         int64
	Position            int
	Consignee           string
	LighterVesselName   string
	VesselDestination   string
	Date                *time.Time
	ChallanNo           *string
	ConvertingVessel    string
	NoOfTrucks          *int
	DischargingLocation string
	FinalDestination    string
	ItemName            string
	BillableQuantity    decimal.NullDecimal
	LighterCost         decimal.NullDecimal
	UnloadCost          decimal.NullDecimal
	TruckCost           decimal.NullDecimal
	CreatedBy           int64
	UpdatedBy           int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TotalUnitCosting is lighter + unload + truck cost, unset costs counting as zero.
func (e *Entry) TotalUnitCosting() decimal.Decimal {
	return orZero(e.LighterCost).Add(orZero(e.UnloadCost)).Add(orZero(e.TruckCost))
}

// FinalAmount is billable quantity times the unit costing.
func (e *Entry) FinalAmount() decimal.Decimal {
	return orZero(e.BillableQuantity).Mul(e.TotalUnitCosting())
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
