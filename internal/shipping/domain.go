package shipping

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShipmentStatus captures the lifecycle of a mother-vessel shipment cycle.
type ShipmentStatus string

const (
	ShipmentStatusPending    ShipmentStatus = "PENDING"
	ShipmentStatusInProgress ShipmentStatus = "IN_PROGRESS"
	ShipmentStatusCompleted  ShipmentStatus = "COMPLETED"
	ShipmentStatusCancelled  ShipmentStatus = "CANCELLED"
)

// IsValid reports whether the status is one of the known values.
func (s ShipmentStatus) IsValid() bool {
	switch s {
	case ShipmentStatusPending, ShipmentStatusInProgress, ShipmentStatusCompleted, ShipmentStatusCancelled:
		return true
	}
	return false
}

// LoadStatus is shared by lighter loadings and truck unloadings.
type LoadStatus string

const (
	LoadStatusPending   LoadStatus = "PENDING"
	LoadStatusLoaded    LoadStatus = "LOADED"
	LoadStatusUnloaded  LoadStatus = "UNLOADED"
	LoadStatusInTransit LoadStatus = "IN_TRANSIT"
	LoadStatusDelivered LoadStatus = "DELIVERED"
)

// IsValid reports whether the status is one of the known values.
func (s LoadStatus) IsValid() bool {
	switch s {
	case LoadStatusPending, LoadStatusLoaded, LoadStatusUnloaded, LoadStatusInTransit, LoadStatusDelivered:
		return true
	}
	return false
}

// ============================================================================
// ENTITIES
// ============================================================================

// ShipmentCycle is the root of the hierarchy: one mother vessel delivery and
// everything distributed from it. The cycle owns its lighters.
type ShipmentCycle struct {
	ID                    uuid.UUID
	InstituteID           int64
	Consignee             string
	MotherVesselName      string
	ArrivalDate           time.Time
	TotalIncomingQuantity decimal.Decimal
	ItemType              string
	Status                ShipmentStatus
	DocumentPath          string
	FlowSummary           string
	CreatedBy             int64
	AssignedTo            *int64
	CreatedAt             time.Time
	UpdatedAt             time.Time

	Lighters []*LighterLoading
}

// LighterLoading is a portion of the mother vessel cargo loaded onto a lighter.
// ShipmentCycleID is a non-owning back reference; uuid.Nil means detached.
type LighterLoading struct {
	ID              uuid.UUID
	ShipmentCycleID uuid.UUID
	LighterName     string
	Destination     string
	UnloadingPoint  string
	LoadingDate     time.Time
	LoadedQuantity  decimal.Decimal
	LighterCost     decimal.Decimal
	Status          LoadStatus
	DocumentPath    string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Trucks []*TruckUnloading
}

// TruckUnloading is a portion of a lighter cargo discharged onto road transport.
type TruckUnloading struct {
	ID                         uuid.UUID
	LighterLoadingID           uuid.UUID
	Challan                    string
	ConveyanceName             string
	NumberOfTrucks             int
	DischargingLocation        string
	Destination                string
	Party                      string
	UnloadingDate              time.Time
	UnloadedQuantity           decimal.Decimal
	UnloadingCost              decimal.Decimal
	Status                     LoadStatus
	DependsOnLighterCompletion bool
	CreatedAt                  time.Time
	UpdatedAt                  time.Time

	Products []*ProductDetail
}

// ProductDetail carries per-item quantities and the cost shares apportioned
// by the operator from ancestor costs.
type ProductDetail struct {
	ID                 uuid.UUID
	TruckUnloadingID   uuid.UUID
	Item               string
	DeliveryQuantity   decimal.Decimal
	SurveyQuantity     decimal.Decimal
	LighterCost        decimal.Decimal
	UnloadingCost      decimal.Decimal
	TruckTransportCost decimal.Decimal
}

// NewShipmentCycle returns a pending cycle with a fresh identifier.
func NewShipmentCycle() *ShipmentCycle {
	return &ShipmentCycle{
		ID:     uuid.New(),
		Status: ShipmentStatusPending,
	}
}

// NewLighterLoading returns a detached pending lighter.
func NewLighterLoading() *LighterLoading {
	return &LighterLoading{
		ID:     uuid.New(),
		Status: LoadStatusPending,
	}
}

// NewTruckUnloading returns a detached pending truck unloading with the
// default single truck that waits for its lighter.
func NewTruckUnloading() *TruckUnloading {
	return &TruckUnloading{
		ID:                         uuid.New(),
		NumberOfTrucks:             1,
		Status:                     LoadStatusPending,
		DependsOnLighterCompletion: true,
	}
}

// NewProductDetail returns a detached product detail.
func NewProductDetail() *ProductDetail {
	return &ProductDetail{ID: uuid.New()}
}

// TruckCount returns the number of truck unloadings across all lighters.
func (c *ShipmentCycle) TruckCount() int {
	n := 0
	for _, l := range c.Lighters {
		n += len(l.Trucks)
	}
	return n
}
