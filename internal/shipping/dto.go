package shipping

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// REQUEST DTOs
// ============================================================================

// CreateShipmentRequest describes a whole cycle with its nested lighters,
// trucks and products.
type CreateShipmentRequest struct {
	Consignee             string           `json:"consignee" validate:"required,max=255"`
	MotherVesselName      string           `json:"mother_vessel_name" validate:"required,max=255"`
	ArrivalDate           time.Time        `json:"arrival_date" validate:"required"`
	TotalIncomingQuantity decimal.Decimal  `json:"total_incoming_quantity"`
	ItemType              string           `json:"item_type" validate:"required,max=100"`
	Status                ShipmentStatus   `json:"status,omitempty"`
	DocumentPath          string           `json:"document_path,omitempty" validate:"max=512"`
	AssignedTo            *int64           `json:"assigned_to_user_id,omitempty"`
	Lighters              []LighterRequest `json:"lighters" validate:"dive"`
}

// LighterRequest describes one lighter loading.
type LighterRequest struct {
	LighterName    string          `json:"lighter_name" validate:"required,max=255"`
	Destination    string          `json:"destination" validate:"max=255"`
	UnloadingPoint string          `json:"unloading_point" validate:"max=255"`
	LoadingDate    *time.Time      `json:"loading_date,omitempty"`
	LoadedQuantity decimal.Decimal `json:"loaded_quantity"`
	LighterCost    decimal.Decimal `json:"lighter_cost"`
	Status         LoadStatus      `json:"status,omitempty"`
	DocumentPath   string          `json:"document_path,omitempty" validate:"max=512"`
	Trucks         []TruckRequest  `json:"trucks" validate:"dive"`
}

// TruckRequest describes one truck unloading.
type TruckRequest struct {
	Challan                    string           `json:"challan" validate:"required,max=100"`
	ConveyanceName             string           `json:"conveyance_name" validate:"max=255"`
	NumberOfTrucks             *int             `json:"number_of_trucks,omitempty"`
	DischargingLocation        string           `json:"discharging_location" validate:"max=255"`
	Destination                string           `json:"destination" validate:"max=255"`
	Party                      string           `json:"party" validate:"max=255"`
	UnloadingDate              *time.Time       `json:"unloading_date,omitempty"`
	UnloadedQuantity           decimal.Decimal  `json:"unloaded_quantity"`
	UnloadingCost              decimal.Decimal  `json:"unloading_cost"`
	Status                     LoadStatus       `json:"status,omitempty"`
	DependsOnLighterCompletion *bool            `json:"depends_on_lighter_completion,omitempty"`
	Products                   []ProductRequest `json:"products" validate:"dive"`
}

// ProductRequest describes one product detail.
type ProductRequest struct {
	Item               string          `json:"item" validate:"required,max=255"`
	DeliveryQuantity   decimal.Decimal `json:"delivery_quantity"`
	SurveyQuantity     decimal.Decimal `json:"survey_quantity"`
	LighterCost        decimal.Decimal `json:"lighter_cost"`
	UnloadingCost      decimal.Decimal `json:"unloading_cost"`
	TruckTransportCost decimal.Decimal `json:"truck_transport_cost"`
}

// UpdateShipmentRequest carries the scalar fields of a cycle. Structural
// edits go through the add/remove endpoints.
type UpdateShipmentRequest struct {
	Consignee             string          `json:"consignee" validate:"required,max=255"`
	MotherVesselName      string          `json:"mother_vessel_name" validate:"required,max=255"`
	ArrivalDate           time.Time       `json:"arrival_date" validate:"required"`
	TotalIncomingQuantity decimal.Decimal `json:"total_incoming_quantity"`
	ItemType              string          `json:"item_type" validate:"required,max=100"`
	Status                *ShipmentStatus `json:"status,omitempty"`
}

// UpdateLighterStatusRequest moves a lighter through its lifecycle.
type UpdateLighterStatusRequest struct {
	Status LoadStatus `json:"status" validate:"required"`
}

// ListFilter narrows a cycle listing. InstituteID is always set from scope.
type ListFilter struct {
	InstituteID int64
	Status      *ShipmentStatus
	From        *time.Time
	To          *time.Time
	Search      string
}

// ============================================================================
// RESPONSE DTOs
// ============================================================================

// ShipmentResponse is the full tree with computed aggregates.
type ShipmentResponse struct {
	ID                    uuid.UUID         `json:"id"`
	InstituteID           int64             `json:"institute_id"`
	Consignee             string            `json:"consignee"`
	MotherVesselName      string            `json:"mother_vessel_name"`
	ArrivalDate           string            `json:"arrival_date"`
	TotalIncomingQuantity decimal.Decimal   `json:"total_incoming_quantity"`
	TotalLoadedQuantity   decimal.Decimal   `json:"total_loaded_quantity"`
	TotalCost             decimal.Decimal   `json:"total_cost"`
	ItemType              string            `json:"item_type"`
	Status                ShipmentStatus    `json:"status"`
	DocumentPath          string            `json:"document_path,omitempty"`
	FlowSummary           string            `json:"flow_summary"`
	Balanced              bool              `json:"is_balanced"`
	CreatedBy             int64             `json:"created_by"`
	AssignedTo            *int64            `json:"assigned_to_user_id,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
	Lighters              []LighterResponse `json:"lighters"`
}

// LighterResponse is one lighter with its trucks.
type LighterResponse struct {
	ID                    uuid.UUID       `json:"id"`
	LighterName           string          `json:"lighter_name"`
	Destination           string          `json:"destination"`
	UnloadingPoint        string          `json:"unloading_point"`
	LoadingDate           string          `json:"loading_date,omitempty"`
	LoadedQuantity        decimal.Decimal `json:"loaded_quantity"`
	TotalUnloadedQuantity decimal.Decimal `json:"total_unloaded_quantity"`
	RemainingQuantity     decimal.Decimal `json:"remaining_quantity"`
	LighterCost           decimal.Decimal `json:"lighter_cost"`
	TotalCost             decimal.Decimal `json:"total_cost"`
	Status                LoadStatus      `json:"status"`
	DocumentPath          string          `json:"document_path,omitempty"`
	Balanced              bool            `json:"is_balanced"`
	Trucks                []TruckResponse `json:"trucks"`
}

// TruckResponse is one truck unloading with its products.
type TruckResponse struct {
	ID                         uuid.UUID         `json:"id"`
	Challan                    string            `json:"challan"`
	ConveyanceName             string            `json:"conveyance_name"`
	SourceLighterName          string            `json:"source_lighter_name"`
	NumberOfTrucks             int               `json:"number_of_trucks"`
	DischargingLocation        string            `json:"discharging_location"`
	Destination                string            `json:"destination"`
	Party                      string            `json:"party"`
	UnloadingDate              string            `json:"unloading_date,omitempty"`
	UnloadedQuantity           decimal.Decimal   `json:"unloaded_quantity"`
	UnloadingCost              decimal.Decimal   `json:"unloading_cost"`
	TotalCost                  decimal.Decimal   `json:"total_cost"`
	Status                     LoadStatus        `json:"status"`
	DependsOnLighterCompletion bool              `json:"depends_on_lighter_completion"`
	CanProceed                 bool              `json:"can_proceed"`
	Products                   []ProductResponse `json:"products"`
}

// ProductResponse is one product detail.
type ProductResponse struct {
	ID                 uuid.UUID       `json:"id"`
	Item               string          `json:"item"`
	DeliveryQuantity   decimal.Decimal `json:"delivery_quantity"`
	SurveyQuantity     decimal.Decimal `json:"survey_quantity"`
	LighterCost        decimal.Decimal `json:"lighter_cost"`
	UnloadingCost      decimal.Decimal `json:"unloading_cost"`
	TruckTransportCost decimal.Decimal `json:"truck_transport_cost"`
	TotalCost          decimal.Decimal `json:"total_cost"`
}

// ListItemResponse is a listing row without the nested tree.
type ListItemResponse struct {
	ID                    uuid.UUID       `json:"id"`
	Consignee             string          `json:"consignee"`
	MotherVesselName      string          `json:"mother_vessel_name"`
	ArrivalDate           string          `json:"arrival_date"`
	TotalIncomingQuantity decimal.Decimal `json:"total_incoming_quantity"`
	TotalCost             decimal.Decimal `json:"total_cost"`
	ItemType              string          `json:"item_type"`
	Status                ShipmentStatus  `json:"status"`
	FlowSummary           string          `json:"flow_summary"`
	LighterCount          int             `json:"lighter_count"`
	TruckCount            int             `json:"truck_count"`
}

// ValidationResponse is the advisory balance report.
type ValidationResponse struct {
	ShipmentID          uuid.UUID                   `json:"shipment_id"`
	MotherVessel        string                      `json:"mother_vessel"`
	IncomingQuantity    decimal.Decimal             `json:"incoming_quantity"`
	TotalLoadedQuantity decimal.Decimal             `json:"total_loaded_quantity"`
	Balanced            bool                        `json:"is_balanced"`
	Message             string                      `json:"message,omitempty"`
	LighterValidations  []LighterValidationResponse `json:"lighter_validations"`
	BlockedTrucks       []DependencyFlagResponse    `json:"blocked_trucks"`
}

// LighterValidationResponse is one per-lighter report entry.
type LighterValidationResponse struct {
	LighterID             uuid.UUID       `json:"lighter_id"`
	LighterName           string          `json:"lighter_name"`
	LoadedQuantity        decimal.Decimal `json:"loaded_quantity"`
	TotalUnloadedQuantity decimal.Decimal `json:"total_unloaded_quantity"`
	RemainingQuantity     decimal.Decimal `json:"remaining_quantity"`
	Balanced              bool            `json:"is_balanced"`
	Message               string          `json:"message,omitempty"`
}

// DependencyFlagResponse reports a truck blocked on its lighter.
type DependencyFlagResponse struct {
	TruckID       uuid.UUID  `json:"truck_id"`
	Challan       string     `json:"challan"`
	LighterID     uuid.UUID  `json:"lighter_id"`
	LighterName   string     `json:"lighter_name"`
	LighterStatus LoadStatus `json:"lighter_status"`
	Message       string     `json:"message"`
}

// DashboardResponse is the wire form of Dashboard.
type DashboardResponse struct {
	SummaryStats        SummaryStatsResponse         `json:"summary_stats"`
	FlowVisualizations  []FlowVisualizationResponse  `json:"flow_visualizations"`
	CostBreakdowns      []CostBreakdownResponse      `json:"cost_breakdowns"`
	QuantityValidations []QuantityValidationResponse `json:"quantity_validations"`
}

// SummaryStatsResponse is the wire form of SummaryStats.
type SummaryStatsResponse struct {
	TotalShipments         int             `json:"total_shipments"`
	PendingShipments       int             `json:"pending_shipments"`
	InProgressShipments    int             `json:"in_progress_shipments"`
	CompletedShipments     int             `json:"completed_shipments"`
	TotalIncomingQuantity  decimal.Decimal `json:"total_incoming_quantity"`
	TotalDeliveredQuantity decimal.Decimal `json:"total_delivered_quantity"`
	TotalCost              decimal.Decimal `json:"total_cost"`
	TotalLighters          int             `json:"total_lighters"`
	TotalTrucks            int             `json:"total_trucks"`
}

// FlowVisualizationResponse is the wire form of FlowVisualization.
type FlowVisualizationResponse struct {
	ShipmentID        uuid.UUID      `json:"shipment_id"`
	MotherVesselName  string         `json:"mother_vessel_name"`
	Consignee         string         `json:"consignee"`
	FlowSummary       string         `json:"flow_summary"`
	LightersCount     int            `json:"lighters_count"`
	TrucksCount       int            `json:"trucks_count"`
	LighterToTruckMap map[string]int `json:"lighter_to_truck_map"`
}

// CostBreakdownResponse is the wire form of CostBreakdown.
type CostBreakdownResponse struct {
	Stage      string          `json:"stage"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	Percentage decimal.Decimal `json:"percentage"`
}

// QuantityValidationResponse is the wire form of QuantityValidation.
type QuantityValidationResponse struct {
	ShipmentID        uuid.UUID       `json:"shipment_id"`
	MotherVesselName  string          `json:"mother_vessel_name"`
	IncomingQuantity  decimal.Decimal `json:"incoming_quantity"`
	LoadedQuantity    decimal.Decimal `json:"loaded_quantity"`
	UnloadedQuantity  decimal.Decimal `json:"unloaded_quantity"`
	DeliveredQuantity decimal.Decimal `json:"delivered_quantity"`
	Balanced          bool            `json:"is_balanced"`
	ValidationMessage string          `json:"validation_message,omitempty"`
}
