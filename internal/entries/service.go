package entries

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/harborline/harborline/internal/shared"
)

// EntryResponse is the wire form of an entry with its computed amounts.
type EntryResponse struct {
	ID                  int64               `json:"id"`
	Position            int                 `json:"position"`
	Consignee           string              `json:"consignee"`
	LighterVesselName   string              `json:"lighter_vessel_name"`
	VesselDestination   string              `json:"vessel_destination"`
	Date                *string             `json:"date"`
	ChallanNo           *string             `json:"challan_no"`
	ConvertingVessel    string              `json:"converting_vessel"`
	NoOfTrucks          *int                `json:"no_of_trucks"`
	DischargingLocation string              `json:"discharging_location"`
	FinalDestination    string              `json:"final_destination"`
	ItemName            string              `json:"item_name"`
	BillableQuantity    decimal.NullDecimal `json:"billable_quantity"`
	LighterCost         decimal.NullDecimal `json:"lighter_cost"`
	UnloadCost          decimal.NullDecimal `json:"unload_cost"`
	TruckCost           decimal.NullDecimal `json:"truck_cost"`
	TotalUnitCosting    decimal.Decimal     `json:"total_unit_costing"`
	FinalAmount         decimal.Decimal     `json:"final_amount"`
}

// ToResponse maps an entry.
func ToResponse(e *Entry) EntryResponse {
	resp := EntryResponse{
		ID:                  e.ID,
		Position:            e.Position,
		Consignee:           e.Consignee,
		LighterVesselName:   e.LighterVesselName,
		VesselDestination:   e.VesselDestination,
		ChallanNo:           e.ChallanNo,
		ConvertingVessel:    e.ConvertingVessel,
		NoOfTrucks:          e.NoOfTrucks,
		DischargingLocation: e.DischargingLocation,
		FinalDestination:    e.FinalDestination,
		ItemName:            e.ItemName,
		BillableQuantity:    e.BillableQuantity,
		LighterCost:         e.LighterCost,
		UnloadCost:          e.UnloadCost,
		TruckCost:           e.TruckCost,
		TotalUnitCosting:    e.TotalUnitCosting(),
		FinalAmount:         e.FinalAmount(),
	}
	if e.Date != nil {
		d := e.Date.Format("2006-01-02")
		resp.Date = &d
	}
	return resp
}

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service provides board entry operations.
type Service struct {
	repo   Repository
	events *Broadcaster
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService constructs the service. events and audit may be nil.
func NewService(repo Repository, events *Broadcaster, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, events: events, audit: audit, logger: logger}
}

// List returns a board's entries in position order.
func (s *Service) List(ctx context.Context, scope shared.Scope, boardID int64) ([]Entry, error) {
	return s.repo.List(ctx, scope.InstituteID, boardID)
}

// Create appends a blank entry to the board.
func (s *Service) Create(ctx context.Context, scope shared.Scope, boardID int64) (*Entry, error) {
	e := &Entry{BoardID: boardID, InstituteID: scope.InstituteID, CreatedBy: scope.UserID, UpdatedBy: scope.UserID}
	if err := s.repo.Insert(ctx, e); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, scope, EventCreated, boardID, e.ID, e)
	return e, nil
}

// Update applies typed field updates to one entry.
func (s *Service) Update(ctx context.Context, scope shared.Scope, boardID, id int64, updates []Update) (*Entry, error) {
	e, err := s.repo.Modify(ctx, scope.InstituteID, boardID, id, func(e *Entry) error {
		Apply(e, updates)
		e.UpdatedBy = scope.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, scope, EventUpdated, boardID, id, e)
	return e, nil
}

// Delete removes one entry.
func (s *Service) Delete(ctx context.Context, scope shared.Scope, boardID, id int64) error {
	if err := s.repo.Delete(ctx, scope.InstituteID, boardID, id); err != nil {
		return err
	}
	s.afterWrite(ctx, scope, EventDeleted, boardID, id, nil)
	return nil
}

// Subscribe follows board events.
func (s *Service) Subscribe(ctx context.Context, scope shared.Scope, boardID int64) (<-chan Event, error) {
	return s.events.Subscribe(ctx, scope.InstituteID, boardID)
}

func (s *Service) afterWrite(ctx context.Context, scope shared.Scope, eventType string, boardID, id int64, e *Entry) {
	ev := Event{Type: eventType, BoardID: boardID, EntryID: id}
	if e != nil {
		resp := ToResponse(e)
		ev.Entry = &resp
	}
	if err := s.events.Publish(ctx, scope.InstituteID, ev); err != nil {
		s.logger.Warn("publish board event", slog.String("type", eventType), slog.Any("error", err))
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  scope.UserID,
			Action:   "entries." + eventType,
			Entity:   "shipment_entry",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"board_id": boardID},
		})
		if err != nil {
			s.logger.Warn("record audit log", slog.Any("error", err))
		}
	}
}
