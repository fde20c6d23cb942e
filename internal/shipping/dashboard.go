package shipping

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cost stages reported by the dashboard breakdown.
const (
	StageLighter        = "Lighter"
	StageUnloading      = "Unloading"
	StageTruckTransport = "Truck Transport"
)

var hundred = decimal.NewFromInt(100)

// Dashboard folds every cycle of a scope into reporting structures.
type Dashboard struct {
	Summary             SummaryStats
	FlowVisualizations  []FlowVisualization
	CostBreakdown       []CostBreakdown
	QuantityValidations []QuantityValidation
}

// SummaryStats are the cross-cycle headline numbers.
type SummaryStats struct {
	TotalShipments         int
	PendingShipments       int
	InProgressShipments    int
	CompletedShipments     int
	TotalIncomingQuantity  decimal.Decimal
	TotalDeliveredQuantity decimal.Decimal
	TotalCost              decimal.Decimal
	TotalLighters          int
	TotalTrucks            int
}

// FlowVisualization describes the shape of one cycle. LighterTrucks is keyed
// by lighter name; when two lighters of a cycle share a name the later one
// overwrites the earlier.
type FlowVisualization struct {
	ShipmentID       uuid.UUID
	MotherVesselName string
	Consignee        string
	FlowSummary      string
	LighterCount     int
	TruckCount       int
	LighterTrucks    map[string]int
}

// CostBreakdown is the total spent in one stage and its share of the grand total.
type CostBreakdown struct {
	Stage      string
	TotalCost  decimal.Decimal
	Percentage decimal.Decimal
}

// QuantityValidation summarises conservation for one cycle.
type QuantityValidation struct {
	ShipmentID        uuid.UUID
	MotherVesselName  string
	IncomingQuantity  decimal.Decimal
	LoadedQuantity    decimal.Decimal
	UnloadedQuantity  decimal.Decimal
	DeliveredQuantity decimal.Decimal
	Balanced          bool
	Message           string
}

// BuildDashboard aggregates the cycles without mutating them. Any malformed
// numeric value in any cycle fails the whole build.
func BuildDashboard(cycles []*ShipmentCycle) (Dashboard, error) {
	d := Dashboard{
		Summary: SummaryStats{
			TotalShipments: len(cycles),
		},
		FlowVisualizations:  make([]FlowVisualization, 0, len(cycles)),
		QuantityValidations: make([]QuantityValidation, 0, len(cycles)),
	}

	var lighterStage, unloadingStage, transportStage decimal.Decimal
	for _, c := range cycles {
		totals, err := Aggregate(c)
		if err != nil {
			return Dashboard{}, err
		}

		switch c.Status {
		case ShipmentStatusPending:
			d.Summary.PendingShipments++
		case ShipmentStatusInProgress:
			d.Summary.InProgressShipments++
		case ShipmentStatusCompleted:
			d.Summary.CompletedShipments++
		}
		d.Summary.TotalIncomingQuantity = d.Summary.TotalIncomingQuantity.Add(totals.IncomingQuantity)
		d.Summary.TotalDeliveredQuantity = d.Summary.TotalDeliveredQuantity.Add(totals.DeliveredQuantity)
		d.Summary.TotalCost = d.Summary.TotalCost.Add(totals.TotalCost)
		d.Summary.TotalLighters += totals.LighterCount
		d.Summary.TotalTrucks += totals.TruckCount

		flow := FlowVisualization{
			ShipmentID:       c.ID,
			MotherVesselName: c.MotherVesselName,
			Consignee:        c.Consignee,
			FlowSummary:      FlowSummary(c),
			LighterCount:     totals.LighterCount,
			TruckCount:       totals.TruckCount,
			LighterTrucks:    make(map[string]int, len(c.Lighters)),
		}
		balanced := IsCycleBalanced(c)
		message := ""
		if !balanced {
			message = msgCycleOverloaded
		}
		for _, l := range c.Lighters {
			flow.LighterTrucks[l.LighterName] = len(l.Trucks)
			if !IsLighterBalanced(l) {
				if balanced {
					message = msgLighterOverloaded
				}
				balanced = false
			}

			lighterStage = lighterStage.Add(l.LighterCost)
			for _, t := range l.Trucks {
				unloadingStage = unloadingStage.Add(t.UnloadingCost)
				for _, p := range t.Products {
					lighterStage = lighterStage.Add(p.LighterCost)
					unloadingStage = unloadingStage.Add(p.UnloadingCost)
					transportStage = transportStage.Add(p.TruckTransportCost)
				}
			}
		}
		d.FlowVisualizations = append(d.FlowVisualizations, flow)
		d.QuantityValidations = append(d.QuantityValidations, QuantityValidation{
			ShipmentID:        c.ID,
			MotherVesselName:  c.MotherVesselName,
			IncomingQuantity:  totals.IncomingQuantity,
			LoadedQuantity:    totals.LoadedQuantity,
			UnloadedQuantity:  totals.UnloadedQuantity,
			DeliveredQuantity: totals.DeliveredQuantity,
			Balanced:          balanced,
			Message:           message,
		})
	}

	d.CostBreakdown = []CostBreakdown{
		stageBreakdown(StageLighter, lighterStage, d.Summary.TotalCost),
		stageBreakdown(StageUnloading, unloadingStage, d.Summary.TotalCost),
		stageBreakdown(StageTruckTransport, transportStage, d.Summary.TotalCost),
	}
	return d, nil
}

func stageBreakdown(stage string, cost, grand decimal.Decimal) CostBreakdown {
	pct := decimal.Zero
	if grand.IsPositive() {
		pct = cost.Div(grand).Mul(hundred).Round(2)
	}
	return CostBreakdown{Stage: stage, TotalCost: cost, Percentage: pct}
}
