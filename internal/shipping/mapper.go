package shipping

import "time"

// Mapper functions for converting between layers:
// CreateShipmentRequest → ShipmentCycle (domain)
// ShipmentCycle → ShipmentResponse (dto)

const dateLayout = "2006-01-02"

// ToShipmentCycle builds a fully linked tree from the request. Capacity is
// not checked here; Service.Create runs ValidateStrict on the result.
func (r CreateShipmentRequest) ToShipmentCycle(instituteID, createdBy int64) (*ShipmentCycle, error) {
	c := NewShipmentCycle()
	c.InstituteID = instituteID
	c.CreatedBy = createdBy
	c.AssignedTo = r.AssignedTo
	c.Consignee = r.Consignee
	c.MotherVesselName = r.MotherVesselName
	c.ArrivalDate = r.ArrivalDate
	c.TotalIncomingQuantity = r.TotalIncomingQuantity
	c.ItemType = r.ItemType
	c.DocumentPath = r.DocumentPath
	if r.Status != "" {
		c.Status = r.Status
	}
	if !c.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	for _, lr := range r.Lighters {
		l, err := lr.ToLighterLoading()
		if err != nil {
			return nil, err
		}
		if err := c.attachLighter(l); err != nil {
			return nil, err
		}
	}
	c.RefreshFlowSummary()
	return c, nil
}

// ToLighterLoading maps the request and its nested trucks without capacity checks.
func (r LighterRequest) ToLighterLoading() (*LighterLoading, error) {
	l := NewLighterLoading()
	l.LighterName = r.LighterName
	l.Destination = r.Destination
	l.UnloadingPoint = r.UnloadingPoint
	l.LoadingDate = derefTime(r.LoadingDate)
	l.LoadedQuantity = r.LoadedQuantity
	l.LighterCost = r.LighterCost
	l.DocumentPath = r.DocumentPath
	if r.Status != "" {
		l.Status = r.Status
	}
	if !l.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	for _, tr := range r.Trucks {
		t, err := tr.ToTruckUnloading()
		if err != nil {
			return nil, err
		}
		if err := l.attachTruck(t); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// ToTruckUnloading maps the request and its nested products.
func (r TruckRequest) ToTruckUnloading() (*TruckUnloading, error) {
	t := NewTruckUnloading()
	t.Challan = r.Challan
	t.ConveyanceName = r.ConveyanceName
	if r.NumberOfTrucks != nil {
		t.NumberOfTrucks = *r.NumberOfTrucks
	}
	t.DischargingLocation = r.DischargingLocation
	t.Destination = r.Destination
	t.Party = r.Party
	t.UnloadingDate = derefTime(r.UnloadingDate)
	t.UnloadedQuantity = r.UnloadedQuantity
	t.UnloadingCost = r.UnloadingCost
	if r.Status != "" {
		t.Status = r.Status
	}
	if !t.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	if r.DependsOnLighterCompletion != nil {
		t.DependsOnLighterCompletion = *r.DependsOnLighterCompletion
	}
	for _, pr := range r.Products {
		p := pr.ToProductDetail()
		p.TruckUnloadingID = t.ID
		t.Products = append(t.Products, p)
	}
	return t, nil
}

// ToProductDetail maps the request to a detached product.
func (r ProductRequest) ToProductDetail() *ProductDetail {
	p := NewProductDetail()
	p.Item = r.Item
	p.DeliveryQuantity = r.DeliveryQuantity
	p.SurveyQuantity = r.SurveyQuantity
	p.LighterCost = r.LighterCost
	p.UnloadingCost = r.UnloadingCost
	p.TruckTransportCost = r.TruckTransportCost
	return p
}

// ToShipmentResponse maps a tree to its wire form.
func ToShipmentResponse(c *ShipmentCycle) ShipmentResponse {
	resp := ShipmentResponse{
		ID:                    c.ID,
		InstituteID:           c.InstituteID,
		Consignee:             c.Consignee,
		MotherVesselName:      c.MotherVesselName,
		ArrivalDate:           formatDate(c.ArrivalDate),
		TotalIncomingQuantity: c.TotalIncomingQuantity,
		TotalLoadedQuantity:   c.TotalLoadedQuantity(),
		TotalCost:             c.TotalCost(),
		ItemType:              c.ItemType,
		Status:                c.Status,
		DocumentPath:          c.DocumentPath,
		FlowSummary:           FlowSummary(c),
		Balanced:              IsCycleBalanced(c),
		CreatedBy:             c.CreatedBy,
		AssignedTo:            c.AssignedTo,
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
		Lighters:              make([]LighterResponse, 0, len(c.Lighters)),
	}
	for _, l := range c.Lighters {
		resp.Lighters = append(resp.Lighters, ToLighterResponse(l))
	}
	return resp
}

// ToLighterResponse maps one lighter with its trucks.
func ToLighterResponse(l *LighterLoading) LighterResponse {
	lr := LighterResponse{
		ID:                    l.ID,
		LighterName:           l.LighterName,
		Destination:           l.Destination,
		UnloadingPoint:        l.UnloadingPoint,
		LoadingDate:           formatDate(l.LoadingDate),
		LoadedQuantity:        l.LoadedQuantity,
		TotalUnloadedQuantity: l.TotalUnloadedQuantity(),
		RemainingQuantity:     l.RemainingQuantity(),
		LighterCost:           l.LighterCost,
		TotalCost:             l.TotalCost(),
		Status:                l.Status,
		DocumentPath:          l.DocumentPath,
		Balanced:              IsLighterBalanced(l),
		Trucks:                make([]TruckResponse, 0, len(l.Trucks)),
	}
	for _, t := range l.Trucks {
		lr.Trucks = append(lr.Trucks, ToTruckResponse(t, l))
	}
	return lr
}

// ToTruckResponse maps a truck; parent supplies the source lighter name and
// the dependency gate.
func ToTruckResponse(t *TruckUnloading, parent *LighterLoading) TruckResponse {
	tr := TruckResponse{
		ID:                         t.ID,
		Challan:                    t.Challan,
		ConveyanceName:             t.ConveyanceName,
		SourceLighterName:          parent.LighterName,
		NumberOfTrucks:             t.NumberOfTrucks,
		DischargingLocation:        t.DischargingLocation,
		Destination:                t.Destination,
		Party:                      t.Party,
		UnloadingDate:              formatDate(t.UnloadingDate),
		UnloadedQuantity:           t.UnloadedQuantity,
		UnloadingCost:              t.UnloadingCost,
		TotalCost:                  t.TotalCost(),
		Status:                     t.Status,
		DependsOnLighterCompletion: t.DependsOnLighterCompletion,
		CanProceed:                 CanProceed(t, parent),
		Products:                   make([]ProductResponse, 0, len(t.Products)),
	}
	for _, p := range t.Products {
		tr.Products = append(tr.Products, ToProductResponse(p))
	}
	return tr
}

// ToProductResponse maps a product detail.
func ToProductResponse(p *ProductDetail) ProductResponse {
	return ProductResponse{
		ID:                 p.ID,
		Item:               p.Item,
		DeliveryQuantity:   p.DeliveryQuantity,
		SurveyQuantity:     p.SurveyQuantity,
		LighterCost:        p.LighterCost,
		UnloadingCost:      p.UnloadingCost,
		TruckTransportCost: p.TruckTransportCost,
		TotalCost:          p.TotalCost(),
	}
}

// ToListResponse maps cycles to listing rows.
func ToListResponse(cycles []*ShipmentCycle) []ListItemResponse {
	out := make([]ListItemResponse, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, ListItemResponse{
			ID:                    c.ID,
			Consignee:             c.Consignee,
			MotherVesselName:      c.MotherVesselName,
			ArrivalDate:           formatDate(c.ArrivalDate),
			TotalIncomingQuantity: c.TotalIncomingQuantity,
			TotalCost:             c.TotalCost(),
			ItemType:              c.ItemType,
			Status:                c.Status,
			FlowSummary:           FlowSummary(c),
			LighterCount:          len(c.Lighters),
			TruckCount:            c.TruckCount(),
		})
	}
	return out
}

// ToValidationResponse maps the advisory report.
func ToValidationResponse(r ValidationReport) ValidationResponse {
	resp := ValidationResponse{
		ShipmentID:          r.ShipmentID,
		MotherVessel:        r.MotherVessel,
		IncomingQuantity:    r.IncomingQuantity,
		TotalLoadedQuantity: r.TotalLoadedQuantity,
		Balanced:            r.Balanced,
		Message:             r.Message,
		LighterValidations:  make([]LighterValidationResponse, 0, len(r.Lighters)),
		BlockedTrucks:       make([]DependencyFlagResponse, 0, len(r.BlockedTrucks)),
	}
	for _, l := range r.Lighters {
		resp.LighterValidations = append(resp.LighterValidations, LighterValidationResponse(l))
	}
	for _, f := range r.BlockedTrucks {
		resp.BlockedTrucks = append(resp.BlockedTrucks, DependencyFlagResponse(f))
	}
	return resp
}

// ToDashboardResponse maps the dashboard fold.
func ToDashboardResponse(d Dashboard) DashboardResponse {
	resp := DashboardResponse{
		SummaryStats:        SummaryStatsResponse(d.Summary),
		FlowVisualizations:  make([]FlowVisualizationResponse, 0, len(d.FlowVisualizations)),
		CostBreakdowns:      make([]CostBreakdownResponse, 0, len(d.CostBreakdown)),
		QuantityValidations: make([]QuantityValidationResponse, 0, len(d.QuantityValidations)),
	}
	for _, f := range d.FlowVisualizations {
		resp.FlowVisualizations = append(resp.FlowVisualizations, FlowVisualizationResponse{
			ShipmentID:        f.ShipmentID,
			MotherVesselName:  f.MotherVesselName,
			Consignee:         f.Consignee,
			FlowSummary:       f.FlowSummary,
			LightersCount:     f.LighterCount,
			TrucksCount:       f.TruckCount,
			LighterToTruckMap: f.LighterTrucks,
		})
	}
	for _, b := range d.CostBreakdown {
		resp.CostBreakdowns = append(resp.CostBreakdowns, CostBreakdownResponse(b))
	}
	for _, q := range d.QuantityValidations {
		resp.QuantityValidations = append(resp.QuantityValidations, QuantityValidationResponse{
			ShipmentID:        q.ShipmentID,
			MotherVesselName:  q.MotherVesselName,
			IncomingQuantity:  q.IncomingQuantity,
			LoadedQuantity:    q.LoadedQuantity,
			UnloadedQuantity:  q.UnloadedQuantity,
			DeliveredQuantity: q.DeliveredQuantity,
			Balanced:          q.Balanced,
			ValidationMessage: q.Message,
		})
	}
	return resp
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
