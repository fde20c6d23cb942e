package shipping

import "github.com/shopspring/decimal"

// TotalCost is the sum of the three apportioned cost shares.
func (p *ProductDetail) TotalCost() decimal.Decimal {
	return p.LighterCost.Add(p.UnloadingCost).Add(p.TruckTransportCost)
}

// TotalCost is the truck's own unloading cost plus its products.
func (t *TruckUnloading) TotalCost() decimal.Decimal {
	total := t.UnloadingCost
	for _, p := range t.Products {
		total = total.Add(p.TotalCost())
	}
	return total
}

// TotalCost is the lighter's own cost plus its trucks.
func (l *LighterLoading) TotalCost() decimal.Decimal {
	total := l.LighterCost
	for _, t := range l.Trucks {
		total = total.Add(t.TotalCost())
	}
	return total
}

// TotalUnloadedQuantity sums the direct trucks only; product quantities do
// not take part in volume conservation.
func (l *LighterLoading) TotalUnloadedQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, t := range l.Trucks {
		total = total.Add(t.UnloadedQuantity)
	}
	return total
}

// RemainingQuantity is loaded minus unloaded and goes negative on overflow.
func (l *LighterLoading) RemainingQuantity() decimal.Decimal {
	return l.LoadedQuantity.Sub(l.TotalUnloadedQuantity())
}

// TotalCost sums the lighters. The cycle has no direct cost of its own.
func (c *ShipmentCycle) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lighters {
		total = total.Add(l.TotalCost())
	}
	return total
}

// TotalLoadedQuantity sums the loaded quantity of every lighter.
func (c *ShipmentCycle) TotalLoadedQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lighters {
		total = total.Add(l.LoadedQuantity)
	}
	return total
}

// TotalUnloadedQuantity sums every truck across the cycle.
func (c *ShipmentCycle) TotalUnloadedQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lighters {
		total = total.Add(l.TotalUnloadedQuantity())
	}
	return total
}

// TotalDeliveredQuantity sums product delivery quantities across the cycle.
func (c *ShipmentCycle) TotalDeliveredQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lighters {
		for _, t := range l.Trucks {
			for _, p := range t.Products {
				total = total.Add(p.DeliveryQuantity)
			}
		}
	}
	return total
}

// CycleTotals is the full roll-up of one cycle.
type CycleTotals struct {
	TotalCost         decimal.Decimal
	IncomingQuantity  decimal.Decimal
	LoadedQuantity    decimal.Decimal
	UnloadedQuantity  decimal.Decimal
	DeliveredQuantity decimal.Decimal
	LighterCount      int
	TruckCount        int
	ProductCount      int
}

// Aggregate validates every numeric field and then rolls the tree up. A
// single malformed value fails the whole aggregation.
func Aggregate(c *ShipmentCycle) (CycleTotals, error) {
	if err := ValidateTree(c); err != nil {
		return CycleTotals{}, err
	}
	totals := CycleTotals{
		TotalCost:         c.TotalCost(),
		IncomingQuantity:  c.TotalIncomingQuantity,
		LoadedQuantity:    c.TotalLoadedQuantity(),
		UnloadedQuantity:  c.TotalUnloadedQuantity(),
		DeliveredQuantity: c.TotalDeliveredQuantity(),
		LighterCount:      len(c.Lighters),
		TruckCount:        c.TruckCount(),
	}
	for _, l := range c.Lighters {
		for _, t := range l.Trucks {
			totals.ProductCount += len(t.Products)
		}
	}
	return totals, nil
}
