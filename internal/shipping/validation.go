package shipping

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Stored scale of quantity and cost columns.
const (
	QuantityPlaces int32 = 3
	CostPlaces     int32 = 2
)

// ValidateTree checks every numeric field in the cycle and its descendants.
// It stops at the first malformed value.
func ValidateTree(c *ShipmentCycle) error {
	if c == nil {
		return fmt.Errorf("%w: shipment cycle is nil", ErrInvalidNumericValue)
	}
	if err := ValidateIncomingQuantity(c.TotalIncomingQuantity); err != nil {
		return err
	}
	for _, l := range c.Lighters {
		if err := validateLighter(l); err != nil {
			return err
		}
	}
	return nil
}

func validateLighter(l *LighterLoading) error {
	if l == nil {
		return fmt.Errorf("%w: lighter loading is nil", ErrInvalidNumericValue)
	}
	if !l.LoadedQuantity.IsPositive() {
		return fmt.Errorf("%w: lighter %q loaded quantity must be positive, got %s", ErrInvalidNumericValue, l.LighterName, l.LoadedQuantity)
	}
	label := "lighter " + quote(l.LighterName)
	if err := withinScale(label+" loaded quantity", l.LoadedQuantity, QuantityPlaces); err != nil {
		return err
	}
	if err := checkCost(label+" cost", l.LighterCost); err != nil {
		return err
	}
	for _, t := range l.Trucks {
		if err := validateTruck(t); err != nil {
			return err
		}
	}
	return nil
}

func validateTruck(t *TruckUnloading) error {
	if t == nil {
		return fmt.Errorf("%w: truck unloading is nil", ErrInvalidNumericValue)
	}
	if !t.UnloadedQuantity.IsPositive() {
		return fmt.Errorf("%w: truck %q unloaded quantity must be positive, got %s", ErrInvalidNumericValue, t.Challan, t.UnloadedQuantity)
	}
	if t.NumberOfTrucks < 1 {
		return fmt.Errorf("%w: truck %q number of trucks must be at least 1, got %d", ErrInvalidNumericValue, t.Challan, t.NumberOfTrucks)
	}
	label := "truck " + quote(t.Challan)
	if err := withinScale(label+" unloaded quantity", t.UnloadedQuantity, QuantityPlaces); err != nil {
		return err
	}
	if err := checkCost(label+" unloading cost", t.UnloadingCost); err != nil {
		return err
	}
	for _, p := range t.Products {
		if err := validateProduct(p); err != nil {
			return err
		}
	}
	return nil
}

func validateProduct(p *ProductDetail) error {
	if p == nil {
		return fmt.Errorf("%w: product detail is nil", ErrInvalidNumericValue)
	}
	label := "product " + quote(p.Item)
	fields := []struct {
		name   string
		value  decimal.Decimal
		places int32
	}{
		{"delivery quantity", p.DeliveryQuantity, QuantityPlaces},
		{"survey quantity", p.SurveyQuantity, QuantityPlaces},
		{"lighter cost", p.LighterCost, CostPlaces},
		{"unloading cost", p.UnloadingCost, CostPlaces},
		{"truck transport cost", p.TruckTransportCost, CostPlaces},
	}
	for _, f := range fields {
		if err := nonNegative(label+" "+f.name, f.value); err != nil {
			return err
		}
		if err := withinScale(label+" "+f.name, f.value, f.places); err != nil {
			return err
		}
	}
	return nil
}

// ValidateIncomingQuantity checks a mother-vessel quantity on its own, for
// scalar updates that skip the tree walk.
func ValidateIncomingQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return fmt.Errorf("%w: total incoming quantity must be positive, got %s", ErrInvalidNumericValue, q)
	}
	return withinScale("total incoming quantity", q, QuantityPlaces)
}

func checkCost(field string, v decimal.Decimal) error {
	if err := nonNegative(field, v); err != nil {
		return err
	}
	return withinScale(field, v, CostPlaces)
}

// withinScale rejects values the NUMERIC columns would round on write.
func withinScale(field string, v decimal.Decimal, places int32) error {
	if !v.Round(places).Equal(v) {
		return fmt.Errorf("%w: %s allows at most %d decimal places, got %s", ErrInvalidNumericValue, field, places, v)
	}
	return nil
}

func nonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative, got %s", ErrInvalidNumericValue, field, v)
	}
	return nil
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}
