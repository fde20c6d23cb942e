package entries

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Update is a single typed field change. The set of implementations is
// closed; ParseUpdates is the only way to build them from a request.
type Update interface {
	Field() string
	apply(e *Entry)
}

type (
	SetConsignee           struct{ Value string }
	SetLighterVesselName   struct{ Value string }
	SetVesselDestination   struct{ Value string }
	SetDate                struct{ Value *time.Time }
	SetChallanNo           struct{ Value *string }
	SetConvertingVessel    struct{ Value string }
	SetNoOfTrucks          struct{ Value *int }
	SetDischargingLocation struct{ Value string }
	SetFinalDestination    struct{ Value string }
	SetItemName            struct{ Value string }
	SetBillableQuantity    struct{ Value decimal.NullDecimal }
	SetLighterCost         struct{ Value decimal.NullDecimal }
	SetUnloadCost          struct{ Value decimal.NullDecimal }
	SetTruckCost           struct{ Value decimal.NullDecimal }
)

func (SetConsignee) Field() string           { return "consignee" }
func (SetLighterVesselName) Field() string   { return "lighter_vessel_name" }
func (SetVesselDestination) Field() string   { return "vessel_destination" }
func (SetDate) Field() string                { return "date" }
func (SetChallanNo) Field() string           { return "challan_no" }
func (SetConvertingVessel) Field() string    { return "converting_vessel" }
func (SetNoOfTrucks) Field() string          { return "no_of_trucks" }
func (SetDischargingLocation) Field() string { return "discharging_location" }
func (SetFinalDestination) Field() string    { return "final_destination" }
func (SetItemName) Field() string            { return "item_name" }
func (SetBillableQuantity) Field() string    { return "billable_quantity" }
func (SetLighterCost) Field() string         { return "lighter_cost" }
func (SetUnloadCost) Field() string          { return "unload_cost" }
func (SetTruckCost) Field() string           { return "truck_cost" }

func (u SetConsignee) apply(e *Entry)           { e.Consignee = u.Value }
func (u SetLighterVesselName) apply(e *Entry)   { e.LighterVesselName = u.Value }
func (u SetVesselDestination) apply(e *Entry)   { e.VesselDestination = u.Value }
func (u SetDate) apply(e *Entry)                { e.Date = u.Value }
func (u SetChallanNo) apply(e *Entry)           { e.ChallanNo = u.Value }
func (u SetConvertingVessel) apply(e *Entry)    { e.ConvertingVessel = u.Value }
func (u SetNoOfTrucks) apply(e *Entry)          { e.NoOfTrucks = u.Value }
func (u SetDischargingLocation) apply(e *Entry) { e.DischargingLocation = u.Value }
func (u SetFinalDestination) apply(e *Entry)    { e.FinalDestination = u.Value }
func (u SetItemName) apply(e *Entry)            { e.ItemName = u.Value }
func (u SetBillableQuantity) apply(e *Entry)    { e.BillableQuantity = u.Value }
func (u SetLighterCost) apply(e *Entry)         { e.LighterCost = u.Value }
func (u SetUnloadCost) apply(e *Entry)          { e.UnloadCost = u.Value }
func (u SetTruckCost) apply(e *Entry)           { e.TruckCost = u.Value }

// Apply runs the updates in order.
func Apply(e *Entry, updates []Update) {
	for _, u := range updates {
		u.apply(e)
	}
}

// FieldErrors reports per-field parse failures.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return ErrInvalidUpdate.Error() + ": " + strings.Join(parts, "; ")
}

func (f FieldErrors) Unwrap() error { return ErrInvalidUpdate }

type fieldParser func(value *string) (Update, error)

var parsers = map[string]fieldParser{
	"consignee":            text(func(v string) Update { return SetConsignee{v} }),
	"lighter_vessel_name":  text(func(v string) Update { return SetLighterVesselName{v} }),
	"vessel_destination":   text(func(v string) Update { return SetVesselDestination{v} }),
	"converting_vessel":    text(func(v string) Update { return SetConvertingVessel{v} }),
	"discharging_location": text(func(v string) Update { return SetDischargingLocation{v} }),
	"final_destination":    text(func(v string) Update { return SetFinalDestination{v} }),
	"item_name":            text(func(v string) Update { return SetItemName{v} }),
	"billable_quantity":    amount(func(v decimal.NullDecimal) Update { return SetBillableQuantity{v} }),
	"lighter_cost":         amount(func(v decimal.NullDecimal) Update { return SetLighterCost{v} }),
	"unload_cost":          amount(func(v decimal.NullDecimal) Update { return SetUnloadCost{v} }),
	"truck_cost":           amount(func(v decimal.NullDecimal) Update { return SetTruckCost{v} }),
	"date":                 parseDate,
	"challan_no":           parseChallan,
	"no_of_trucks":         parseTrucks,
}

// ParseUpdates decodes a PATCH body of field name to value. Values may be
// JSON strings, numbers or null; an empty string clears nullable fields.
// Updates come back sorted by field name.
func ParseUpdates(raw map[string]json.RawMessage) ([]Update, error) {
	if len(raw) == 0 {
		return nil, FieldErrors{"_body": "no fields to update"}
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	errs := FieldErrors{}
	updates := make([]Update, 0, len(keys))
	for _, key := range keys {
		parse, ok := parsers[key]
		if !ok {
			errs[key] = "unknown field"
			continue
		}
		value, err := scalar(raw[key])
		if err != nil {
			errs[key] = err.Error()
			continue
		}
		u, err := parse(value)
		if err != nil {
			errs[key] = err.Error()
			continue
		}
		updates = append(updates, u)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return updates, nil
}

func scalar(raw json.RawMessage) (*string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		s = strings.TrimSpace(s)
		return &s, nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return nil, fmt.Errorf("expected string, number or null")
	}
	s = n.String()
	return &s, nil
}

func blank(v *string) bool {
	return v == nil || *v == ""
}

func text(build func(string) Update) fieldParser {
	return func(v *string) (Update, error) {
		if v == nil {
			return build(""), nil
		}
		if len(*v) > 255 {
			return nil, fmt.Errorf("must be at most 255 characters")
		}
		return build(*v), nil
	}
}

func amount(build func(decimal.NullDecimal) Update) fieldParser {
	return func(v *string) (Update, error) {
		if blank(v) {
			return build(decimal.NullDecimal{}), nil
		}
		d, err := decimal.NewFromString(*v)
		if err != nil {
			return nil, fmt.Errorf("must be a decimal number")
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("must not be negative")
		}
		return build(decimal.NewNullDecimal(d)), nil
	}
}

func parseDate(v *string) (Update, error) {
	if blank(v) {
		return SetDate{}, nil
	}
	d, err := time.Parse("2006-01-02", *v)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD")
	}
	return SetDate{Value: &d}, nil
}

func parseChallan(v *string) (Update, error) {
	if blank(v) {
		return SetChallanNo{}, nil
	}
	if len(*v) > 100 {
		return nil, fmt.Errorf("must be at most 100 characters")
	}
	c := *v
	return SetChallanNo{Value: &c}, nil
}

func parseTrucks(v *string) (Update, error) {
	if blank(v) {
		return SetNoOfTrucks{}, nil
	}
	n, err := strconv.Atoi(*v)
	if err != nil {
		return nil, fmt.Errorf("must be a whole number")
	}
	if n < 0 {
		return nil, fmt.Errorf("must not be negative")
	}
	return SetNoOfTrucks{Value: &n}, nil
}
