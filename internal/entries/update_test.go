package entries

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawBody(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func TestParseUpdatesAppliesTypedValues(t *testing.T) {
	updates, err := ParseUpdates(rawBody(t, `{
		"consignee": "  Meghna Group ",
		"billable_quantity": 120,
		"lighter_cost": "10.5",
		"unload_cost": "2",
		"truck_cost": 1.5,
		"date": "2024-05-02",
		"challan_no": "CH-77",
		"no_of_trucks": "4"
	}`))
	require.NoError(t, err)
	require.Len(t, updates, 8)
	assert.Equal(t, "billable_quantity", updates[0].Field())

	var e Entry
	Apply(&e, updates)
	assert.Equal(t, "Meghna Group", e.Consignee)
	require.NotNil(t, e.Date)
	assert.Equal(t, "2024-05-02", e.Date.Format("2006-01-02"))
	require.NotNil(t, e.ChallanNo)
	assert.Equal(t, "CH-77", *e.ChallanNo)
	require.NotNil(t, e.NoOfTrucks)
	assert.Equal(t, 4, *e.NoOfTrucks)
	assert.True(t, e.TotalUnitCosting().Equal(decimal.RequireFromString("14")))
	assert.True(t, e.FinalAmount().Equal(decimal.RequireFromString("1680")))
}

func TestParseUpdatesBlankClearsNullableFields(t *testing.T) {
	trucks := 3
	challan := "CH-1"
	e := Entry{
		NoOfTrucks: &trucks,
		ChallanNo:  &challan,
		TruckCost:  decimal.NewNullDecimal(decimal.NewFromInt(5)),
		Consignee:  "Old",
	}
	updates, err := ParseUpdates(rawBody(t, `{"no_of_trucks": "", "challan_no": null, "truck_cost": "", "consignee": null}`))
	require.NoError(t, err)

	Apply(&e, updates)
	assert.Nil(t, e.NoOfTrucks)
	assert.Nil(t, e.ChallanNo)
	assert.False(t, e.TruckCost.Valid)
	assert.Equal(t, "", e.Consignee)
	assert.True(t, e.FinalAmount().IsZero())
}

func TestParseUpdatesCollectsFieldErrors(t *testing.T) {
	_, err := ParseUpdates(rawBody(t, `{
		"lighter_cost": "-1",
		"date": "02/05/2024",
		"no_of_trucks": "2.5",
		"colour": "red",
		"item_name": {"nested": true}
	}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidUpdate))

	var fields FieldErrors
	require.True(t, errors.As(err, &fields))
	assert.Equal(t, FieldErrors{
		"lighter_cost": "must not be negative",
		"date":         "expected YYYY-MM-DD",
		"no_of_trucks": "must be a whole number",
		"colour":       "unknown field",
		"item_name":    "expected string, number or null",
	}, fields)
}

func TestParseUpdatesRejectsEmptyBody(t *testing.T) {
	_, err := ParseUpdates(map[string]json.RawMessage{})
	var fields FieldErrors
	require.True(t, errors.As(err, &fields))
	assert.Contains(t, fields, "_body")
}

func TestFinalAmountTreatsUnsetAsZero(t *testing.T) {
	e := Entry{
		BillableQuantity: decimal.NewNullDecimal(decimal.NewFromInt(10)),
		LighterCost:      decimal.NewNullDecimal(decimal.RequireFromString("2.25")),
	}
	assert.True(t, e.TotalUnitCosting().Equal(decimal.RequireFromString("2.25")))
	assert.True(t, e.FinalAmount().Equal(decimal.RequireFromString("22.5")))
}
