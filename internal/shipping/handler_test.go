package shipping

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/harborline/internal/platform/httpx"
	"github.com/harborline/harborline/internal/shared"
)

func newTestRouter(t *testing.T) (http.Handler, *testService) {
	t.Helper()
	ts := newTestService(t)
	r := chi.NewRouter()
	r.Route("/shipping/api", NewHandler(nil, ts.Service).MountRoutes)
	return r, ts
}

func doRequest(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(shared.HeaderInstituteID, "1")
	req.Header.Set(shared.HeaderUserID, "9")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

const createBody = `{
	"consignee": "Bashundhara Group",
	"mother_vessel_name": "MV Ocean Star",
	"arrival_date": "2024-03-01T00:00:00Z",
	"total_incoming_quantity": "1000",
	"item_type": "Wheat",
	"lighters": [{
		"lighter_name": "Sea Hawk",
		"loaded_quantity": 600,
		"lighter_cost": "100.50",
		"trucks": [{"challan": "CH-1", "unloaded_quantity": "250", "unloading_cost": "20"}]
	}]
}`

func TestHandlerCreateAndGetShipment(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/shipping/api/shipments", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[ShipmentResponse](t, rec)
	assert.Equal(t, "Unloaded from 1 Mother Vessel (MV Ocean Star) to 1 Lighter(s), then to 1 Truck(s)", created.FlowSummary)
	assert.Equal(t, "2024-03-01", created.ArrivalDate)
	assertDecimal(t, "120.5", created.TotalCost)
	require.Len(t, created.Lighters, 1)
	require.Len(t, created.Lighters[0].Trucks, 1)
	assert.Equal(t, "Sea Hawk", created.Lighters[0].Trucks[0].SourceLighterName)
	assert.False(t, created.Lighters[0].Trucks[0].CanProceed)

	rec = doRequest(t, router, http.MethodGet, "/shipping/api/shipments/"+created.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decodeBody[ShipmentResponse](t, rec).ID)
}

func TestHandlerRequiresScope(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/shipping/api/dashboard", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerCreateValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/shipping/api/shipments", `{"mother_vessel_name": "MV Ocean Star", "lighters": [{"loaded_quantity": 1}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeBody[httpx.ProblemDetail](t, rec)
	assert.Equal(t, "required", problem.Errors["consignee"])
	assert.Equal(t, "required", problem.Errors["lighters[0].lighter_name"])

	rec = doRequest(t, router, http.MethodPost, "/shipping/api/shipments", `{"unknown": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/shipping/api/shipments", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerMapsDomainErrors(t *testing.T) {
	router, ts := newTestRouter(t)
	c := ts.mustCreate(t, createRequest("1000", lighterRequest("Sea Hawk", "600")))
	base := "/shipping/api/shipments/" + c.ID.String()

	rec := doRequest(t, router, http.MethodPost, base+"/lighters", `{"lighter_name": "River Queen", "loaded_quantity": "500", "lighter_cost": "0"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds incoming quantity")

	rec = doRequest(t, router, http.MethodPost, base+"/lighters", `{"lighter_name": "River Queen", "loaded_quantity": "0", "lighter_cost": "0"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/shipping/api/shipments/00000000-0000-0000-0000-000000000001", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/shipping/api/shipments/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPatch, "/shipping/api/lighters/"+c.Lighters[0].ID.String()+"/status", `{"status": "SUNK"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerIdempotentCreate(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/shipping/api/shipments", createBody, HeaderIdempotencyKey, "abc")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(t, router, http.MethodPost, "/shipping/api/shipments", createBody, HeaderIdempotencyKey, "abc")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerTruckLifecycle(t *testing.T) {
	router, ts := newTestRouter(t)
	c := ts.mustCreate(t, createRequest("1000", lighterRequest("Sea Hawk", "600")))
	lighterPath := "/shipping/api/lighters/" + c.Lighters[0].ID.String()

	rec := doRequest(t, router, http.MethodPost, lighterPath+"/trucks", `{"challan": "CH-9", "unloaded_quantity": "100", "unloading_cost": "5", "depends_on_lighter_completion": false}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	truck := decodeBody[TruckResponse](t, rec)
	assert.True(t, truck.CanProceed)
	assert.Equal(t, 1, truck.NumberOfTrucks)

	rec = doRequest(t, router, http.MethodPost, "/shipping/api/trucks/"+truck.ID.String()+"/products", `{"item": "Wheat", "delivery_quantity": "100", "truck_transport_cost": "2.5"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assertDecimal(t, "2.5", decodeBody[ProductResponse](t, rec).TotalCost)

	rec = doRequest(t, router, http.MethodPatch, lighterPath+"/status", `{"status": "LOADED"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, LoadStatusLoaded, decodeBody[LighterResponse](t, rec).Status)

	rec = doRequest(t, router, http.MethodGet, "/shipping/api/shipments/"+c.ID.String()+"/validate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody[ValidationResponse](t, rec)
	assert.True(t, report.Balanced)
	assert.Empty(t, report.BlockedTrucks)
	require.Len(t, report.LighterValidations, 1)
	assertDecimal(t, "500", report.LighterValidations[0].RemainingQuantity)

	rec = doRequest(t, router, http.MethodDelete, lighterPath+"/trucks/"+truck.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/shipping/api/shipments/"+c.ID.String()+"/lighters/"+c.Lighters[0].ID.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, c.Lighters)
}

func TestHandlerListUpdateDelete(t *testing.T) {
	router, ts := newTestRouter(t)
	c := ts.mustCreate(t, createRequest("1000"))
	ts.mustCreate(t, createRequest("500"))

	rec := doRequest(t, router, http.MethodGet, "/shipping/api/shipments?status=pending&per_page=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[struct {
		Items      []ListItemResponse `json:"items"`
		Pagination shared.Pagination  `json:"pagination"`
	}](t, rec)
	assert.Len(t, list.Items, 1)
	assert.Equal(t, 2, list.Pagination.Total)

	rec = doRequest(t, router, http.MethodGet, "/shipping/api/shipments?status=lost", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doRequest(t, router, http.MethodGet, "/shipping/api/shipments?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPut, "/shipping/api/shipments/"+c.ID.String(), `{
		"consignee": "Meghna Group", "mother_vessel_name": "MV Northern Light",
		"arrival_date": "2024-03-02T00:00:00Z", "total_incoming_quantity": "1200",
		"item_type": "Wheat", "status": "IN_PROGRESS"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[ShipmentResponse](t, rec)
	assert.Equal(t, ShipmentStatusInProgress, updated.Status)
	assert.Contains(t, updated.FlowSummary, "MV Northern Light")

	rec = doRequest(t, router, http.MethodDelete, "/shipping/api/shipments/"+c.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doRequest(t, router, http.MethodGet, "/shipping/api/shipments/"+c.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerDashboard(t *testing.T) {
	router, ts := newTestRouter(t)
	ts.mustCreate(t, createRequest("1000", lighterRequest("Sea Hawk", "600", truckRequest("CH-1", "250"))))

	rec := doRequest(t, router, http.MethodGet, "/shipping/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	d := decodeBody[DashboardResponse](t, rec)
	assert.Equal(t, 1, d.SummaryStats.TotalShipments)
	require.Len(t, d.CostBreakdowns, 3)
	assert.Equal(t, "Lighter", d.CostBreakdowns[0].Stage)
	require.Len(t, d.FlowVisualizations, 1)
	assert.Equal(t, map[string]int{"Sea Hawk": 1}, d.FlowVisualizations[0].LighterToTruckMap)
}
