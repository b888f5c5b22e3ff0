package payrollhandler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"openpay/internal/domain/auth"
	"openpay/internal/domain/payroll"
	"openpay/internal/domain/payroll/payrolltest"
	"openpay/internal/platform/eventbus"
	"openpay/internal/transport/http/middleware"
)

const testSecret = "handler-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type fixture struct {
	router http.Handler
	store  *payrolltest.MemStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	store := payrolltest.NewMemStore()
	service := payroll.NewService(store, eventbus.New(log), log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Auth(testSecret))
	NewHandler(service).RegisterRoutes(r)
	return fixture{router: r, store: store}
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "u-" + role, Email: role + "@example.com", Role: role}, time.Now(), time.Hour)
	require.NoError(t, err)
	return tok
}

func (f fixture) do(t *testing.T, method, path, role string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, role))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestPositionRoutesEnforcePermissions(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodGet, "/positions", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, env.Success)

	rec, _ = f.do(t, http.MethodPost, "/positions", auth.RoleViewer, map[string]any{"name": "Pastor"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = f.do(t, http.MethodPost, "/positions", auth.RoleClerk, map[string]any{"name": "Pastor", "salary": "52000"})
	require.Equal(t, http.StatusCreated, rec.Code)
	position := decodeData(t, env)
	require.Equal(t, "Pastor", position["name"])

	rec, env = f.do(t, http.MethodGet, "/positions", auth.RoleViewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
}

func TestPositionHideAndRevealFilter(t *testing.T) {
	f := newFixture(t)
	_, env := f.do(t, http.MethodPost, "/positions", auth.RoleAdmin, map[string]any{"name": "Organist"})
	id := decodeData(t, env)["id"].(string)

	rec, _ := f.do(t, http.MethodPost, "/positions/"+id+"/hide", auth.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, env = f.do(t, http.MethodGet, "/positions", auth.RoleAdmin, nil)
	require.JSONEq(t, "[]", string(env.Data))

	_, env = f.do(t, http.MethodGet, "/positions?hidden=true", auth.RoleAdmin, nil)
	var hidden []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &hidden))
	require.Len(t, hidden, 1)

	rec, _ = f.do(t, http.MethodPost, "/positions/"+id+"/reveal", auth.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(t, http.MethodGet, "/positions?hidden=maybe", auth.RoleAdmin, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_input", env.Error.Code)
}

func TestCreateEmployeeValidation(t *testing.T) {
	f := newFixture(t)
	rec, env := f.do(t, http.MethodPost, "/employees", auth.RoleClerk, map[string]any{"lastName": "Doe"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "validation_error", env.Error.Code)

	rec, env = f.do(t, http.MethodPost, "/employees", auth.RoleClerk, map[string]any{"firstName": "Pat", "lastName": "Doe", "birthdate": "yesterday"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_input", env.Error.Code)

	rec, _ = f.do(t, http.MethodGet, "/employees/does-not-exist", auth.RoleClerk, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func createEmployee(t *testing.T, f fixture) string {
	t.Helper()
	rec, env := f.do(t, http.MethodPost, "/positions", auth.RoleClerk, map[string]any{
		"name":               "Pastor",
		"salary":             "52000",
		"housingAllowance":   "2600",
		"federalWithholding": "200",
		"payInterval":        "BiWeekly",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	positionID := decodeData(t, env)["id"].(string)

	rec, env = f.do(t, http.MethodPost, "/employees", auth.RoleClerk, map[string]any{
		"firstName":           "Pat",
		"lastName":            "Doe",
		"positionId":          positionID,
		"usePositionDefaults": true,
		"birthdate":           "1980-04-01",
		"address":             map[string]any{"streetNumber": "12", "streetName": "Main St", "city": "Springfield", "state": "IL", "zip": "62701"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	employee := decodeData(t, env)
	require.Equal(t, "BiWeekly", employee["payInterval"])
	return employee["id"].(string)
}

func TestPayrollPaymentLifecycle(t *testing.T) {
	f := newFixture(t)
	employeeID := createEmployee(t, f)

	rec, env := f.do(t, http.MethodPost, "/payments/preview", auth.RoleViewer, map[string]any{"employeeId": employeeID})
	require.Equal(t, http.StatusOK, rec.Code)
	preview := decodeData(t, env)
	amounts := preview["amounts"].(map[string]any)
	require.Equal(t, "2100.00", amounts["grossPay"])
	require.Equal(t, "1931.66", amounts["netPay"])
	require.Equal(t, "321.30", preview["fica"])

	rec, env = f.do(t, http.MethodPost, "/payments", auth.RoleClerk, map[string]any{"employeeId": employeeID, "date": "2024-03-15", "time": "09:30"})
	require.Equal(t, http.StatusCreated, rec.Code)
	payment := decodeData(t, env)
	paymentID := payment["id"].(string)
	require.Equal(t, "2024-03-15", payment["date"])
	require.Equal(t, "09:30:00", payment["time"])
	require.Equal(t, "Payroll", payment["type"])

	rec, env = f.do(t, http.MethodGet, "/payments?from=2024-03-01&to=2024-03-31", auth.RoleViewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)
	require.Equal(t, "321.30", listed[0]["fica"])

	rec, _ = f.do(t, http.MethodGet, "/employees/"+employeeID+"/payments", auth.RoleViewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(t, http.MethodPut, "/payments/"+paymentID, auth.RoleClerk, map[string]any{"federalWithholding": "10"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeData(t, env)
	require.Equal(t, "1929.35", updated["netPay"])

	req := httptest.NewRequest(http.MethodGet, "/payments/"+paymentID+"/paystub", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, auth.RoleViewer))
	stub := httptest.NewRecorder()
	f.router.ServeHTTP(stub, req)
	require.Equal(t, http.StatusOK, stub.Code)
	require.Equal(t, "application/pdf", stub.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(stub.Body.Bytes(), []byte("%PDF")))

	rec, _ = f.do(t, http.MethodDelete, "/payments/"+paymentID, auth.RoleClerk, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(t, http.MethodGet, "/payments/"+paymentID, auth.RoleClerk, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPaymentsPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	employeeID := createEmployee(t, f)
	for _, date := range []string{"2024-01-05", "2024-01-19", "2024-02-02"} {
		rec, _ := f.do(t, http.MethodPost, "/payments", auth.RoleClerk, map[string]any{"employeeId": employeeID, "date": date, "time": "12:00"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, env := f.do(t, http.MethodGet, "/payments?limit=2&offset=1", auth.RoleViewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "3", rec.Header().Get("X-Total-Count"))
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 2)
	require.Equal(t, "2024-01-19", listed[0]["date"])
	require.Equal(t, "2024-01-05", listed[1]["date"])

	_, env = f.do(t, http.MethodGet, "/payments?offset=9", auth.RoleViewer, nil)
	require.JSONEq(t, "[]", string(env.Data))
}

func TestCreateBonusKeepsEnteredTaxes(t *testing.T) {
	f := newFixture(t)
	employeeID := createEmployee(t, f)

	rec, env := f.do(t, http.MethodPost, "/payments", auth.RoleClerk, map[string]any{
		"employeeId":        employeeID,
		"type":              "Bonus",
		"date":              "2024-12-20",
		"grossPay":          "500",
		"socialSecurityTax": "1",
		"medicareTax":       "2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	bonus := decodeData(t, env)
	require.Equal(t, "Bonus", bonus["type"])
	require.Equal(t, "497", bonus["netPay"])

	rec, env = f.do(t, http.MethodPost, "/payments", auth.RoleClerk, map[string]any{"employeeId": employeeID, "type": "Gift"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "validation_error", env.Error.Code)
}

func TestRefreshTaxesEndpoint(t *testing.T) {
	f := newFixture(t)
	employeeID := createEmployee(t, f)

	rec, env := f.do(t, http.MethodPost, "/payments/refresh-taxes", auth.RoleClerk, map[string]any{
		"employeeId":         employeeID,
		"grossPay":           "1000",
		"hsa":                "100",
		"federalWithholding": "50",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	amounts := decodeData(t, env)
	require.Equal(t, "55.80", amounts["socialSecurityTax"])
	require.Equal(t, "13.05", amounts["medicareTax"])
	require.Equal(t, "781.15", amounts["netPay"])
}

func TestStoreFailureIsServiceUnavailable(t *testing.T) {
	f := newFixture(t)
	f.store.Err = payroll.ErrStoreUnavailable
	rec, env := f.do(t, http.MethodGet, "/employees", auth.RoleAdmin, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "store_unavailable", env.Error.Code)
}
