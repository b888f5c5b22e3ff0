package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"openpay/internal/domain/payroll"
)

type samplePayload struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=admin clerk viewer"`
	Year  int    `json:"year" validate:"min=1900"`
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	issues := Validate(&samplePayload{Email: "nope", Role: "owner", Year: 12})
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %+v", issues)
	}
	if issues[0].Field != "email" || issues[1].Field != "role" || issues[2].Field != "year" {
		t.Fatalf("unexpected field order %+v", issues)
	}
	if issues[0].Reason != "must be a valid email" {
		t.Fatalf("unexpected reason %q", issues[0].Reason)
	}
	if Validate(&samplePayload{Email: "a@b.co", Year: 2024}) != nil {
		t.Fatal("expected valid payload")
	}
}

func TestDecodeWritesValidationError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"","year":2024}`))
	rec := httptest.NewRecorder()
	var payload samplePayload
	if Decode(rec, req, &payload) {
		t.Fatal("expected decode to fail validation")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []ValidationIssue `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Error.Code != "validation_error" || len(env.Error.Details.Fields) != 1 {
		t.Fatalf("unexpected response %s", rec.Body.String())
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","year":2024,"salary":1}`))
	rec := httptest.NewRecorder()
	var payload samplePayload
	if Decode(rec, req, &payload) {
		t.Fatal("expected unknown field to be rejected")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestParseHidden(t *testing.T) {
	tests := map[string]payroll.HiddenFilter{
		"":      payroll.HiddenExclude,
		"false": payroll.HiddenExclude,
		"TRUE":  payroll.HiddenOnly,
		"all":   payroll.HiddenAll,
	}
	for raw, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/?hidden="+raw, nil)
		got, err := ParseHidden(req)
		if err != nil || got != want {
			t.Fatalf("hidden=%q: expected %q, got %q (%v)", raw, want, got, err)
		}
	}
	if _, err := ParseHidden(httptest.NewRequest(http.MethodGet, "/?hidden=maybe", nil)); err == nil {
		t.Fatal("expected invalid hidden filter to be rejected")
	}
}

func TestParseDateRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=2024-01-01&to=2024-03-31", nil)
	window, err := ParseDateRange(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if window.From.Format(DateLayout) != "2024-01-01" || window.To.Format(DateLayout) != "2024-03-31" {
		t.Fatalf("unexpected window %+v", window)
	}

	if _, err := ParseDateRange(httptest.NewRequest(http.MethodGet, "/?from=01/02/2024", nil)); err == nil {
		t.Fatal("expected malformed date to be rejected")
	}
}

func TestParsePageCapsLimit(t *testing.T) {
	limits := PageLimits{Default: 100, Max: 500}
	page := ParsePage(httptest.NewRequest(http.MethodGet, "/?limit=900&offset=20", nil), limits)
	if page.Limit != 500 || page.Offset != 20 {
		t.Fatalf("unexpected page %+v", page)
	}
	page = ParsePage(httptest.NewRequest(http.MethodGet, "/?limit=abc&offset=-3", nil), limits)
	if page.Limit != 100 || page.Offset != 0 {
		t.Fatalf("expected defaults, got %+v", page)
	}
}

func TestPageBounds(t *testing.T) {
	all := ParsePage(httptest.NewRequest(http.MethodGet, "/", nil), PageLimits{Max: 50})
	if start, end := all.Bounds(7); start != 0 || end != 7 {
		t.Fatalf("expected whole listing, got [%d, %d)", start, end)
	}
	if start, end := (Page{Limit: 3, Offset: 5}).Bounds(7); start != 5 || end != 7 {
		t.Fatalf("expected [5, 7), got [%d, %d)", start, end)
	}
	if start, end := (Page{Limit: 3, Offset: 20}).Bounds(7); start != 7 || end != 7 {
		t.Fatalf("expected empty page past the end, got [%d, %d)", start, end)
	}
}
