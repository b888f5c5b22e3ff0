package reportshandler

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"openpay/internal/domain/auth"
	"openpay/internal/domain/payroll"
	"openpay/internal/transport/http/api"
	"openpay/internal/transport/http/middleware"
	"openpay/internal/transport/http/shared"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	Aggregator *payroll.Aggregator
	Now        func() time.Time
}

func NewHandler(aggregator *payroll.Aggregator) *Handler {
	return &Handler{Aggregator: aggregator, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReportsRead)).Get("/monthly", h.handleMonthly)
		r.With(middleware.RequirePermission(auth.PermReportsRead)).Get("/quarterly", h.handleQuarterly)
		r.With(middleware.RequirePermission(auth.PermReportsRead)).Get("/941", h.handleForm941)
		r.With(middleware.RequirePermission(auth.PermReportsRead)).Get("/941.xlsx", h.handleForm941Workbook)
		r.With(middleware.RequirePermission(auth.PermReportsRead)).Get("/ytd", h.handleYearToDate)
	})
}

type fieldTotal struct {
	Field payroll.Field `json:"field"`
	Total api.Money     `json:"total"`
}

type monthlyView struct {
	Month          int       `json:"month"`
	Name           string    `json:"name"`
	SocialSecurity api.Money `json:"socialSecurity"`
	Medicare       api.Money `json:"medicare"`
	Federal        api.Money `json:"federal"`
	SelfEmployment api.Money `json:"selfEmployment"`
	Total          api.Money `json:"total"`
}

type quarterlyView struct {
	Quarter             int       `json:"quarter"`
	TotalSocialSecurity api.Money `json:"totalSocialSecurity"`
	TotalMedicare       api.Money `json:"totalMedicare"`
	TotalFederal        api.Money `json:"totalFederal"`
	FICAPay             api.Money `json:"ficaPay"`
	TotalPay            api.Money `json:"totalPay"`
}

type form941View struct {
	Year     int             `json:"year"`
	Months   []monthlyView   `json:"months"`
	Quarters []quarterlyView `json:"quarters"`
}

func newMonthlyView(m payroll.MonthlyLiability) monthlyView {
	return monthlyView{
		Month:          m.Month,
		Name:           m.Name,
		SocialSecurity: api.Money(m.SocialSecurity),
		Medicare:       api.Money(m.Medicare),
		Federal:        api.Money(m.Federal),
		SelfEmployment: api.Money(m.SelfEmployment),
		Total:          api.Money(m.Total),
	}
}

func newQuarterlyView(q payroll.QuarterlySummary) quarterlyView {
	return quarterlyView{
		Quarter:             q.Quarter,
		TotalSocialSecurity: api.Money(q.TotalSocialSecurity),
		TotalMedicare:       api.Money(q.TotalMedicare),
		TotalFederal:        api.Money(q.TotalFederal),
		FICAPay:             api.Money(q.FICAPay),
		TotalPay:            api.Money(q.TotalPay),
	}
}

// optionalField reads the field query parameter; empty means the full table.
func optionalField(r *http.Request) (payroll.Field, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("field"))
	if raw == "" {
		return "", false, nil
	}
	field, err := payroll.ParseField(raw)
	return field, true, err
}

func (h *Handler) handleMonthly(w http.ResponseWriter, r *http.Request) {
	month, err := shared.QueryInt(r, "month")
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	year, err := shared.QueryInt(r, "year")
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	field, single, err := optionalField(r)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	if single {
		total, err := h.Aggregator.MonthlyTotal(r.Context(), month, year, field)
		if err != nil {
			api.FailError(w, err, api.RequestIDFrom(r))
			return
		}
		api.Success(w, fieldTotal{Field: field, Total: api.Money(total)}, api.RequestIDFrom(r))
		return
	}

	row, err := h.Aggregator.MonthlyLiability(r.Context(), month, year)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	api.Success(w, newMonthlyView(row), api.RequestIDFrom(r))
}

func (h *Handler) handleQuarterly(w http.ResponseWriter, r *http.Request) {
	quarter, err := shared.QueryInt(r, "quarter")
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	year, err := shared.QueryInt(r, "year")
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	field, single, err := optionalField(r)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	if single {
		total, err := h.Aggregator.QuarterlyTotal(r.Context(), quarter, year, field)
		if err != nil {
			api.FailError(w, err, api.RequestIDFrom(r))
			return
		}
		api.Success(w, fieldTotal{Field: field, Total: api.Money(total)}, api.RequestIDFrom(r))
		return
	}

	summary, err := h.Aggregator.QuarterlySummary(r.Context(), quarter, year)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	api.Success(w, newQuarterlyView(summary), api.RequestIDFrom(r))
}

func (h *Handler) form941(r *http.Request) (payroll.Form941, error) {
	year, err := shared.QueryInt(r, "year")
	if err != nil {
		return payroll.Form941{}, err
	}
	return h.Aggregator.Form941(r.Context(), year)
}

func (h *Handler) handleForm941(w http.ResponseWriter, r *http.Request) {
	form, err := h.form941(r)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	view := form941View{Year: form.Year}
	for _, m := range form.Months {
		view.Months = append(view.Months, newMonthlyView(m))
	}
	for _, q := range form.Quarters {
		view.Quarters = append(view.Quarters, newQuarterlyView(q))
	}
	api.Success(w, view, api.RequestIDFrom(r))
}

func (h *Handler) handleForm941Workbook(w http.ResponseWriter, r *http.Request) {
	form, err := h.form941(r)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	var buf bytes.Buffer
	if err := payroll.WriteForm941Workbook(&buf, form); err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=form941-%d.xlsx", form.Year))
	_, _ = w.Write(buf.Bytes())
}

type yearToDateView struct {
	EmployeeID string               `json:"employeeId"`
	AsOf       string               `json:"asOf"`
	Totals     map[string]api.Money `json:"totals"`
}

func (h *Handler) handleYearToDate(w http.ResponseWriter, r *http.Request) {
	employeeID := strings.TrimSpace(r.URL.Query().Get("employeeId"))
	if employeeID == "" {
		api.FailError(w, fmt.Errorf("%w: employeeId is required", payroll.ErrInvalidInput), api.RequestIDFrom(r))
		return
	}
	asOf, err := shared.ParseDate(r.URL.Query().Get("asOf"))
	if err != nil {
		api.FailError(w, fmt.Errorf("%w: asOf must be YYYY-MM-DD", payroll.ErrInvalidInput), api.RequestIDFrom(r))
		return
	}
	if asOf.IsZero() {
		asOf = payroll.Day(h.Now())
	}
	field, single, err := optionalField(r)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}

	view := yearToDateView{EmployeeID: employeeID, AsOf: asOf.Format(shared.DateLayout), Totals: map[string]api.Money{}}
	if single {
		total, err := h.Aggregator.YearToDate(r.Context(), employeeID, asOf, field)
		if err != nil {
			api.FailError(w, err, api.RequestIDFrom(r))
			return
		}
		view.Totals[string(field)] = api.Money(total)
		api.Success(w, view, api.RequestIDFrom(r))
		return
	}

	totals, err := h.Aggregator.YearToDateTotals(r.Context(), employeeID, asOf)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	for _, f := range payroll.YearToDateFields {
		view.Totals[string(f)] = api.Money(f.Of(totals))
	}
	api.Success(w, view, api.RequestIDFrom(r))
}
