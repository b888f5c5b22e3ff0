package payrollhandler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"openpay/internal/domain/payroll"
	"openpay/internal/transport/http/api"
	"openpay/internal/transport/http/shared"
)

var paymentPage = shared.PageLimits{Max: 1000}

// paymentView adds the per-payment FICA figure shown in payment listings.
type paymentView struct {
	payroll.Payment
	Date string    `json:"date"`
	FICA api.Money `json:"fica"`
}

func toView(p payroll.Payment) paymentView {
	return paymentView{Payment: p, Date: p.Date.Format(shared.DateLayout), FICA: api.Money(p.FICA())}
}

type amountsPayload struct {
	GrossPay           *decimal.Decimal `json:"grossPay"`
	Housing            *decimal.Decimal `json:"housing"`
	HSA                *decimal.Decimal `json:"hsa"`
	SocialSecurityTax  *decimal.Decimal `json:"socialSecurityTax"`
	MedicareTax        *decimal.Decimal `json:"medicareTax"`
	SelfEmploymentTax  *decimal.Decimal `json:"selfEmploymentTax"`
	FederalWithholding *decimal.Decimal `json:"federalWithholding"`
}

func (p amountsPayload) toAmounts() payroll.Amounts {
	return payroll.Amounts{
		GrossPay:           orZero(p.GrossPay),
		Housing:            orZero(p.Housing),
		HSA:                orZero(p.HSA),
		SocialSecurityTax:  orZero(p.SocialSecurityTax),
		MedicareTax:        orZero(p.MedicareTax),
		SelfEmploymentTax:  orZero(p.SelfEmploymentTax),
		FederalWithholding: orZero(p.FederalWithholding),
	}
}

type createPaymentPayload struct {
	EmployeeID   string           `json:"employeeId" validate:"required"`
	Type         string           `json:"type" validate:"omitempty,oneof=Payroll Bonus"`
	Date         string           `json:"date"`
	Time         string           `json:"time" validate:"max=8"`
	Hours        *decimal.Decimal `json:"hours"`
	RefreshTaxes bool             `json:"refreshTaxes"`
	amountsPayload
}

type updatePaymentPayload struct {
	Date         *string          `json:"date"`
	Time         *string          `json:"time" validate:"omitempty,max=8"`
	Hours        *decimal.Decimal `json:"hours"`
	RefreshTaxes bool             `json:"refreshTaxes"`
	amountsPayload
}

type previewPayload struct {
	EmployeeID string           `json:"employeeId" validate:"required"`
	Hours      *decimal.Decimal `json:"hours"`
}

type refreshPayload struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	amountsPayload
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	h.listPayments(w, r, r.URL.Query().Get("employeeId"))
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request, employeeID string) {
	window, err := shared.ParseDateRange(r)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	hidden, err := shared.ParseHidden(r)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	payments, err := h.Service.ListPayments(r.Context(), payroll.PaymentFilter{EmployeeID: employeeID, Range: window, Hidden: hidden})
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	start, end := shared.ParsePage(r, paymentPage).Bounds(len(payments))
	views := make([]paymentView, 0, end-start)
	for _, p := range payments[start:end] {
		views = append(views, toView(p))
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(payments)))
	api.Success(w, views, api.RequestIDFrom(r))
}

func (h *Handler) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.Service.GetPayment(r.Context(), chi.URLParam(r, "paymentID"))
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	api.Success(w, toView(payment), api.RequestIDFrom(r))
}

func (h *Handler) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var payload createPaymentPayload
	if !shared.Decode(w, r, &payload) {
		return
	}
	date, err := parseDate("date", payload.Date)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}

	var payment payroll.Payment
	switch payroll.PaymentType(payload.Type) {
	case payroll.PaymentTypeBonus:
		payment, err = h.Service.CreateBonus(r.Context(), payroll.BonusRequest{
			EmployeeID:   payload.EmployeeID,
			Date:         date,
			Time:         payload.Time,
			Amounts:      payload.toAmounts(),
			RefreshTaxes: payload.RefreshTaxes,
		})
	default:
		payment, err = h.Service.CreatePayroll(r.Context(), payroll.PayrollRequest{
			EmployeeID: payload.EmployeeID,
			Date:       date,
			Time:       payload.Time,
			Hours:      orZero(payload.Hours),
		})
	}
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	api.Created(w, toView(payment), api.RequestIDFrom(r))
}

func (h *Handler) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	var payload updatePaymentPayload
	if !shared.Decode(w, r, &payload) {
		return
	}
	update := payroll.PaymentUpdate{
		Time:               payload.Time,
		Hours:              payload.Hours,
		GrossPay:           payload.GrossPay,
		Housing:            payload.Housing,
		HSA:                payload.HSA,
		SocialSecurityTax:  payload.SocialSecurityTax,
		MedicareTax:        payload.MedicareTax,
		SelfEmploymentTax:  payload.SelfEmploymentTax,
		FederalWithholding: payload.FederalWithholding,
	}
	if payload.Date != nil {
		date, err := parseDate("date", *payload.Date)
		if err != nil {
			api.FailError(w, err, api.RequestIDFrom(r))
			return
		}
		update.Date = &date
	}
	payment, err := h.Service.UpdatePayment(r.Context(), chi.URLParam(r, "paymentID"), update, payload.RefreshTaxes)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	api.Success(w, toView(payment), api.RequestIDFrom(r))
}

func (h *Handler) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "paymentID")
	writeStatus(w, r, id, "deleted", h.Service.DeletePayment(r.Context(), id))
}

func (h *Handler) handleHidePayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "paymentID")
	writeStatus(w, r, id, "hidden", h.Service.HidePayment(r.Context(), id))
}

func (h *Handler) handleRevealPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "paymentID")
	writeStatus(w, r, id, "revealed", h.Service.RevealPayment(r.Context(), id))
}

type calculationView struct {
	SalaryPortion api.Money       `json:"salaryPortion"`
	HourlyPortion api.Money       `json:"hourlyPortion"`
	Amounts       amountsView     `json:"amounts"`
	FICA          api.Money       `json:"fica"`
	Hours         decimal.Decimal `json:"hours"`
}

type amountsView struct {
	GrossPay           api.Money `json:"grossPay"`
	Housing            api.Money `json:"housing"`
	HSA                api.Money `json:"hsa"`
	SocialSecurityTax  api.Money `json:"socialSecurityTax"`
	MedicareTax        api.Money `json:"medicareTax"`
	SelfEmploymentTax  api.Money `json:"selfEmploymentTax"`
	FederalWithholding api.Money `json:"federalWithholding"`
	NetPay             api.Money `json:"netPay"`
}

func newAmountsView(a payroll.Amounts) amountsView {
	return amountsView{
		GrossPay:           api.Money(a.GrossPay),
		Housing:            api.Money(a.Housing),
		HSA:                api.Money(a.HSA),
		SocialSecurityTax:  api.Money(a.SocialSecurityTax),
		MedicareTax:        api.Money(a.MedicareTax),
		SelfEmploymentTax:  api.Money(a.SelfEmploymentTax),
		FederalWithholding: api.Money(a.FederalWithholding),
		NetPay:             api.Money(a.NetPay),
	}
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	var payload previewPayload
	if !shared.Decode(w, r, &payload) {
		return
	}
	hours := orZero(payload.Hours)
	calc, err := h.Service.Preview(r.Context(), payload.EmployeeID, hours)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	api.Success(w, calculationView{
		SalaryPortion: api.Money(calc.SalaryPortion),
		HourlyPortion: api.Money(calc.HourlyPortion),
		Amounts:       newAmountsView(calc.Amounts),
		FICA:          api.Money(calc.FICA()),
		Hours:         hours,
	}, api.RequestIDFrom(r))
}

func (h *Handler) handleRefreshTaxes(w http.ResponseWriter, r *http.Request) {
	var payload refreshPayload
	if !shared.Decode(w, r, &payload) {
		return
	}
	amounts, err := h.Service.RefreshTaxes(r.Context(), payload.EmployeeID, payload.toAmounts())
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	api.Success(w, newAmountsView(amounts), api.RequestIDFrom(r))
}

func (h *Handler) handlePayStub(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")
	var buf bytes.Buffer
	if err := h.Service.RenderPayStub(r.Context(), paymentID, &buf); err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=paystub-"+paymentID+".pdf")
	_, _ = w.Write(buf.Bytes())
}
