package payrollhandler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"openpay/internal/domain/auth"
	"openpay/internal/domain/payroll"
	"openpay/internal/transport/http/api"
	"openpay/internal/transport/http/middleware"
	"openpay/internal/transport/http/shared"
)

type Handler struct {
	Service *payroll.Service
}

func NewHandler(service *payroll.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermPayrollRead)
	write := middleware.RequirePermission(auth.PermPayrollWrite)

	r.Route("/positions", func(r chi.Router) {
		r.With(read).Get("/", h.handleListPositions)
		r.With(write).Post("/", h.handleCreatePosition)
		r.With(read).Get("/{positionID}", h.handleGetPosition)
		r.With(write).Put("/{positionID}", h.handleUpdatePosition)
		r.With(write).Delete("/{positionID}", h.handleDeletePosition)
		r.With(write).Post("/{positionID}/hide", h.handleHidePosition)
		r.With(write).Post("/{positionID}/reveal", h.handleRevealPosition)
	})

	r.Route("/employees", func(r chi.Router) {
		r.With(read).Get("/", h.handleListEmployees)
		r.With(write).Post("/", h.handleCreateEmployee)
		r.With(read).Get("/{employeeID}", h.handleGetEmployee)
		r.With(write).Put("/{employeeID}", h.handleUpdateEmployee)
		r.With(write).Delete("/{employeeID}", h.handleDeleteEmployee)
		r.With(write).Post("/{employeeID}/hide", h.handleHideEmployee)
		r.With(write).Post("/{employeeID}/reveal", h.handleRevealEmployee)
		r.With(write).Post("/{employeeID}/position", h.handleAssignPosition)
		r.With(read).Get("/{employeeID}/payments", h.handleListEmployeePayments)
	})

	r.Route("/payments", func(r chi.Router) {
		r.With(read).Get("/", h.handleListPayments)
		r.With(write).Post("/", h.handleCreatePayment)
		r.With(read).Post("/preview", h.handlePreview)
		r.With(read).Post("/refresh-taxes", h.handleRefreshTaxes)
		r.With(read).Get("/{paymentID}", h.handleGetPayment)
		r.With(write).Put("/{paymentID}", h.handleUpdatePayment)
		r.With(write).Delete("/{paymentID}", h.handleDeletePayment)
		r.With(write).Post("/{paymentID}/hide", h.handleHidePayment)
		r.With(write).Post("/{paymentID}/reveal", h.handleRevealPayment)
		r.With(read).Get("/{paymentID}/paystub", h.handlePayStub)
	})
}

type statusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func writeStatus(w http.ResponseWriter, r *http.Request, id, status string, err error) {
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	api.Success(w, statusResponse{ID: id, Status: status}, api.RequestIDFrom(r))
}

func orZero(value *decimal.Decimal) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return *value
}

func nullable(value *decimal.Decimal) decimal.NullDecimal {
	if value == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*value)
}

func parseDate(field, value string) (time.Time, error) {
	parsed, err := shared.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", payroll.ErrInvalidInput, field)
	}
	return parsed, nil
}
