package payrollhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"openpay/internal/domain/payroll"
	"openpay/internal/transport/http/api"
	"openpay/internal/transport/http/shared"
)

type positionPayload struct {
	Name                      string           `json:"name" validate:"required,max=120"`
	Salary                    *decimal.Decimal `json:"salary"`
	HourlyRate                *decimal.Decimal `json:"hourlyRate"`
	HousingAllowance          *decimal.Decimal `json:"housingAllowance"`
	HSA                       *decimal.Decimal `json:"hsa"`
	FederalWithholding        *decimal.Decimal `json:"federalWithholding"`
	SelfEmploymentWithholding *decimal.Decimal `json:"selfEmploymentWithholding"`
	PayInterval               string           `json:"payInterval" validate:"max=20"`
	SelfEmployed              bool             `json:"selfEmployed"`
}

func (p positionPayload) toPosition(id string) payroll.Position {
	return payroll.Position{
		ID:   id,
		Name: p.Name,
		PositionDefaults: payroll.PositionDefaults{
			Salary:                    nullable(p.Salary),
			HourlyRate:                nullable(p.HourlyRate),
			HousingAllowance:          nullable(p.HousingAllowance),
			HSA:                       nullable(p.HSA),
			FederalWithholding:        nullable(p.FederalWithholding),
			SelfEmploymentWithholding: nullable(p.SelfEmploymentWithholding),
			PayInterval:               payroll.PayInterval(p.PayInterval),
			SelfEmployed:              p.SelfEmployed,
		},
	}
}

func (h *Handler) handleListPositions(w http.ResponseWriter, r *http.Request) {
	hidden, err := shared.ParseHidden(r)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	positions, err := h.Service.ListPositions(r.Context(), hidden)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	if positions == nil {
		positions = []payroll.Position{}
	}
	api.Success(w, positions, api.RequestIDFrom(r))
}

func (h *Handler) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	position, err := h.Service.GetPosition(r.Context(), chi.URLParam(r, "positionID"))
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	api.Success(w, position, api.RequestIDFrom(r))
}

func (h *Handler) handleCreatePosition(w http.ResponseWriter, r *http.Request) {
	var payload positionPayload
	if !shared.Decode(w, r, &payload) {
		return
	}
	position, err := h.Service.CreatePosition(r.Context(), payload.toPosition(""))
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	api.Created(w, position, api.RequestIDFrom(r))
}

func (h *Handler) handleUpdatePosition(w http.ResponseWriter, r *http.Request) {
	var payload positionPayload
	if !shared.Decode(w, r, &payload) {
		return
	}
	position, err := h.Service.UpdatePosition(r.Context(), payload.toPosition(chi.URLParam(r, "positionID")))
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	api.Success(w, position, api.RequestIDFrom(r))
}

func (h *Handler) handleDeletePosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "positionID")
	writeStatus(w, r, id, "deleted", h.Service.DeletePosition(r.Context(), id))
}

func (h *Handler) handleHidePosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "positionID")
	writeStatus(w, r, id, "hidden", h.Service.HidePosition(r.Context(), id))
}

func (h *Handler) handleRevealPosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "positionID")
	writeStatus(w, r, id, "revealed", h.Service.RevealPosition(r.Context(), id))
}
