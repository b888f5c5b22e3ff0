package payrollhandler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"openpay/internal/domain/payroll"
	"openpay/internal/transport/http/api"
	"openpay/internal/transport/http/shared"
)

type addressPayload struct {
	StreetNumber string `json:"streetNumber" validate:"max=20"`
	StreetName   string `json:"streetName" validate:"max=120"`
	City         string `json:"city" validate:"max=80"`
	State        string `json:"state" validate:"max=40"`
	ZIP          string `json:"zip" validate:"max=20"`
	AptBuilding  string `json:"aptBuilding" validate:"max=40"`
	AptRoom      string `json:"aptRoom" validate:"max=40"`
	POBox        string `json:"poBox" validate:"max=40"`
}

type contactPayload struct {
	PrimaryEmail   string `json:"primaryEmail" validate:"omitempty,email"`
	SecondaryEmail string `json:"secondaryEmail" validate:"omitempty,email"`
	HomePhone      string `json:"homePhone" validate:"max=30"`
	CellPhone      string `json:"cellPhone" validate:"max=30"`
	WorkPhone      string `json:"workPhone" validate:"max=30"`
}

type employeePayload struct {
	Prefix                    string           `json:"prefix" validate:"max=20"`
	FirstName                 string           `json:"firstName" validate:"required,max=80"`
	MiddleName                string           `json:"middleName" validate:"max=80"`
	LastName                  string           `json:"lastName" validate:"required,max=80"`
	Suffix                    string           `json:"suffix" validate:"max=20"`
	PositionID                *string          `json:"positionId"`
	Gender                    string           `json:"gender" validate:"max=20"`
	MaritalStatus             string           `json:"maritalStatus" validate:"max=20"`
	Birthdate                 string           `json:"birthdate"`
	Address                   addressPayload   `json:"address"`
	Contact                   contactPayload   `json:"contact"`
	Salary                    *decimal.Decimal `json:"salary"`
	HourlyRate                *decimal.Decimal `json:"hourlyRate"`
	HousingAllowance          *decimal.Decimal `json:"housingAllowance"`
	HSA                       *decimal.Decimal `json:"hsa"`
	FederalWithholding        *decimal.Decimal `json:"federalWithholding"`
	SelfEmploymentWithholding *decimal.Decimal `json:"selfEmploymentWithholding"`
	PayInterval               string           `json:"payInterval" validate:"max=20"`
	SelfEmployed              bool             `json:"selfEmployed"`
	UsePositionDefaults       bool             `json:"usePositionDefaults"`
}

func (p employeePayload) toEmployee(id string) (payroll.Employee, error) {
	employee := payroll.Employee{
		ID:            id,
		Prefix:        strings.TrimSpace(p.Prefix),
		FirstName:     p.FirstName,
		MiddleName:    strings.TrimSpace(p.MiddleName),
		LastName:      p.LastName,
		Suffix:        strings.TrimSpace(p.Suffix),
		PositionID:    p.PositionID,
		Gender:        p.Gender,
		MaritalStatus: p.MaritalStatus,
		Address:       payroll.Address(p.Address),
		Contact:       payroll.Contact(p.Contact),
		Profile: payroll.Profile{
			Salary:                    orZero(p.Salary),
			HourlyRate:                orZero(p.HourlyRate),
			HousingAllowance:          orZero(p.HousingAllowance),
			HSA:                       orZero(p.HSA),
			FederalWithholding:        orZero(p.FederalWithholding),
			SelfEmploymentWithholding: orZero(p.SelfEmploymentWithholding),
			PayInterval:               payroll.PayInterval(p.PayInterval),
			SelfEmployed:              p.SelfEmployed,
		},
	}
	if p.Birthdate != "" {
		birthdate, err := parseDate("birthdate", p.Birthdate)
		if err != nil {
			return payroll.Employee{}, err
		}
		employee.Birthdate = &birthdate
	}
	return employee, nil
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	hidden, err := shared.ParseHidden(r)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	employees, err := h.Service.ListEmployees(r.Context(), hidden)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	if employees == nil {
		employees = []payroll.Employee{}
	}
	api.Success(w, employees, api.RequestIDFrom(r))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	employee, err := h.Service.GetEmployee(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	api.Success(w, employee, api.RequestIDFrom(r))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var payload employeePayload
	if !shared.Decode(w, r, &payload) {
		return
	}
	employee, err := payload.toEmployee("")
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	created, err := h.Service.CreateEmployee(r.Context(), employee, payload.UsePositionDefaults)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	api.Created(w, created, api.RequestIDFrom(r))
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var payload employeePayload
	if !shared.Decode(w, r, &payload) {
		return
	}
	employee, err := payload.toEmployee(chi.URLParam(r, "employeeID"))
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	updated, err := h.Service.UpdateEmployee(r.Context(), employee)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	api.Success(w, updated, api.RequestIDFrom(r))
}

func (h *Handler) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "employeeID")
	writeStatus(w, r, id, "deleted", h.Service.DeleteEmployee(r.Context(), id))
}

func (h *Handler) handleHideEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "employeeID")
	writeStatus(w, r, id, "hidden", h.Service.HideEmployee(r.Context(), id))
}

func (h *Handler) handleRevealEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "employeeID")
	writeStatus(w, r, id, "revealed", h.Service.RevealEmployee(r.Context(), id))
}

type assignPayload struct {
	PositionID string `json:"positionId" validate:"required"`
}

func (h *Handler) handleAssignPosition(w http.ResponseWriter, r *http.Request) {
	var payload assignPayload
	if !shared.Decode(w, r, &payload) {
		return
	}
	employee, err := h.Service.AssignPosition(r.Context(), chi.URLParam(r, "employeeID"), payload.PositionID)
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	api.Success(w, employee, api.RequestIDFrom(r))
}

func (h *Handler) handleListEmployeePayments(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	if _, err := h.Service.GetEmployee(r.Context(), employeeID); err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	h.listPayments(w, r, employeeID)
}
