package authhandler

import (
	"errors"
	"net/http"

	"openpay/internal/domain/auth"
	"openpay/internal/requestctx"
	"openpay/internal/transport/http/api"
	"openpay/internal/transport/http/shared"
)

type Handler struct {
	Service *auth.Service
}

func NewHandler(service *auth.Service) *Handler {
	return &Handler{Service: service}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if !shared.Decode(w, r, &payload) {
		return
	}

	session, err := h.Service.Login(r.Context(), payload.Email, payload.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", api.RequestIDFrom(r))
		return
	}
	if err != nil {
		api.FailError(w, err, api.RequestIDFrom(r))
		return
	}
	api.Success(w, session, api.RequestIDFrom(r))
}

type meResponse struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestctx.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", api.RequestIDFrom(r))
		return
	}
	permissions := auth.RolePermissions[actor.Role]
	if permissions == nil {
		permissions = []string{}
	}
	api.Success(w, meResponse{UserID: actor.UserID, Email: actor.Email, Role: actor.Role, Permissions: permissions}, api.RequestIDFrom(r))
}
