package audithandler

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"openpay/internal/domain/audit"
	"openpay/internal/domain/auth"
	"openpay/internal/transport/http/api"
	"openpay/internal/transport/http/middleware"
	"openpay/internal/transport/http/shared"
)

const exportLimit = 10000

var eventPage = shared.PageLimits{Default: 100, Max: 500}

type Handler struct {
	Service *audit.Service
	Log     *logrus.Logger
}

func NewHandler(service *audit.Service, log *logrus.Logger) *Handler {
	return &Handler{Service: service, Log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAuditRead)).Get("/events", h.handleListEvents)
		r.With(middleware.RequirePermission(auth.PermAuditRead)).Get("/events/export", h.handleExportEvents)
	})
}

func filterFrom(r *http.Request) audit.Filter {
	q := r.URL.Query()
	return audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		ActorUser:  q.Get("actorUserId"),
	}
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePage(r, eventPage)
	includeDetails := r.URL.Query().Get("includeDetails") == "true"

	events, total, err := h.Service.List(r.Context(), filterFrom(r), includeDetails, page.Limit, page.Offset)
	if err != nil {
		h.Log.WithError(err).Error("audit list failed")
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", api.RequestIDFrom(r))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, events, api.RequestIDFrom(r))
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	events, _, err := h.Service.List(r.Context(), filterFrom(r), false, exportLimit, 0)
	if err != nil {
		h.Log.WithError(err).Error("audit export failed")
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", api.RequestIDFrom(r))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor_user_id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}); err != nil {
		h.Log.WithError(err).Warn("audit export header failed")
	}
	for _, evt := range events {
		row := []string{evt.ID, evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, evt.RequestID, evt.IP, evt.CreatedAt.UTC().Format(time.RFC3339)}
		if err := writer.Write(row); err != nil {
			h.Log.WithError(err).Warn("audit export row failed")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.Log.WithError(err).Warn("audit export flush failed")
	}
}
