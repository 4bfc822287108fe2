package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plateful/tenantcore/internal/domain"
	"github.com/plateful/tenantcore/internal/usecase"
)

// TenantHandler exposes the tenant registry REST surface.
type TenantHandler struct {
	register  *usecase.RegisterTenantUseCase
	lifecycle *usecase.TenantLifecycleUseCase
	logger    *slog.Logger
}

func NewTenantHandler(register *usecase.RegisterTenantUseCase, lifecycle *usecase.TenantLifecycleUseCase, logger *slog.Logger) *TenantHandler {
	return &TenantHandler{
		register:  register,
		lifecycle: lifecycle,
		logger:    logger.With("component", "tenant_handler"),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the domain error taxonomy onto HTTP status codes.
// Database failures surface as an opaque 500; detail stays in the logs.
func (h *TenantHandler) writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *domain.ValidationError
		dbErr         *domain.DatabaseError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Error()})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "a tenant with this contact email already exists"})
	case errors.Is(err, domain.ErrTenantNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "tenant not found"})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.As(err, &dbErr):
		h.logger.Error("database failure", "op", dbErr.Op, "error", dbErr.Err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	default:
		h.logger.Error("unhandled error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// Register handles POST /tenants. Public: new businesses have no token
// yet. The call returns only after the tenant schema is committed and
// the record is ACTIVE.
func (h *TenantHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req usecase.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	tenant, err := h.register.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tenant)
}

// Get handles GET /tenants/{tenantID}.
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid tenant id"})
		return
	}

	tenant, err := h.lifecycle.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tenant)
}

// Update handles PUT /tenants/{tenantID}.
func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid tenant id"})
		return
	}

	var patch usecase.UpdatePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	tenant, err := h.lifecycle.Update(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tenant)
}

// Deactivate handles DELETE /tenants/{tenantID}: a soft delete that
// keeps the schema. Idempotent.
func (h *TenantHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid tenant id"})
		return
	}

	if err := h.lifecycle.Deactivate(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "tenant deactivated"})
}

// Suspend handles POST /tenants/{tenantID}/suspend (operator only).
func (h *TenantHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.statusTransition(w, r, h.lifecycle.Suspend, "tenant suspended")
}

// Resume handles POST /tenants/{tenantID}/resume (operator only).
func (h *TenantHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.statusTransition(w, r, h.lifecycle.Resume, "tenant resumed")
}

func (h *TenantHandler) statusTransition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) error, msg string) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid tenant id"})
		return
	}

	if err := op(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// Purge handles DELETE /tenants/{tenantID}/purge (operator only): the
// hard delete that drops the tenant schema.
func (h *TenantHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid tenant id"})
		return
	}

	if err := h.lifecycle.Purge(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "tenant purged"})
}

// List handles GET /tenants (operator only).
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	status := domain.TenantStatus(r.URL.Query().Get("status"))

	result, err := h.lifecycle.List(r.Context(), page, limit, status)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Features handles GET /plans/{plan}/features: the source of truth for
// plan limits consumed by business services.
func (h *TenantHandler) Features(w http.ResponseWriter, r *http.Request) {
	plan := domain.SubscriptionPlan(chi.URLParam(r, "plan"))

	limits, err := h.lifecycle.FeaturesFor(plan)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, limits)
}
