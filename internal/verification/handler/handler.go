package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"idproof/internal/platform/middleware"
	"idproof/internal/verification/models"
	"idproof/internal/verification/service"
	dErrors "idproof/pkg/domain-errors"
	"idproof/pkg/platform/httputil"
)

// VerificationService is the orchestrator surface the handler needs.
type VerificationService interface {
	Submit(ctx context.Context, req service.SubmitRequest) (service.SubmitResult, error)
	Get(ctx context.Context, verificationID string) (models.VerificationRecord, error)
}

// DeletionService is the deletion coordinator surface.
type DeletionService interface {
	Delete(ctx context.Context, verificationID string) (string, error)
}

// Handler wires verification endpoints to the orchestrator and the deletion
// coordinator.
type Handler struct {
	service VerificationService
	deleter DeletionService
	logger  *slog.Logger
}

// New constructs a verification handler with its dependencies.
func New(svc VerificationService, deleter DeletionService, logger *slog.Logger) *Handler {
	return &Handler{
		service: svc,
		deleter: deleter,
		logger:  logger,
	}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/compare-faces", h.HandleCompareFaces)
	r.Get("/compare-faces/{verificationID}", h.HandleGet)
	r.Delete("/compare-faces-delete", h.HandleDelete)
}

// HandleCompareFaces handles POST /compare-faces requests.
func (h *Handler) HandleCompareFaces(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[*CompareFacesRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Submit(ctx, service.SubmitRequest{
		Identity: req.IdentityBytes(),
		Selfie:   req.SelfieBytes(),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "verification submit failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification submitted",
		"request_id", requestID,
		"verification_id", result.VerificationID,
		"status", result.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromSubmitResult(result))
}

// HandleGet handles GET /compare-faces/{verificationID} status lookups.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	verificationID := chi.URLParam(r, "verificationID")
	if verificationID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "verificationId is required"))
		return
	}

	rec, err := h.service.Get(ctx, verificationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleDelete handles DELETE /compare-faces-delete requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	verificationID := r.URL.Query().Get("verificationId")
	if verificationID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "verificationId query parameter is required"))
		return
	}

	message, err := h.deleter.Delete(ctx, verificationID)
	if err != nil {
		if dErrors.CodeOf(err) != dErrors.CodeNotFound {
			h.logger.ErrorContext(ctx, "verification delete failed",
				"request_id", requestID,
				"verification_id", verificationID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, DeleteResponse{Message: message})
}
