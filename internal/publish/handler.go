package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/auth"
	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/messaging"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// AddMessage serves POST /batch/messages
func (h *Handler) AddMessage(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req PublishMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	status, err := h.service.Publish(r.Context(), req)
	if err != nil {
		h.handleError(w, "publish_failed", err)
		return
	}

	log.Printf("User %s queued message for %s", principal.UserID, req.RoutingKey)
	respondJSON(w, http.StatusAccepted, BatchResponse{
		Success: true,
		Message: "Message added to batch",
		Batch:   status,
	})
}

// GetBatch serves GET /batch
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.FromContext(r.Context()); !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	status, err := h.service.Status(r.Context())
	if err != nil {
		h.handleError(w, "fetch_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, BatchResponse{Success: true, Message: "Batch status", Batch: status})
}

// FlushBatch serves POST /batch/flush
func (h *Handler) FlushBatch(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.FromContext(r.Context()); !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	summary, err := h.service.Flush(r.Context())
	if err != nil {
		h.handleError(w, "flush_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, FlushResponse{
		Success: true,
		Message: fmt.Sprintf("Flushed %d messages", summary.Messages),
		Flush:   summary,
	})
}

// ResetBatch serves DELETE /batch
func (h *Handler) ResetBatch(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	discarded, err := h.service.Reset(r.Context())
	if err != nil {
		h.handleError(w, "reset_failed", err)
		return
	}

	log.Printf("User %s reset the publish batch (%d discarded)", principal.UserID, discarded)
	respondJSON(w, http.StatusOK, ResetResponse{
		Success:   true,
		Message:   "Batch reset",
		Discarded: discarded,
	})
}

func (h *Handler) handleError(w http.ResponseWriter, code string, err error) {
	switch {
	case errors.Is(err, ErrMissingPayload),
		errors.Is(err, ErrMissingRoutingKey),
		errors.Is(err, ErrRoutingKeyTooLong),
		errors.Is(err, messaging.ErrNilMessage):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, messaging.ErrUninitialized), errors.Is(err, messaging.ErrClosed):
		respondError(w, http.StatusServiceUnavailable, "broker_unavailable", err.Error())
	case errors.Is(err, messaging.ErrNacked):
		respondError(w, http.StatusBadGateway, code, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, code, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, errorCode, message string) {
	respondJSON(w, status, ErrorResponse{Error: errorCode, Message: message})
}
