package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"p9e.in/energydesk/middleware"
	"p9e.in/energydesk/models"
	"p9e.in/energydesk/pkg/authz"
	"p9e.in/energydesk/pkg/records"
)

const maxBodyBytes = 1 << 20

// RecordService is the record lifecycle the handlers drive.
type RecordService interface {
	Authorize(id authz.Identity, action authz.Action) error
	List(ctx context.Context, id authz.Identity) ([]models.ClientRecord, error)
	Create(ctx context.Context, id authz.Identity, input map[string]any) (*models.ClientRecord, error)
	Update(ctx context.Context, id authz.Identity, recordID string, input map[string]any) error
	Delete(ctx context.Context, id authz.Identity, recordID string) error
}

// ClientRecordHandler serves the /client-records endpoints.
type ClientRecordHandler struct {
	service RecordService
	logger  *zap.Logger
}

func NewClientRecordHandler(service RecordService, logger *zap.Logger) *ClientRecordHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientRecordHandler{
		service: service,
		logger:  logger,
	}
}

// List handles GET /client-records
func (h *ClientRecordHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.List(r.Context(), middleware.GetIdentity(r))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, recs)
}

// Create handles POST /client-records
func (h *ClientRecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r)
	if err := h.service.Authorize(id, authz.ActionWrite); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	input, ok := h.decodeObject(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Create(r.Context(), id, input)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, rec)
}

// Update handles PUT /client-records/{id}
func (h *ClientRecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r)
	if err := h.service.Authorize(id, authz.ActionWrite); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	input, ok := h.decodeObject(w, r)
	if !ok {
		return
	}

	if err := h.service.Update(r.Context(), id, mux.Vars(r)["id"], input); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse{Success: true})
}

// Delete handles DELETE /client-records/{id}
func (h *ClientRecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.GetIdentity(r), mux.Vars(r)["id"]); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse{Success: true})
}

// decodeObject reads the body as a single JSON object. Anything else is a 400.
func (h *ClientRecordHandler) decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("failed to read request body", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var input map[string]any
	if err := dec.Decode(&input); err != nil || input == nil || dec.More() {
		h.logger.Warn("failed to decode client record payload", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return input, true
}

func (h *ClientRecordHandler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *records.ValidationError
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, authz.ErrForbidden):
		respondWithError(w, http.StatusForbidden, "Forbidden: Not an admin")
	case errors.As(err, &verr):
		respondWithJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Validation failed",
			Details: verr.Fields,
		})
	case errors.Is(err, records.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Record not found")
	default:
		h.logger.Error("client record operation failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
