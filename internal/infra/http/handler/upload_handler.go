package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/secboard/api/internal/app/ingest"
	"github.com/secboard/api/internal/infra/http/middleware"
	"github.com/secboard/api/pkg/apierror"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/logger"
)

// uploadFormField is the multipart field carrying the file.
const uploadFormField = "file"

// UploadHandler handles file uploads into the ingestion pipeline.
type UploadHandler struct {
	service *ingest.Service
	logger  *logger.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(service *ingest.Service, log *logger.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  log.With("handler", "upload"),
	}
}

// Upload handles POST /api/v1/uploads
// @Summary      Upload a security export
// @Description  Accepts a multipart file, routes it by filename and ingests its rows
// @Tags         Uploads
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Export file (CSV or PDF)"
// @Success      201   {object}  ingest.UploadResult
// @Failure      400   {object}  apierror.Error
// @Failure      403   {object}  apierror.Error
// @Failure      422   {object}  apierror.Error
// @Failure      503   {object}  apierror.Error
// @Security     BearerAuth
// @Router       /uploads [post]
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		apierror.BadRequest("Missing multipart field \"file\"").WriteJSON(w)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		apierror.BadRequest("Failed to read uploaded file").WriteJSON(w)
		return
	}

	if len(data) == 0 {
		apierror.EmptyFile(fmt.Errorf("uploaded file %q is empty", header.Filename)).WriteJSON(w)
		return
	}

	result, err := h.service.ProcessUpload(r.Context(), ingest.UploadInput{
		Filename: header.Filename,
		Data:     data,
		IsAdmin:  middleware.IsAdmin(r.Context()),
	})
	if err != nil {
		h.handleUploadError(w, header.Filename, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// handleUploadError maps pipeline errors onto the upload error taxonomy.
func (h *UploadHandler) handleUploadError(w http.ResponseWriter, filename string, err error) {
	switch {
	case shared.IsUnrecognizedFormat(err):
		apierror.UnknownFormat(err).WriteJSON(w)
	case shared.IsMalformedInput(err):
		apierror.ParseFailure(err).WriteJSON(w)
	case errors.Is(err, shared.ErrForbidden):
		apierror.Forbidden("This source requires administrator access").WriteJSON(w)
	case errors.Is(err, shared.ErrInvalidInput):
		apierror.BadRequest(err.Error()).WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(err.Error()).WriteJSON(w)
	default:
		// Anything past format detection and parsing is persistence
		// trouble; the upload can be retried once storage recovers.
		h.logger.WithError(err).Error("upload processing failed", "filename", filename)
		apierror.StorageFailure(err).WriteJSON(w)
	}
}
