package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/rohits-web03/radiologix/internal/api/middleware"
	"github.com/rohits-web03/radiologix/internal/common"
	"github.com/rohits-web03/radiologix/internal/models"
	"github.com/rohits-web03/radiologix/internal/scans"
	"github.com/rohits-web03/radiologix/internal/utils"
)

type ScanService interface {
	Create(ctx context.Context, ownerID, scanType, imageData string) (*models.ScanReport, error)
	List(ctx context.Context, ownerID string) ([]models.ScanReport, error)
	Get(ctx context.Context, ownerID, id string) (*models.ScanReport, error)
}

type ScanHandler struct {
	scans     ScanService
	maxUpload int64
	log       *slog.Logger
}

func NewScanHandler(svc ScanService, maxUpload int64, log *slog.Logger) *ScanHandler {
	return &ScanHandler{scans: svc, maxUpload: maxUpload, log: log}
}

var errUnsupportedForm = errors.New("unsupported content type")

// Create godoc
// @Summary Upload a scan
// @Description Accepts either image_data (base64 or a base64 data URL) or an image file part.
// @Tags Scans
// @Accept multipart/form-data
// @Accept x-www-form-urlencoded
// @Produce json
// @Security BearerAuth
// @Param scan_type formData string true "Scan type, e.g. X-Ray, CT, MRI"
// @Param image_data formData string false "Base64 image or data URL"
// @Param image formData file false "Image file"
// @Success 201 {object} utils.Payload{data=models.ScanReport}
// @Failure 400 {object} utils.Payload
// @Failure 401 {object} utils.Payload
// @Failure 413 {object} utils.Payload
// @Failure 415 {object} utils.Payload
// @Router /scans [post]
func (h *ScanHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.Unauthorized(w)
		return
	}

	if r.ContentLength > h.maxUpload {
		h.tooLarge(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	scanType, imageData, err := h.readForm(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			h.tooLarge(w)
		case errors.Is(err, errUnsupportedForm):
			utils.JSONResponse(w, http.StatusUnsupportedMediaType, utils.Payload{
				Success: false,
				Message: "Expected multipart/form-data or application/x-www-form-urlencoded",
			})
		default:
			badRequest(w, "Invalid scan upload form")
		}
		return
	}

	report, err := h.scans.Create(r.Context(), identity.ID, scanType, imageData)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			badRequest(w, validationMessage(err))
			return
		}
		h.log.Error("create scan", "user_id", identity.ID, "err", err)
		internalError(w)
		return
	}

	h.log.Info("scan created", "user_id", identity.ID, "scan_id", report.ID, "scan_type", report.ScanType)
	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Scan uploaded successfully",
		Data:    report,
	})
}

// List godoc
// @Summary List the caller's scans, newest first
// @Tags Scans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.Payload{data=[]models.ScanReport}
// @Failure 401 {object} utils.Payload
// @Router /scans [get]
func (h *ScanHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.Unauthorized(w)
		return
	}

	reports, err := h.scans.List(r.Context(), identity.ID)
	if err != nil {
		h.log.Error("list scans", "user_id", identity.ID, "err", err)
		internalError(w)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Scans retrieved successfully",
		Data:    reports,
	})
}

// Get godoc
// @Summary Get one of the caller's scans
// @Tags Scans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Scan id"
// @Success 200 {object} utils.Payload{data=models.ScanReport}
// @Failure 401 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /scans/{id} [get]
func (h *ScanHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.Unauthorized(w)
		return
	}

	report, err := h.scans.Get(r.Context(), identity.ID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
				Success: false,
				Message: "Scan not found",
			})
			return
		}
		h.log.Error("get scan", "user_id", identity.ID, "err", err)
		internalError(w)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Scan retrieved successfully",
		Data:    report,
	})
}

func (h *ScanHandler) tooLarge(w http.ResponseWriter) {
	utils.JSONResponse(w, http.StatusRequestEntityTooLarge, utils.Payload{
		Success: false,
		Message: fmt.Sprintf("Upload exceeds %d bytes", h.maxUpload),
	})
}

// readForm returns the scan type and the image as a string. A file part is
// converted to a base64 data URL.
func (h *ScanHandler) readForm(r *http.Request) (string, string, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return "", "", errUnsupportedForm
	}

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			return "", "", err
		}
		defer r.MultipartForm.RemoveAll()
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return "", "", err
		}
	default:
		return "", "", errUnsupportedForm
	}

	scanType := r.PostFormValue("scan_type")
	imageData := r.PostFormValue("image_data")
	if imageData != "" || r.MultipartForm == nil {
		return scanType, imageData, nil
	}

	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		return scanType, "", nil
	}

	src, err := files[0].Open()
	if err != nil {
		return "", "", err
	}
	defer src.Close()

	raw, err := io.ReadAll(src)
	if err != nil {
		return "", "", err
	}
	if len(raw) == 0 {
		return scanType, "", nil
	}

	contentType := files[0].Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(raw)
	}
	return scanType, scans.EncodeDataURL(contentType, raw), nil
}
