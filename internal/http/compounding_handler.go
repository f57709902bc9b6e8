package httpapi

import (
	"errors"
	"mime"
	"net/http"

	"github.com/caramaschiHG/Dilutio/internal/models"
	"github.com/caramaschiHG/Dilutio/internal/report"
	"github.com/caramaschiHG/Dilutio/internal/service"

	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CompoundingHandler 复方计算 Handler
type CompoundingHandler struct {
	svc    service.CompoundingService
	logger *zap.Logger
}

// NewCompoundingHandler 创建 CompoundingHandler
func NewCompoundingHandler(svc service.CompoundingService, logger *zap.Logger) *CompoundingHandler {
	return &CompoundingHandler{svc: svc, logger: logger}
}

// ComputeBase POST /dilutio/api/v1/base/compute
func (h *CompoundingHandler) ComputeBase(w http.ResponseWriter, r *http.Request) {
	var req models.BaseRequest
	if !h.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.svc.ComputeBase(r.Context(), req)))
}

// ComputeFractions POST /dilutio/api/v1/fractions/compute
func (h *CompoundingHandler) ComputeFractions(w http.ResponseWriter, r *http.Request) {
	var req models.FractionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.svc.ComputeFractions(r.Context(), req)))
}

// ComputeBatch POST /dilutio/api/v1/batch/compute
func (h *CompoundingHandler) ComputeBatch(w http.ResponseWriter, r *http.Request) {
	var req models.BatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	batch, err := h.svc.ComputeBatch(r.Context(), req)
	if err != nil {
		h.logger.Error("Failed to compute batch", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to compute batch"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(batch))
}

// GeneratePOP POST /dilutio/api/v1/batch/pop
// 成功时直接返回 xlsx 附件，失败时返回 JSON 信封
func (h *CompoundingHandler) GeneratePOP(w http.ResponseWriter, r *http.Request) {
	var req models.POPRequest
	if !h.decode(w, r, &req) {
		return
	}

	file, err := h.svc.GeneratePOP(r.Context(), req)
	if err != nil {
		switch {
		case service.IsPreconditionError(err):
			writeJSON(w, http.StatusUnprocessableEntity, Fail(err.Error()))
		case errors.Is(err, report.ErrUnknownDocumentType):
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		default:
			h.logger.Error("Failed to generate POP", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Fail("failed to generate POP"))
		}
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.FileName}))
	w.Header().Set("X-Batch-Number", file.BatchNumber)
	w.WriteHeader(http.StatusOK)
	w.Write(file.Content)
}

// ExtractTypes GET /dilutio/api/v1/extract-types
func (h *CompoundingHandler) ExtractTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.svc.ExtractTypes(r.Context())))
}

func (h *CompoundingHandler) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	err := readBodyJSON(w, r, maxBodyBytes, out)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, Fail("request body too large"))
		return false
	}
	writeJSON(w, http.StatusBadRequest, Fail("invalid json body"))
	return false
}
