package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"tissuewatch/internal/service"
)

// DataHandler 读数接入与查询
type DataHandler struct {
	ingest   *service.IngestService
	readings *service.ReadingService
	logger   *zap.Logger
}

func NewDataHandler(ingest *service.IngestService, readings *service.ReadingService, logger *zap.Logger) *DataHandler {
	return &DataHandler{ingest: ingest, readings: readings, logger: logger}
}

// Ingest 设备上报端点（无认证：与固件约定的公共入口）
// Body: {device_id, alert, count, reference_value, tamper string|bool}
func (h *DataHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req service.ReadingInput
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if req.DeviceID == 0 {
		writeJSON(w, http.StatusBadRequest, Fail("device_id is required"))
		return
	}

	res, err := h.ingest.Ingest(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(res))
}

// ListReadings 最近读数（?limit=）
func (h *DataHandler) ListReadings(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 0)
	readings, err := h.readings.ListAll(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(readings))
}

// ListDeviceReadings 单台设备读数
func (h *DataHandler) ListDeviceReadings(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := parseID(rawID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid device id"))
		return
	}
	readings, err := h.readings.ListByDevice(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(readings))
}

// Analytics 按设备聚合统计
func (h *DataHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.readings.Analytics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

// Export 下载 XLSX 报表
func (h *DataHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.readings.ExportXLSX(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	filename := "tissuewatch-readings-" + time.Now().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
