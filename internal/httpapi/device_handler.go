package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"tissuewatch/internal/service"
)

// DeviceHandler 设备管理
type DeviceHandler struct {
	devices *service.DeviceService
	logger  *zap.Logger
}

func NewDeviceHandler(devices *service.DeviceService, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{devices: devices, logger: logger}
}

// AddDevice 手动建档（管理员）
func (h *DeviceHandler) AddDevice(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())

	var req service.DeviceInput
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	dev, err := h.devices.Add(r.Context(), req, caller.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(dev))
}

// ListDevices 分页列表
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	page := parseIntQuery(r, "page", 1)
	size := parseIntQuery(r, "size", 20)

	devices, total, err := h.devices.List(r.Context(), page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": devices,
		"total": total,
		"page":  page,
		"size":  size,
	}))
}

// GetDevice 单台详情
func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := parseID(rawID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid device id"))
		return
	}
	dev, err := h.devices.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(dev))
}

// UpdateDevice 部分更新（空字段不动）
func (h *DeviceHandler) UpdateDevice(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := parseID(rawID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid device id"))
		return
	}
	var req service.DeviceInput
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	dev, err := h.devices.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(dev))
}

// DeleteDevice 删除（管理员）
func (h *DeviceHandler) DeleteDevice(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := parseID(rawID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid device id"))
		return
	}
	if err := h.devices.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("deleted"))
}

// RegisterWiFi 固件自注册（无认证：设备出厂不带凭证）
func (h *DeviceHandler) RegisterWiFi(w http.ResponseWriter, r *http.Request) {
	var req service.WiFiRegistration
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	dev, created, err := h.devices.RegisterViaWiFi(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, Ok(dev))
}

// trimDevicePath 提取 /device/api/v1/devices/{id} 中的 id
func trimDevicePath(path string) string {
	return strings.TrimPrefix(path, "/device/api/v1/devices/")
}
