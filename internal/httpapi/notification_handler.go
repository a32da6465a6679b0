package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"tissuewatch/internal/service"
)

// NotificationHandler 通知查询与维护（全部需要认证）
type NotificationHandler struct {
	notifications *service.NotificationService
	logger        *zap.Logger
}

func NewNotificationHandler(notifications *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// List 按 priority DESC, created_at DESC 返回调用者范围内的通知
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	items, err := h.notifications.List(r.Context(), caller.UserID, caller.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

// MarkRead 标记单条已读
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, rawID string) {
	caller, _ := CallerFrom(r.Context())
	id, err := parseID(rawID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid notification id"))
		return
	}
	n, err := h.notifications.MarkRead(r.Context(), id, caller.UserID, caller.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(n))
}

// Delete 删除单条
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request, rawID string) {
	caller, _ := CallerFrom(r.Context())
	id, err := parseID(rawID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid notification id"))
		return
	}
	if err := h.notifications.Delete(r.Context(), id, caller.UserID, caller.Role); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("deleted"))
}

// ClearAll 清空范围内全部通知，返回删除数量
func (h *NotificationHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	deleted, err := h.notifications.ClearAll(r.Context(), caller.UserID, caller.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]int64{"deleted": deleted}))
}

// UnreadCount 未读数量（客户端角标轮询）
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	count, err := h.notifications.UnreadCount(r.Context(), caller.UserID, caller.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]int64{"unread": count}))
}

// RegisterPushToken 绑定 Expo 推送令牌
func (h *NotificationHandler) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	var req struct {
		Token string `json:"token"`
	}
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if err := h.notifications.RegisterPushToken(r.Context(), caller.UserID, req.Token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("token registered"))
}
