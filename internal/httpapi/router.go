package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（ws 升级入口用）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAuthRoutes 注册/登录/密码重置
func (r *Router) RegisterAuthRoutes(h *AuthHandler, mw *AuthMiddleware) {
	r.Handle("/auth/api/v1/register", postOnly(h.Register))
	r.Handle("/auth/api/v1/login", postOnly(h.Login))
	r.Handle("/auth/api/v1/me", mw.Require(getOnly(h.Me)))
	r.Handle("/auth/api/v1/forgot-password/send-code", postOnly(h.SendResetCode))
	r.Handle("/auth/api/v1/forgot-password/verify-code", postOnly(h.VerifyResetCode))
	r.Handle("/auth/api/v1/forgot-password/reset", postOnly(h.ResetPassword))
}

// RegisterDeviceRoutes 设备建档、WiFi 自注册
func (r *Router) RegisterDeviceRoutes(h *DeviceHandler, mw *AuthMiddleware) {
	r.Handle("/device/api/v1/devices", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			mw.Require(h.ListDevices)(w, req)
		case http.MethodPost:
			mw.RequireAdmin(h.AddDevice)(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// devices/{id}
	r.Handle("/device/api/v1/devices/", func(w http.ResponseWriter, req *http.Request) {
		id := trimDevicePath(req.URL.Path)
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch req.Method {
		case http.MethodGet:
			mw.Require(func(w http.ResponseWriter, req *http.Request) { h.GetDevice(w, req, id) })(w, req)
		case http.MethodPut:
			mw.Require(func(w http.ResponseWriter, req *http.Request) { h.UpdateDevice(w, req, id) })(w, req)
		case http.MethodDelete:
			mw.RequireAdmin(func(w http.ResponseWriter, req *http.Request) { h.DeleteDevice(w, req, id) })(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// 固件自注册，无认证
	r.Handle("/device/api/v1/register", postOnly(h.RegisterWiFi))
}

// RegisterDataRoutes 读数上报与查询
func (r *Router) RegisterDataRoutes(h *DataHandler, mw *AuthMiddleware) {
	r.Handle("/data/api/v1/readings", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			// 设备上报入口，无认证
			h.Ingest(w, req)
		case http.MethodGet:
			mw.Require(h.ListReadings)(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// devices/{id}/readings
	r.Handle("/data/api/v1/devices/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/data/api/v1/devices/")
		id, ok := strings.CutSuffix(rest, "/readings")
		if !ok || id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		mw.Require(func(w http.ResponseWriter, req *http.Request) { h.ListDeviceReadings(w, req, id) })(w, req)
	})

	r.Handle("/data/api/v1/analytics", mw.Require(getOnly(h.Analytics)))
	r.Handle("/data/api/v1/export", mw.Require(getOnly(h.Export)))
}

// RegisterNotificationRoutes 通知查询维护与推送令牌
func (r *Router) RegisterNotificationRoutes(h *NotificationHandler, mw *AuthMiddleware) {
	r.Handle("/notify/api/v1/notifications", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			mw.Require(h.List)(w, req)
		case http.MethodDelete:
			mw.Require(h.ClearAll)(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	r.Handle("/notify/api/v1/notifications/unread-count", mw.Require(getOnly(h.UnreadCount)))
	r.Handle("/notify/api/v1/push-token", mw.Require(postOnly(h.RegisterPushToken)))

	// notifications/{id} 和 notifications/{id}/read
	r.Handle("/notify/api/v1/notifications/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/notify/api/v1/notifications/")
		if id, ok := strings.CutSuffix(rest, "/read"); ok {
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			mw.Require(func(w http.ResponseWriter, req *http.Request) { h.MarkRead(w, req, id) })(w, req)
			return
		}
		if rest == "" || strings.Contains(rest, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mw.Require(func(w http.ResponseWriter, req *http.Request) { h.Delete(w, req, rest) })(w, req)
	})
}

// RegisterWebSocketRoutes 实时通知通道
func (r *Router) RegisterWebSocketRoutes(h http.Handler) {
	r.HandleHandler("/ws/notifications", h)
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return methodOnly(http.MethodGet, h)
}

func postOnly(h http.HandlerFunc) http.HandlerFunc {
	return methodOnly(http.MethodPost, h)
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}
