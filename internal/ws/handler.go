package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// CredentialResolver 把握手时的 bearer 凭证解析为 recipient id。
// The transport is a long-lived connection without per-frame headers, so the
// credential travels in the `token` query parameter.
type CredentialResolver interface {
	ResolveRecipient(token string) (int64, error)
}

// Handler websocket 升级入口（GET /ws/notifications?token=...）
type Handler struct {
	registry     *Registry
	auth         CredentialResolver
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	logger       *zap.Logger
}

func NewHandler(registry *Registry, auth CredentialResolver, writeTimeout time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		registry:     registry,
		auth:         auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 移动端/平板与后端不同源；鉴权靠 token，不靠 Origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	recipientID, err := h.auth.ResolveRecipient(token)
	if err != nil {
		// Refused before upgrade: no session, no registration, no leak.
		h.logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已经写了响应
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	session := NewSession(conn, recipientID, h.registry, h.writeTimeout, h.logger)
	if err := session.Open(); err != nil {
		h.logger.Warn("WebSocket handshake ack failed",
			zap.Int64("recipient_id", recipientID),
			zap.Error(err),
		)
		return
	}

	h.logger.Info("WebSocket connected",
		zap.Int64("recipient_id", recipientID),
		zap.Int("connections", h.registry.Count(recipientID)),
	)

	go session.ReadLoop()
}
