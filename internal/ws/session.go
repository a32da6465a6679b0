package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn 会话所需的传输面（*websocket.Conn 满足；测试用桩实现）
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session 一条存活的订阅者连接。
// Lifecycle: Connecting → Open (after the handshake ack is sent) → Closed.
// Closed is terminal; Close is idempotent and unregisters exactly once.
type Session struct {
	recipientID  int64
	conn         Conn
	registry     *Registry
	writeTimeout time.Duration
	logger       *zap.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func NewSession(conn Conn, recipientID int64, registry *Registry, writeTimeout time.Duration, logger *zap.Logger) *Session {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Session{
		recipientID:  recipientID,
		conn:         conn,
		registry:     registry,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

func (s *Session) RecipientID() int64 { return s.recipientID }

// Open 发送握手确认并注册到订阅表。确认发送失败视为握手失败，不注册。
func (s *Session) Open() error {
	if err := s.writeJSON(controlFrame{Type: TypeConnection, Status: "connected"}); err != nil {
		s.Close()
		return fmt.Errorf("failed to send connection ack: %w", err)
	}
	s.registry.Register(s)
	return nil
}

// SendEnvelope 投递一条通知。Transport write failure is an implicit
// disconnect: the session closes itself and the error is returned to the
// dispatcher for logging only.
func (s *Session) SendEnvelope(env Envelope) error {
	if err := s.writeJSON(env); err != nil {
		s.logger.Warn("Live channel write failed, dropping connection",
			zap.Int64("recipient_id", s.recipientID),
			zap.Error(err),
		)
		s.Close()
		return err
	}
	return nil
}

func (s *Session) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// ReadLoop 处理入站控制帧直到连接断开。Inbound ping frames are answered
// synchronously; malformed frames are ignored, matching the lenient client
// contract.
func (s *Session) ReadLoop() {
	defer s.Close()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame controlFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Type == TypePing {
			if err := s.writeJSON(controlFrame{Type: TypePong}); err != nil {
				return
			}
		}
	}
}

// Close 注销并关闭传输。Safe to call from the read loop, the dispatcher and
// shutdown concurrently; duplicate close signals are expected.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.registry.Unregister(s)
		_ = s.conn.Close()
	})
}
