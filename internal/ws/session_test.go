package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tissuewatch/internal/domain"
)

func TestSession_OpenSendsHandshakeAckAndRegisters(t *testing.T) {
	reg := NewRegistry()
	s, conn := newTestSession(t, reg, 7)

	require.NoError(t, s.Open())

	frames := conn.sentFrames()
	require.Len(t, frames, 1)
	var ack map[string]string
	require.NoError(t, json.Unmarshal(frames[0], &ack))
	assert.Equal(t, "connection", ack["type"])
	assert.Equal(t, "connected", ack["status"])

	assert.Equal(t, 1, reg.Count(7))
}

func TestSession_OpenAckFailureRefusesRegistration(t *testing.T) {
	reg := NewRegistry()
	s, conn := newTestSession(t, reg, 7)
	conn.writeErr = assert.AnError

	require.Error(t, s.Open())
	// No partial registration on handshake failure.
	assert.Equal(t, 0, reg.Count(7))
}

func TestSession_PingAnsweredWithPong(t *testing.T) {
	reg := NewRegistry()
	s, conn := newTestSession(t, reg, 7)
	require.NoError(t, s.Open())

	done := make(chan struct{})
	go func() {
		s.ReadLoop()
		close(done)
	}()

	conn.readCh <- []byte(`{"type":"ping"}`)
	conn.readCh <- []byte(`not json at all`) // ignored, does not kill the loop
	conn.readCh <- []byte(`{"type":"ping"}`)

	// Read loop exits on transport close.
	assert.Eventually(t, func() bool {
		return len(conn.sentFrames()) >= 3 // ack + 2 pongs
	}, time.Second, 5*time.Millisecond)

	s.Close()
	<-done

	frames := conn.sentFrames()
	var pongs int
	for _, f := range frames[1:] {
		var frame map[string]string
		require.NoError(t, json.Unmarshal(f, &frame))
		if frame["type"] == "pong" {
			pongs++
		}
	}
	assert.Equal(t, 2, pongs)
	assert.Equal(t, 0, reg.Count(7))
}

func TestSession_SendEnvelopeWriteFailureClosesSession(t *testing.T) {
	reg := NewRegistry()
	s, conn := newTestSession(t, reg, 7)
	require.NoError(t, s.Open())
	require.Equal(t, 1, reg.Count(7))

	conn.writeErr = assert.AnError
	err := s.SendEnvelope(Envelope{Type: TypeNotification, ID: 1})
	require.Error(t, err)

	// Write failure is an implicit disconnect: unregistered and closed.
	assert.Equal(t, 0, reg.Count(7))
	assert.True(t, conn.closed)
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	s, _ := newTestSession(t, reg, 7)
	require.NoError(t, s.Open())

	s.Close()
	s.Close()
	s.Close()
	assert.Equal(t, 0, reg.Count(7))
}

func TestSession_SendEnvelopeDeliversNotification(t *testing.T) {
	reg := NewRegistry()
	s, conn := newTestSession(t, reg, 7)
	require.NoError(t, s.Open())

	owner := int64(7)
	dev := domain.Device{ID: 3, RoomNumber: "101", FloorNumber: 2, AddedBy: &owner}
	rd := domain.Reading{DeviceID: 3, Alert: "LOW", Tamper: "true", Timestamp: time.Now()}
	n := domain.Notification{ID: 11, DeviceID: 3, Kind: "critical", Title: "🚨 CRITICAL Alert",
		Message: "m", Alert: "LOW", Tamper: "true", Priority: 100, CreatedAt: time.Now()}

	require.NoError(t, s.SendEnvelope(NewNotificationEnvelope(dev, rd, n)))

	frames := conn.sentFrames()
	require.Len(t, frames, 2)
	var env Envelope
	require.NoError(t, json.Unmarshal(frames[1], &env))
	assert.Equal(t, "notification", env.Type)
	assert.Equal(t, int64(11), env.ID)
	assert.Equal(t, int64(3), env.DeviceID)
	assert.Equal(t, "101", env.Room)
	assert.Equal(t, 2, env.Floor)
	assert.Equal(t, "critical", env.Kind)
	assert.Equal(t, 100, env.Priority)
	assert.False(t, env.IsRead)
}
