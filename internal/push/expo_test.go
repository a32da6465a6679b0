package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSendPush_PostsExpoPayload(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"status":"ok"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zap.NewNop())
	err := c.SendPush(context.Background(), "ExponentPushToken[abc]",
		"🚨 CRITICAL Alert", "[Room 101, Floor 2] Low tissue AND tampering detected!",
		map[string]any{"device_id": int64(3), "notification_id": int64(11), "kind": "critical"})
	require.NoError(t, err)

	assert.Equal(t, "ExponentPushToken[abc]", got.To)
	assert.Equal(t, "default", got.Sound)
	assert.Equal(t, "🚨 CRITICAL Alert", got.Title)
	assert.Contains(t, got.Body, "Low tissue AND tampering")
	assert.Equal(t, "critical", got.Data["kind"])
}

func TestSendPush_HTTPErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zap.NewNop())
	err := c.SendPush(context.Background(), "tok", "t", "b", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSendPush_ExpoTicketErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"status":"error","message":"DeviceNotRegistered"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zap.NewNop())
	err := c.SendPush(context.Background(), "tok", "t", "b", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DeviceNotRegistered")
}

func TestSendPush_NoRetriesOnFailure(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zap.NewNop())
	require.Error(t, c.SendPush(context.Background(), "tok", "t", "b", nil))
	assert.Equal(t, 1, calls)
}
