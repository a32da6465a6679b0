package ws

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// stubConn 测试用传输桩：记录写帧，可注入写失败
type stubConn struct {
	mu       sync.Mutex
	frames   [][]byte
	writeErr error
	closed   bool
	readCh   chan []byte
}

func newStubConn() *stubConn {
	return &stubConn{readCh: make(chan []byte, 8)}
}

func (c *stubConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.frames = append(c.frames, buf)
	return nil
}

func (c *stubConn) ReadMessage() (int, []byte, error) {
	data, ok := <-c.readCh
	if !ok {
		return 0, nil, assert.AnError
	}
	return 1, data, nil
}

func (c *stubConn) SetWriteDeadline(time.Time) error { return nil }

func (c *stubConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.readCh)
	}
	return nil
}

func (c *stubConn) sentFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

func newTestSession(t *testing.T, reg *Registry, recipientID int64) (*Session, *stubConn) {
	t.Helper()
	conn := newStubConn()
	return NewSession(conn, recipientID, reg, time.Second, zap.NewNop()), conn
}

func TestRegistry_RegisterAndSnapshot(t *testing.T) {
	reg := NewRegistry()
	s1, _ := newTestSession(t, reg, 1)
	s2, _ := newTestSession(t, reg, 1)
	s3, _ := newTestSession(t, reg, 2)

	reg.Register(s1)
	reg.Register(s2)
	reg.Register(s3)

	assert.Len(t, reg.ConnectionsFor(1), 2)
	assert.Len(t, reg.ConnectionsFor(2), 1)
	assert.Empty(t, reg.ConnectionsFor(3))
}

func TestRegistry_UnregisterTwiceIsNoop(t *testing.T) {
	reg := NewRegistry()
	s1, _ := newTestSession(t, reg, 1)
	s2, _ := newTestSession(t, reg, 1)
	reg.Register(s1)
	reg.Register(s2)

	reg.Unregister(s1)
	assert.Len(t, reg.ConnectionsFor(1), 1)

	// Second unregister: no error, no effect on the surviving connection.
	reg.Unregister(s1)
	assert.Len(t, reg.ConnectionsFor(1), 1)
	assert.Equal(t, s2, reg.ConnectionsFor(1)[0])
}

func TestRegistry_SnapshotIsolatedFromMutation(t *testing.T) {
	reg := NewRegistry()
	s1, _ := newTestSession(t, reg, 1)
	s2, _ := newTestSession(t, reg, 1)
	reg.Register(s1)
	reg.Register(s2)

	snapshot := reg.ConnectionsFor(1)
	reg.Unregister(s1)
	reg.Unregister(s2)

	// The snapshot taken before the disconnects is still fully iterable.
	assert.Len(t, snapshot, 2)
	assert.Equal(t, 0, reg.Count(1))
}

func TestRegistry_ConcurrentRegisterUnregister(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(recipient int64) {
			defer wg.Done()
			s, _ := newTestSession(t, reg, recipient)
			reg.Register(s)
			_ = reg.ConnectionsFor(recipient)
			reg.Unregister(s)
			reg.Unregister(s)
		}(int64(i % 5))
	}
	wg.Wait()

	for r := int64(0); r < 5; r++ {
		assert.Equal(t, 0, reg.Count(r))
	}
}
