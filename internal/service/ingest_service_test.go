package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tissuewatch/internal/domain"
	"tissuewatch/internal/repository"
)

type dispatchCall struct {
	dev        domain.Device
	rd         domain.Reading
	n          domain.Notification
	recipients []int64
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	fired chan struct{}
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{fired: make(chan struct{}, 16)}
}

func (d *fakeDispatcher) Dispatch(_ context.Context, dev domain.Device, rd domain.Reading, n domain.Notification, recipients []int64) {
	d.mu.Lock()
	d.calls = append(d.calls, dispatchCall{dev: dev, rd: rd, n: n, recipients: recipients})
	d.mu.Unlock()
	d.fired <- struct{}{}
}

func (d *fakeDispatcher) waitFired(t *testing.T) dispatchCall {
	t.Helper()
	select {
	case <-d.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch was never invoked")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[len(d.calls)-1]
}

func (d *fakeDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type ingestFixture struct {
	svc           *IngestService
	devices       *repository.MemoryDevicesRepo
	readings      *repository.MemoryReadingsRepo
	notifications *repository.MemoryNotificationsRepo
	users         *repository.MemoryUsersRepo
	dispatcher    *fakeDispatcher
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()
	devices := repository.NewMemoryDevicesRepo()
	f := &ingestFixture{
		devices:       devices,
		readings:      repository.NewMemoryReadingsRepo(devices),
		notifications: repository.NewMemoryNotificationsRepo(devices),
		users:         repository.NewMemoryUsersRepo(),
		dispatcher:    newFakeDispatcher(),
	}
	f.svc = NewIngestService(f.devices, f.readings, f.notifications, f.users, f.dispatcher, zap.NewNop())
	return f
}

func (f *ingestFixture) seedDevice(t *testing.T, owner *int64) *domain.Device {
	t.Helper()
	dev := &domain.Device{Name: "Dispenser 2F", FloorNumber: 2, RoomNumber: "201", AddedBy: owner}
	require.NoError(t, f.devices.Create(context.Background(), dev))
	return dev
}

func (f *ingestFixture) seedUser(t *testing.T, role string) int64 {
	t.Helper()
	u := &domain.User{Username: role + "-user", Email: role + "@example.com", Role: role}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func TestIngest_UnknownDevice(t *testing.T) {
	f := newIngestFixture(t)

	_, err := f.svc.Ingest(context.Background(), ReadingInput{DeviceID: 42, Alert: "LOW"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	readings, err := f.readings.ListAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, readings, "nothing should be stored for an unknown device")
	assert.Equal(t, 0, f.dispatcher.callCount())
}

func TestIngest_LowWithTamperEndToEnd(t *testing.T) {
	f := newIngestFixture(t)
	ownerID := f.seedUser(t, domain.RoleUser)
	adminID := f.seedUser(t, domain.RoleAdmin)
	dev := f.seedDevice(t, &ownerID)

	res, err := f.svc.Ingest(context.Background(), ReadingInput{
		DeviceID: dev.ID,
		Alert:    "LOW",
		Count:    3,
		ReferVal: 50,
		Tamper:   true, // bool wire form
	})
	require.NoError(t, err)

	require.NotNil(t, res.Notification)
	assert.Equal(t, domain.NotificationKindCritical, res.Notification.Kind)
	assert.Equal(t, domain.PriorityCritical, res.Notification.Priority)
	assert.Equal(t, "true", res.Reading.Tamper, "bool tamper must be coerced to the string literal")
	assert.NotZero(t, res.Notification.ID)

	call := f.dispatcher.waitFired(t)
	assert.Equal(t, res.Notification.ID, call.n.ID)
	assert.Equal(t, dev.ID, call.dev.ID)
	assert.ElementsMatch(t, []int64{ownerID, adminID}, call.recipients)

	stored, err := f.notifications.List(context.Background(), repository.AllOwners())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.False(t, stored[0].IsRead)
}

func TestIngest_TamperOnly(t *testing.T) {
	f := newIngestFixture(t)
	dev := f.seedDevice(t, nil)

	res, err := f.svc.Ingest(context.Background(), ReadingInput{
		DeviceID: dev.ID,
		Alert:    "HIGH",
		Tamper:   "TRUE", // uppercase string wire form
	})
	require.NoError(t, err)

	require.NotNil(t, res.Notification)
	assert.Equal(t, domain.NotificationKindTamper, res.Notification.Kind)
	assert.Equal(t, domain.PriorityTamper, res.Notification.Priority)

	call := f.dispatcher.waitFired(t)
	assert.Empty(t, call.recipients, "ownerless device with no admins has no recipients")
}

func TestIngest_NormalLevelsStoreWithoutNotifying(t *testing.T) {
	f := newIngestFixture(t)
	dev := f.seedDevice(t, nil)

	for _, level := range []string{"MEDIUM", "HIGH", ""} {
		res, err := f.svc.Ingest(context.Background(), ReadingInput{
			DeviceID: dev.ID,
			Alert:    level,
			Tamper:   "false",
		})
		require.NoError(t, err)
		assert.Nil(t, res.Notification, "level %q must not notify", level)
	}

	readings, err := f.readings.ListByDevice(context.Background(), dev.ID)
	require.NoError(t, err)
	assert.Len(t, readings, 3, "every reading is stored regardless of classification")
	assert.Equal(t, 0, f.dispatcher.callCount())
}

func TestIngest_LowThenHighOnlyFirstNotifies(t *testing.T) {
	f := newIngestFixture(t)
	dev := f.seedDevice(t, nil)

	low, err := f.svc.Ingest(context.Background(), ReadingInput{DeviceID: dev.ID, Alert: "LOW", Tamper: "false"})
	require.NoError(t, err)
	require.NotNil(t, low.Notification)
	assert.Equal(t, domain.NotificationKindLow, low.Notification.Kind)
	f.dispatcher.waitFired(t)

	high, err := f.svc.Ingest(context.Background(), ReadingInput{DeviceID: dev.ID, Alert: "HIGH", Tamper: "false"})
	require.NoError(t, err)
	assert.Nil(t, high.Notification, "refill back to HIGH is not an event")
}

func TestCoerceTamper(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{true, "true"},
		{false, "false"},
		{"true", "true"},
		{"True", "true"},
		{"TRUE", "true"},
		{"false", "false"},
		{"yes", "false"},
		{"", "false"},
		{nil, "false"},
		{float64(1), "false"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CoerceTamper(tc.in), "input %#v", tc.in)
	}
}
