// ABOUTME: Tests for the append-only device event log
// ABOUTME: Covers id/timestamp generation, detail round trips, and filtering

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendDeviceEventGeneratesIDAndTimestamp(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	e := &DeviceEvent{
		DeviceUUID: "dev-1",
		Type:       EventRegisterRequested,
		Detail:     map[string]any{"name": "lobby-kiosk"},
	}
	require.NoError(t, st.AppendDeviceEvent(ctx, e))
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())

	events, err := st.ListDeviceEvents(ctx, EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, e.ID, events[0].ID)
	assert.Equal(t, "dev-1", events[0].DeviceUUID)
	assert.Equal(t, "lobby-kiosk", events[0].Detail["name"])
	assert.Nil(t, events[0].DeviceID)
	assert.Nil(t, events[0].ActorID)
}

func TestListDeviceEventsFiltering(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	deviceID := int64(1)
	actorID := int64(7)
	for i, typ := range []EventType{EventRegisterRequested, EventApproved, EventCredentialIssued} {
		e := &DeviceEvent{
			DeviceUUID: "dev-1",
			Type:       typ,
			Timestamp:  time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if typ != EventRegisterRequested {
			e.DeviceID = &deviceID
			e.ActorID = &actorID
		}
		require.NoError(t, st.AppendDeviceEvent(ctx, e))
	}
	require.NoError(t, st.AppendDeviceEvent(ctx, &DeviceEvent{DeviceUUID: "dev-2", Type: EventRegisterRequested}))

	// By device id.
	events, err := st.ListDeviceEvents(ctx, EventFilter{DeviceID: &deviceID})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	// By type.
	typ := EventRegisterRequested
	events, err = st.ListDeviceEvents(ctx, EventFilter{Type: &typ})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	// Newest first.
	events, err = st.ListDeviceEvents(ctx, EventFilter{DeviceID: &deviceID})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventCredentialIssued, events[0].Type)

	// Limit.
	events, err = st.ListDeviceEvents(ctx, EventFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestListDeviceEventsSince(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, st.AppendDeviceEvent(ctx, &DeviceEvent{DeviceUUID: "dev-1", Type: EventRegisterRequested, Timestamp: old}))
	require.NoError(t, st.AppendDeviceEvent(ctx, &DeviceEvent{DeviceUUID: "dev-1", Type: EventApproved}))

	since := time.Now().UTC().Add(-time.Hour)
	events, err := st.ListDeviceEvents(ctx, EventFilter{Since: &since})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventApproved, events[0].Type)
}

func TestListDeviceEventsEmpty(t *testing.T) {
	st := setupTestStore(t)

	events, err := st.ListDeviceEvents(context.Background(), EventFilter{})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}
