// ABOUTME: Tests for administrative device management
// ABOUTME: Covers approval, rejection/revocation branching, token reset, assignments

package admin

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kioskgate/kioskgate/internal/store"
)

const actorID = int64(1)

func setupService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.CreateUser(context.Background(), &store.User{
		EmployeeID: actorID, Username: "alice", PasswordHash: "x", Role: store.RoleAdmin, IsActive: true,
	}))

	return NewService(st), st
}

func createDevice(t *testing.T, st *store.SQLiteStore, uuid string, status store.DeviceStatus) *store.Device {
	t.Helper()
	ctx := context.Background()

	d := &store.Device{UUID: uuid, Name: "kiosk-" + uuid, Status: store.DeviceStatusPending}
	require.NoError(t, st.CreateDevice(ctx, d))
	if status != store.DeviceStatusPending {
		require.NoError(t, st.UpdateDeviceStatus(ctx, d.ID, store.DeviceStatusPending, status))
		d.Status = status
	}
	return d
}

func createOperator(t *testing.T, st *store.SQLiteStore, employeeID int64, username string) {
	t.Helper()
	require.NoError(t, st.CreateUser(context.Background(), &store.User{
		EmployeeID: employeeID, Username: username, PasswordHash: "x", Role: store.RoleOperator, IsActive: true,
	}))
}

func TestListPendingAndAll(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()

	createDevice(t, st, "dev-1", store.DeviceStatusPending)
	createDevice(t, st, "dev-2", store.DeviceStatusActive)
	createDevice(t, st, "dev-3", store.DeviceStatusPending)

	pending, err := svc.ListPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	// Oldest first so admins review in arrival order.
	assert.Equal(t, "dev-1", pending[0].UUID)
	assert.Equal(t, "dev-3", pending[1].UUID)

	all, err := svc.ListAll(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestApprove(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()
	d := createDevice(t, st, "dev-1", store.DeviceStatusPending)

	device, err := svc.Approve(ctx, d.ID, actorID)
	require.NoError(t, err)
	assert.Equal(t, store.DeviceStatusActive, device.Status)

	approvedType := store.EventApproved
	events, err := st.ListDeviceEvents(ctx, store.EventFilter{Type: &approvedType})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].ActorID)
	assert.Equal(t, actorID, *events[0].ActorID)
}

func TestApproveNonPendingConflicts(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()

	for _, status := range []store.DeviceStatus{store.DeviceStatusActive, store.DeviceStatusRejected, store.DeviceStatusRevoked} {
		d := createDevice(t, st, "dev-"+string(status), status)
		_, err := svc.Approve(ctx, d.ID, actorID)
		assert.ErrorIs(t, err, store.ErrInvalidState, "status %s", status)
	}

	_, err := svc.Approve(ctx, 9999, actorID)
	assert.ErrorIs(t, err, store.ErrDeviceNotFound)
}

func TestRejectPendingDevice(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()
	d := createDevice(t, st, "dev-1", store.DeviceStatusPending)

	device, err := svc.RejectOrRevoke(ctx, d.ID, actorID)
	require.NoError(t, err)
	assert.Equal(t, store.DeviceStatusRejected, device.Status)

	rejectType := store.EventRejectPendingDevice
	events, err := st.ListDeviceEvents(ctx, store.EventFilter{Type: &rejectType})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRevokeActiveDevice(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()
	d := createDevice(t, st, "dev-1", store.DeviceStatusActive)

	require.NoError(t, st.ClaimCredentialSlot(ctx, d.ID, "some-hash"))
	createOperator(t, st, 42, "bob")
	_, err := st.AssignUsers(ctx, d.ID, []int64{42}, actorID)
	require.NoError(t, err)

	device, err := svc.RejectOrRevoke(ctx, d.ID, actorID)
	require.NoError(t, err)
	assert.Equal(t, store.DeviceStatusRevoked, device.Status)
	assert.Nil(t, device.CredentialHash)

	assigned, err := st.IsAssigned(ctx, 42, d.ID)
	require.NoError(t, err)
	assert.False(t, assigned, "revocation should drop assignments")
}

func TestRejectTerminalStatesConflict(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()

	for _, status := range []store.DeviceStatus{store.DeviceStatusRejected, store.DeviceStatusRevoked} {
		d := createDevice(t, st, "dev-"+string(status), status)
		_, err := svc.RejectOrRevoke(ctx, d.ID, actorID)
		assert.ErrorIs(t, err, store.ErrInvalidState, "status %s", status)
	}
}

func TestForceResetToken(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()
	d := createDevice(t, st, "dev-1", store.DeviceStatusActive)
	require.NoError(t, st.ClaimCredentialSlot(ctx, d.ID, "some-hash"))

	require.NoError(t, svc.ForceResetToken(ctx, d.ID, actorID))

	device, err := st.GetDevice(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, device.CredentialHash)

	// Safe to repeat on an already-empty slot, and on non-active devices.
	require.NoError(t, svc.ForceResetToken(ctx, d.ID, actorID))
	pending := createDevice(t, st, "dev-2", store.DeviceStatusPending)
	require.NoError(t, svc.ForceResetToken(ctx, pending.ID, actorID))

	assert.ErrorIs(t, svc.ForceResetToken(ctx, 9999, actorID), store.ErrDeviceNotFound)
}

func TestAssignUsersPartialSuccess(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()
	d := createDevice(t, st, "dev-1", store.DeviceStatusActive)

	createOperator(t, st, 42, "bob")
	createOperator(t, st, 43, "carol")

	// 999 does not exist and 1 is an admin, not an operator.
	res, err := svc.AssignUsers(ctx, d.ID, []int64{42, 43, 999, actorID}, actorID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Assigned)
	assert.ElementsMatch(t, []int64{999, actorID}, res.InvalidEmployeeIDs)

	for _, id := range []int64{42, 43} {
		assigned, err := st.IsAssigned(ctx, id, d.ID)
		require.NoError(t, err)
		assert.True(t, assigned)
	}

	// Re-assigning is a no-op, not an error.
	res, err = svc.AssignUsers(ctx, d.ID, []int64{42}, actorID)
	require.NoError(t, err)
	assert.Zero(t, res.Assigned)

	assignedType := store.EventUsersAssigned
	events, err := st.ListDeviceEvents(ctx, store.EventFilter{Type: &assignedType})
	require.NoError(t, err)
	assert.Len(t, events, 1, "no-op assignment should not be audited")
}

func TestAssignUsersUnknownDevice(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.AssignUsers(context.Background(), 9999, []int64{42}, actorID)
	assert.ErrorIs(t, err, store.ErrDeviceNotFound)
}

func TestGetDeviceDetails(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()
	d := createDevice(t, st, "dev-1", store.DeviceStatusActive)

	createOperator(t, st, 42, "bob")
	_, err := svc.AssignUsers(ctx, d.ID, []int64{42}, actorID)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, d.ID, actorID) // state conflict, but leaves no event
	require.Error(t, err)

	details, err := svc.GetDeviceDetails(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "dev-1", details.Device.UUID)
	require.Len(t, details.Assignments, 1)
	assert.Equal(t, int64(42), details.Assignments[0].EmployeeID)
	require.NotEmpty(t, details.Events)
	assert.Equal(t, store.EventUsersAssigned, details.Events[0].Type)

	_, err = svc.GetDeviceDetails(ctx, 9999)
	assert.ErrorIs(t, err, store.ErrDeviceNotFound)
}
