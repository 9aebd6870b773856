// ABOUTME: Tests for the device provisioning lifecycle service
// ABOUTME: Runs against a real SQLite store in a temp directory

package provision

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kioskgate/kioskgate/internal/store"
	"github.com/kioskgate/kioskgate/internal/vault"
)

func setupService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewService(st), st
}

func TestRegister(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterRequest{
		DeviceUUID:   "dev-1",
		Name:         "lobby-kiosk",
		AssignedSite: "hq",
		AppVersion:   "1.2.0",
		OSVersion:    "android-14",
	})
	require.NoError(t, err)
	assert.Equal(t, store.DeviceStatusPending, res.Status)
	assert.False(t, res.Duplicate)

	device, err := st.GetDeviceByUUID(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "lobby-kiosk", device.Name)
	assert.Equal(t, store.DeviceStatusPending, device.Status)
	assert.Nil(t, device.CredentialHash)

	events, err := st.ListDeviceEvents(ctx, store.EventFilter{DeviceID: &device.ID})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, store.EventRegisterRequested, events[0].Type)
}

func TestRegisterDuplicateIsIdempotent(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{DeviceUUID: "dev-1", Name: "kiosk"})
	require.NoError(t, err)

	// Approve so the duplicate reports the current status, not pending.
	device, err := st.GetDeviceByUUID(ctx, "dev-1")
	require.NoError(t, err)
	require.NoError(t, st.UpdateDeviceStatus(ctx, device.ID, store.DeviceStatusPending, store.DeviceStatusActive))

	res, err := svc.Register(ctx, RegisterRequest{DeviceUUID: "dev-1", Name: "kiosk-retry"})
	require.NoError(t, err)
	assert.Equal(t, store.DeviceStatusActive, res.Status)
	assert.True(t, res.Duplicate)

	// The retry must not overwrite the original record.
	device, err = st.GetDeviceByUUID(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "kiosk", device.Name)

	dupType := store.EventRegisterRequestedDuplicate
	events, err := st.ListDeviceEvents(ctx, store.EventFilter{Type: &dupType})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRegisterRequiresUUID(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Register(context.Background(), RegisterRequest{Name: "kiosk"})
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()

	status, err := svc.Status(ctx, "never-registered")
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, status)

	_, err = svc.Register(ctx, RegisterRequest{DeviceUUID: "dev-1"})
	require.NoError(t, err)

	status, err = svc.Status(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "pending", status)

	device, err := st.GetDeviceByUUID(ctx, "dev-1")
	require.NoError(t, err)
	assert.False(t, device.LastUpdateCheck.IsZero(), "status poll should refresh last_update_check")
}

func registerActiveDevice(t *testing.T, svc *Service, st *store.SQLiteStore) *store.Device {
	t.Helper()
	ctx := context.Background()

	deviceUUID := uuid.New().String()
	_, err := svc.Register(ctx, RegisterRequest{DeviceUUID: deviceUUID, Name: "kiosk"})
	require.NoError(t, err)

	device, err := st.GetDeviceByUUID(ctx, deviceUUID)
	require.NoError(t, err)
	require.NoError(t, st.UpdateDeviceStatus(ctx, device.ID, store.DeviceStatusPending, store.DeviceStatusActive))

	device, err = st.GetDeviceByUUID(ctx, deviceUUID)
	require.NoError(t, err)
	return device
}

func TestFetchCredential(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()
	device := registerActiveDevice(t, svc, st)

	token, err := svc.FetchCredential(ctx, device.UUID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Stored hash verifies the returned plaintext and nothing else.
	device, err = st.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	require.NotNil(t, device.CredentialHash)
	assert.True(t, vault.VerifySecret(token, *device.CredentialHash))
	assert.NotEqual(t, token, *device.CredentialHash)

	issuedType := store.EventCredentialIssued
	events, err := st.ListDeviceEvents(ctx, store.EventFilter{Type: &issuedType})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestFetchCredentialSecondAttemptFails(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()
	device := registerActiveDevice(t, svc, st)

	_, err := svc.FetchCredential(ctx, device.UUID)
	require.NoError(t, err)

	_, err = svc.FetchCredential(ctx, device.UUID)
	assert.ErrorIs(t, err, store.ErrCredentialIssued)

	replayType := store.EventCredentialFetchAfterIssue
	events, err := st.ListDeviceEvents(ctx, store.EventFilter{Type: &replayType})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestFetchCredentialDeniedStates(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()

	_, err := svc.FetchCredential(ctx, "never-registered")
	assert.ErrorIs(t, err, store.ErrDeviceNotFound)

	_, err = svc.Register(ctx, RegisterRequest{DeviceUUID: "dev-pending"})
	require.NoError(t, err)

	_, err = svc.FetchCredential(ctx, "dev-pending")
	assert.ErrorIs(t, err, ErrDeviceNotActive)

	deniedType := store.EventCredentialFetchDenied
	events, err := st.ListDeviceEvents(ctx, store.EventFilter{Type: &deniedType})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "pending", events[0].Detail["status"])
}

func TestValidateDeviceToken(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()
	device := registerActiveDevice(t, svc, st)

	token, err := svc.FetchCredential(ctx, device.UUID)
	require.NoError(t, err)

	valid, err := svc.ValidateDeviceToken(ctx, device.UUID, token)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = svc.ValidateDeviceToken(ctx, device.UUID, "wrong-token")
	require.NoError(t, err)
	assert.False(t, valid)

	valid, err = svc.ValidateDeviceToken(ctx, "never-registered", token)
	require.NoError(t, err)
	assert.False(t, valid)

	validationType := store.EventDeviceValidation
	events, err := st.ListDeviceEvents(ctx, store.EventFilter{Type: &validationType})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestValidateDeviceTokenNoCredentialFailsClosed(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()
	device := registerActiveDevice(t, svc, st)

	valid, err := svc.ValidateDeviceToken(ctx, device.UUID, "anything")
	require.NoError(t, err)
	assert.False(t, valid)
}
