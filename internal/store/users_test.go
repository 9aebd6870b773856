// ABOUTME: Tests for user persistence
// ABOUTME: Covers lookups, activation toggling, and employee filtering

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCreateUser(t *testing.T, st *SQLiteStore, employeeID int64, username string, role UserRole) *User {
	t.Helper()
	u := &User{EmployeeID: employeeID, Username: username, PasswordHash: "hash", Role: role, IsActive: true}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func TestCreateAndGetUser(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, st, 1, "alice", RoleAdmin)

	got, err := st.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.EmployeeID)
	assert.Equal(t, RoleAdmin, got.Role)
	assert.True(t, got.IsActive)
	assert.False(t, got.CreatedAt.IsZero())

	byID, err := st.GetUserByEmployeeID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	st := setupTestStore(t)

	mustCreateUser(t, st, 1, "alice", RoleAdmin)
	err := st.CreateUser(context.Background(), &User{EmployeeID: 2, Username: "alice", PasswordHash: "x", Role: RoleOperator})
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestGetUserNotFound(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	_, err := st.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = st.GetUserByEmployeeID(ctx, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetUserActive(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, st, 1, "alice", RoleAdmin)

	require.NoError(t, st.SetUserActive(ctx, 1, false))
	got, err := st.GetUserByEmployeeID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	require.NoError(t, st.SetUserActive(ctx, 1, true))
	got, err = st.GetUserByEmployeeID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	assert.ErrorIs(t, st.SetUserActive(ctx, 9999, true), ErrUserNotFound)
}

func TestCountAdmins(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	n, err := st.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	mustCreateUser(t, st, 1, "alice", RoleAdmin)
	mustCreateUser(t, st, 42, "bob", RoleOperator)

	n, err = st.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFilterValidEmployees(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, st, 1, "alice", RoleAdmin)
	mustCreateUser(t, st, 42, "bob", RoleOperator)
	mustCreateUser(t, st, 43, "carol", RoleOperator)

	// Admins and unknown ids are filtered out; only operators survive.
	valid, err := st.FilterValidEmployees(ctx, []int64{1, 42, 43, 999})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{42, 43}, valid)

	valid, err = st.FilterValidEmployees(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, valid)
}
