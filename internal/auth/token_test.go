// ABOUTME: Tests for JWT session signing and verification
// ABOUTME: Covers round trips, expiry, tampering, and claim validation

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner() *Signer {
	return NewSigner([]byte("test-secret-key-thats-long-enough-for-hs256"))
}

func TestSignAndVerify(t *testing.T) {
	signer := newTestSigner()

	token, err := signer.Sign(SessionClaims{
		EmployeeID: 42,
		Role:       "admin",
		Username:   "alice",
	}, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.EmployeeID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "alice", claims.Username)
	assert.Zero(t, claims.DeviceID)
	assert.True(t, claims.IsAdmin())
	assert.False(t, claims.IsOperator())
}

func TestOperatorClaimsCarryDeviceID(t *testing.T) {
	signer := newTestSigner()

	token, err := signer.Sign(SessionClaims{
		EmployeeID: 7,
		Role:       "operator",
		Username:   "bob",
		DeviceID:   3,
	}, time.Hour)
	require.NoError(t, err)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.DeviceID)
	assert.True(t, claims.IsOperator())
}

func TestVerifyExpiredToken(t *testing.T) {
	signer := newTestSigner()

	token, err := signer.Sign(SessionClaims{
		EmployeeID: 42,
		Role:       "admin",
		Username:   "alice",
	}, -time.Minute)
	require.NoError(t, err)

	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	signer := newTestSigner()
	other := NewSigner([]byte("a-completely-different-secret-entirely!!"))

	token, err := signer.Sign(SessionClaims{
		EmployeeID: 42,
		Role:       "admin",
		Username:   "alice",
	}, time.Hour)
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	signer := newTestSigner()

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := signer.Verify(tok)
		assert.Error(t, err, "token %q should not verify", tok)
	}
}

func TestVerifyRejectsMissingClaims(t *testing.T) {
	signer := newTestSigner()

	// No employee id
	token, err := signer.Sign(SessionClaims{Role: "admin", Username: "alice"}, time.Hour)
	require.NoError(t, err)
	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, ErrMissingClaim)

	// No role
	token, err = signer.Sign(SessionClaims{EmployeeID: 42, Username: "alice"}, time.Hour)
	require.NoError(t, err)
	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, ErrMissingClaim)
}
