// ABOUTME: JWT session claim signing and verification for kioskgate
// ABOUTME: Uses HS256 signing with configurable secret and typed claims

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kioskgate/kioskgate/internal/store"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// SessionClaims is the signed bundle identifying a logged-in principal.
// DeviceID is set only on operator sessions and binds the session to the
// device it was issued for.
type SessionClaims struct {
	EmployeeID int64  `json:"employee_id"`
	Role       string `json:"role"`
	Username   string `json:"username"`
	DeviceID   int64  `json:"device_id,omitempty"`

	jwt.RegisteredClaims
}

// IsAdmin reports whether the session belongs to an administrator.
func (c *SessionClaims) IsAdmin() bool {
	return c.Role == string(store.RoleAdmin)
}

// IsOperator reports whether the session belongs to a device operator.
func (c *SessionClaims) IsOperator() bool {
	return c.Role == string(store.RoleOperator)
}

// Signer signs and verifies session claims using HS256.
type Signer struct {
	secret []byte
}

// NewSigner creates a new session signer with the given secret.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Sign creates a signed session token with the given expiry.
func (s *Signer) Sign(claims SessionClaims, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(expiresIn))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString(s.secret)
}

// Verify validates the token signature and expiry and returns the decoded
// session claims.
func (s *Signer) Verify(tokenString string) (*SessionClaims, error) {
	var claims SessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.EmployeeID == 0 {
		return nil, fmt.Errorf("%w: employee_id", ErrMissingClaim)
	}
	if claims.Role == "" {
		return nil, fmt.Errorf("%w: role", ErrMissingClaim)
	}

	return &claims, nil
}
