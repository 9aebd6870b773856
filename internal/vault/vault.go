// ABOUTME: Secret hashing and one-time token generation for kioskgate
// ABOUTME: bcrypt for passwords and device tokens, crypto/rand for token material

package vault

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DeviceTokenBytes is the entropy of a minted device token.
const DeviceTokenBytes = 32

// HashSecret hashes a plaintext secret (password or device token) with
// bcrypt at the default cost.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing secret: %w", err)
	}
	return string(hash), nil
}

// VerifySecret runs the one-way comparison of a candidate secret against a
// stored hash. Any error, including a malformed hash, reads as a mismatch.
func VerifySecret(candidate, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

// dummyHash is a bcrypt hash of random material, compared against when a
// login names an unknown user so response timing does not reveal whether
// the username exists.
var dummyHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(NewToken()), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("vault: generating dummy hash: %v", err))
	}
	return string(h)
}()

// VerifyDummy burns a bcrypt comparison to keep failed-lookup timing in
// line with real verification.
func VerifyDummy(candidate string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(candidate))
}

// NewToken mints a URL-safe, high-entropy device token. The plaintext is
// returned exactly once to the caller; only its hash is ever persisted.
func NewToken() string {
	buf := make([]byte, DeviceTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("vault: reading random bytes: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
