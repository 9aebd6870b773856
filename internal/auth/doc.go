// Package auth issues and verifies session tokens and gates protected
// endpoints behind two authorization predicates.
//
// # Sessions
//
// Sessions are HS256 JWTs carrying the employee id, role, and username.
// Operator sessions additionally carry the device id they were minted
// for, binding the session to a single kiosk.
//
// # Login
//
// Service.AdminLogin and Service.OperatorLogin orchestrate the two login
// flows. Every authentication failure surfaces as ErrInvalidCredentials
// regardless of which factor failed, so a caller cannot probe which
// usernames, passwords, or devices exist. Unknown usernames still pay a
// bcrypt comparison against a throwaway hash to keep timing uniform.
//
// # Predicates
//
// Gateway.RequireAdmin admits a request when the bearer is a live admin
// session and the subject is still an active admin user. Gateway.
// RequireOperator additionally requires valid device credentials for an
// active device, a session bound to that device, and a live assignment
// row linking operator and device. Both predicates consult the store on
// every request; there is no cached session state to invalidate.
package auth
