// Package admin implements the administrative side of fleet management:
// reviewing the pending queue, approving and rejecting devices, forcing
// credential resets, and assigning operators.
//
// Rejecting is status-driven: a pending device becomes rejected, an
// active device becomes revoked. Revocation clears the credential hash
// and removes assignments in the same transaction, so a revoked kiosk
// loses everything at once.
package admin
