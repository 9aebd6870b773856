// Package provision drives kiosk devices through the provisioning
// lifecycle: pending on registration, active after admin approval, then
// rejected or revoked.
//
// # Credential issuance
//
// An approved device fetches its credential exactly once. The plaintext
// token is generated on demand, returned to the caller, and immediately
// forgotten; only its bcrypt hash is stored. The slot claim is a single
// conditional write in the store, so concurrent fetch attempts cannot
// each receive a token. A device that loses its token cannot recover it;
// an admin must force a reset so a fresh one can be issued.
package provision
