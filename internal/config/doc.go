// Package config handles configuration loading for kioskgate.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${KIOSKGATE_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//
// Database:
//
//	database:
//	  path: "/var/lib/kioskgate/gateway.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${KIOSKGATE_JWT_SECRET}"  # required, min 32 characters
//	  admin_session_ttl: "8h"
//	  operator_session_ttl: "12h"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - HTTP listen address presence
//   - Database path presence
//   - JWT secret minimum length (32 characters)
//   - Duration format validity
package config
