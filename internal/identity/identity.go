// Package identity issues and verifies operator tokens and provides the Gin
// middleware that authenticates callers of the domain API.
//
// It provides:
//   - OperatorTokenIssuer: issues and verifies HS256 operator JWTs
//   - RequireOperator: Gin middleware enforcing a Bearer operator token
//   - CanManage: tenant-level authorization check on verified claims
package identity

// RoleAdmin grants access to every tenant.
const RoleAdmin = "admin"
