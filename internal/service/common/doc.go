// Package common holds helpers shared by the catpoint binaries.
//
// It provides the security service client wrapper with per-call timeouts and
// the actor identification that clients attach to every call and the server
// writes to its logs.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
