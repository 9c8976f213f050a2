// Package integration holds end-to-end tests that run the catpoint server
// on a real TCP listener and talk to it through the client packages.
package integration
