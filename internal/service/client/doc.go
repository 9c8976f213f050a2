// Package client implements the commands of the catpoint CLI.
//
// A Session connects to the security server, performs one request and
// prints the result in a human-readable form.
package client
