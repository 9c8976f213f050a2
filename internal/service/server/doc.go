// Package server runs the catpoint security server.
//
// It loads settings and secrets, assembles the state repository, the vision
// backend, the alarm controller and its status listeners, and serves the
// security gRPC API until the context is canceled.
package server
