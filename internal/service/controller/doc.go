// Package controller reconciles manual arming, sensor activations and camera
// cat detections into one authoritative alarm status.
//
// The Controller reads and writes state through a state.Repository, asks a
// vision.Service about camera frames, and synchronously notifies every
// subscribed domain StatusListener about alarm and sensor changes. Each
// public operation runs under one mutex so read-decide-write sequences are
// atomic with respect to other callers.
package controller
