// Package state implements persistence for the premises security state:
// the arming status, the alarm status and the sensor set.
//
// MemoryRepository keeps everything in process; FileRepository additionally
// writes the whole state as JSON on disk after every mutation. Both satisfy
// the Repository interface that the alarm controller depends on.
package state
