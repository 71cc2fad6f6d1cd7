// Package track owns per-frame multi-object tracking.
//
// Responsibilities: Kalman-style box prediction, Hungarian
// detection-to-track assignment, and track lifecycle (creation,
// confirmation, coasting, eviction).
// Key types: BoxTracker, Registry, TrackedObject.
//
// Dependency rule: track may depend on detect, but never on shelf or
// pipeline. No SQL/database code is allowed in this package.
package track
