// Package pose turns four detected marker regions into a camera-relative
// pose of the marker board.
//
// # Pipeline Position
//
// The package covers the last three stages of per-frame processing:
//
//  1. Correspondence: BuildCorrespondence maps exactly four regions onto the
//     four reference roles (top-left, bottom-left, top-right, bottom-right)
//  2. Jitter Gate: JitterFilter accepts or rejects a correspondence by its
//     mean displacement from the last accepted one
//  3. Solve: Solver.Solve runs a planar Perspective-n-Point solve against the
//     board's reference corners using a calibrated CameraModel
//
// # Coordinate Systems
//
// Image points are pixels with the origin at the top-left, X right and Y down.
// Reference corners are millimetres in the board frame. The camera frame has
// X right, Y down and Z forward, so a visible board has positive Tvec.Z.
// Rotations are Rodrigues vectors (axis times angle in radians).
//
// # Thread Safety
//
// CameraModel, Solver and BuildCorrespondence are pure and safe for
// concurrent use. JitterFilter holds per-session state and must not be
// shared between goroutines without external locking.
package pose
