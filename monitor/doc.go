// Package monitor turns decoded gateway frames into presentation-ready
// events: it dedups by message id, routes on the frame's kind tag, applies the
// configured ban rules per kind, and publishes accepted events into bounded
// FIFO stores that HTTP handlers snapshot.
//
// It also runs the superchat lifecycle: gifts above the lowest tier bank a
// per-user contribution, a keyword-bearing chat message spends it as a
// superchat, and a 1 Hz sweep expires on-screen superchats and stale
// contributions.
package monitor
