// Package metrics names the Message Center session events and provides
// recorders for them.
//
// Hosts implement [Recorder] to forward events to their analytics pipeline.
// The session controller always wraps its recorder with [Safe], so a failing
// recorder can never affect the session.
package metrics
