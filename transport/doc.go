// Package transport defines the remote side of a Message Center session and
// ships an in-process backend.
//
// A [Transport] fetches new messages into the local store and accepts queued
// payloads for delivery. Failures surface as [*Error], which callers can
// match with errors.As; the poll loop logs them and retries on its next tick.
//
// [Loopback] acknowledges payloads synchronously (marking messages sent and
// removing their queue entries) and serves scripted replies:
//
//	lb := transport.NewLoopback(st)
//	lb.SetAutoReply("Thanks, we'll get back to you soon.")
//	lb.QueueReply("", "Welcome!")
//
// It backs the messagecenter CLI and the package tests.
package transport
