// Package services holds the client's application state and workflows:
// preference and letterbox reconciliation, cooldown-gated delivery polling,
// the open/acknowledge workflow and sending. A Session is built once at
// startup and owns one instance of each.
//
// All types are safe for concurrent use; the background poller and the
// interactive commands share them.
package services
