// Package client contains the client-side building blocks for talking to the
// letter server and opening the local cache.
//
// # Overview
//
//  1. The Client interface: check-user, letterbox fetch, unopened-letter
//     polling, mark-opened, send and preference updates.
//  2. HTTPClient, a JSON-over-HTTP implementation whose base URL can be
//     changed at runtime. Idempotent reads are retried with
//     github.com/codeGROOVE-dev/retry; everything else is sent once.
//  3. InitDatabase and RunMigrations, which open the SQLite cache and apply
//     the embedded goose migrations.
//
// # Error Handling
//
// Transport failures map to sentinel errors matched with errors.Is:
// ErrUnavailable (connect/DNS failures), ErrTimeout (deadline exceeded),
// ErrServerRejected (via *ServerError) and ErrNoServer.
//
// All operations accept a context.Context and honour cancellation.
package client
