// Package client contains client-side building blocks for manokeeper.
//
// # Overview
//
// The package provides:
//  1. The REST contract a key rotation needs (see the Client interface):
//     organisation read and lock, full collection listing, the atomic
//     /encrypt commit and person document download/upload/delete.
//  2. A concrete HTTP implementation (see HTTPClient) that injects the
//     bearer token, unwraps the {"ok","data","error"} envelope and maps
//     HTTP status codes to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) for the
//     CLI's orphan-blob journal, an SQLite database migrated with goose.
//
// # Error Handling
//
// Callers match with errors.Is: ErrUnavailable, ErrUnauthorized,
// ErrConflict, ErrNotFound.
//
// All operations accept context.Context and honor cancellation.
package client
