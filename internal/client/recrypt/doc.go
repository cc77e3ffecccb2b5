// Package recrypt moves ciphertext from one organisation key to another.
//
// Records keep their per-entity key: only its wrapping changes. Attached
// files are downloaded, opened, sealed under a fresh file key and uploaded
// again, which gives them a new storage id.
//
// The two levels fail differently. RecryptItem returns every error to the
// caller. DocumentRecryptor applies a DocumentFailurePolicy; with Isolate a
// failing document is logged and its original reference is kept, since it
// may already be sealed under the target key by an earlier partial run.
package recrypt
