// Package cli provides the interactive manokeeper command-line client.
//
// It wires configuration, the local orphan journal, the REST client and the
// rotation services behind a small REPL. Typical flow: check who is signed
// in and what the organisation holds (status), change the organisation key
// (rotate), then, once the new key is trusted, delete the superseded file
// copies (orphans, cleanup).
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
