// Package cli provides the interactive claimkeeper command-line client.
//
// It wires configuration, the local stores, the claim session, the bridge
// endpoint and the optional inbox watcher, then runs a line-oriented REPL
// that walks the user through the claim: answer fields, attach or remove
// files, export, submit and clear.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or ctx is cancelled. See App, StartStatusWatcher and runREPL for details.
package cli
