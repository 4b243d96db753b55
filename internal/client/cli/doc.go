// Package cli provides the interactive LingoPost command-line client.
//
// It wires configuration, local storage, the REST client and the
// orchestration components (session store, media cache, audio slot, upload
// pipeline, AI dispatcher) into a REPL. The REPL only issues intents; every
// resource is owned by the component that created it.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits or
// ctx is cancelled.
package cli
