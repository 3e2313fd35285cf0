// Package daemon coordinates the long-running restronaut process.
//
// It wires configuration, the order service client, the archive store, one
// processor and monitor per watched folder, and the HTTP ingress into a single
// lifecycle guarded by a flock-based lock so only one instance runs. Startup
// runs preflight checks and log retention; shutdown gives in-flight files the
// configured grace before cancelling them.
//
// Keep orchestration logic here: file handling lives in workflow and watcher,
// remote calls in orderapi, uploads in archive.
package daemon
