// Package main hosts the restronaut CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the daemon in the foreground, queries a
// running daemon over its HTTP API, processes individual drop files once, and
// scaffolds configuration. Configuration resolution happens once per
// invocation in commandContext so subcommands can focus on output.
//
// Keep this package lean: add behaviour to the internal packages first, then
// surface it through a command or flag here.
package main
