// Package workflow turns one dropped file into a terminal outcome.
//
// Processor.Process is the unit of work the directory monitors schedule. It
// classifies the file, reads and parses it under the folder's retry budget,
// reports it to the order service, archives eligible checks, and deletes the
// source once every required destination accepted it. Files that cannot be
// handled stay in their folder; the drop folders are the only queue.
//
// Each Processor keeps per-folder Stats that the daemon exposes in its status
// endpoint.
package workflow
