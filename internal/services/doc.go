// Package services defines shared utilities consumed by the drop-folder
// workflow and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp watched directory names, file names, attempt
//     numbers, and correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into the handling decision the workflow takes (retry, retain, best-effort).
//
// Use these helpers when wiring new handling logic so operational behaviour
// (error handling, observability, retries) stays uniform across directories.
package services
