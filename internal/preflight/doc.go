// Package preflight provides readiness checks for the folders and remote
// service restronaut depends on.
//
// The daemon runs RunAll at start and logs every failure; the results are also
// served from /api/status so the CLI "restronaut status" command can show them.
// Checks for disabled features are skipped.
package preflight
