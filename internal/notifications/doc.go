// Package notifications delivers operator alerts via ntfy.
//
// Alerts cover the cases that need a human: a drop file that could not be
// handled and was left in its folder, and (optionally) a document whose kind
// was not recognized. When no topic is configured NewService returns a no-op
// implementation so callers never need nil checks.
package notifications
