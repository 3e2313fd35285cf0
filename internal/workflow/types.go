package workflow

import (
	"context"
	"time"

	"restronaut/internal/document"
)

// Trigger names what caused a file to be scheduled.
type Trigger string

const (
	TriggerSweep  Trigger = "sweep"
	TriggerCreate Trigger = "create"
	TriggerRename Trigger = "rename"
	TriggerWrite  Trigger = "write"
	TriggerRescan Trigger = "rescan"
	TriggerManual Trigger = "manual"
)

// DropFile is a file discovered in a watched folder.
type DropFile struct {
	Path         string
	Name         string
	DiscoveredAt time.Time
	Trigger      Trigger
}

// Outcome is the terminal state of processing one DropFile.
type Outcome string

const (
	// OutcomeDeleted means every required destination accepted the file and it was removed.
	OutcomeDeleted Outcome = "deleted"
	// OutcomeDiscarded means the file was an open-check snapshot removed unread.
	OutcomeDiscarded Outcome = "discarded"
	// OutcomeSkipped means the document is not handled by this folder and was left in place.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeRetained means processing failed and the file was left in place.
	OutcomeRetained Outcome = "retained"
	// OutcomeGone means the file disappeared before it could be read.
	OutcomeGone Outcome = "gone"
)

// Result describes what happened to one DropFile.
type Result struct {
	File       DropFile
	Outcome    Outcome
	Kind       document.Kind
	Root       string
	Attempts   int
	Reported   bool
	Archived   bool
	ArchiveKey string
	Err        error
	Duration   time.Duration
}

// Reporter sends a document to the order service.
type Reporter interface {
	Report(ctx context.Context, doc *document.Document) (bool, error)
}

// Archiver uploads eligible documents to object storage.
type Archiver interface {
	Archive(ctx context.Context, doc *document.Document, path string) (string, bool, error)
	RequireSuccess() bool
}
