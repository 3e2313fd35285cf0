package workflow

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"restronaut/internal/config"
	"restronaut/internal/document"
	"restronaut/internal/logging"
	"restronaut/internal/notifications"
	"restronaut/internal/retry"
	"restronaut/internal/services"
)

// errSkip ends the attempt sequence for documents this folder does not handle.
var errSkip = errors.New("document not handled by this folder")

// Processor handles files for one watched folder.
type Processor struct {
	dir      config.Directory
	role     document.Role
	kinds    map[document.Kind]struct{}
	reporter Reporter
	archiver Archiver
	notifier notifications.Service
	logger   *slog.Logger
	retry    *retry.Controller
	stats    *Stats
	fs       fileSystem
}

// Option customizes a Processor.
type Option func(*Processor)

// WithNotifier sets the alert sink for retained and unrecognized files.
func WithNotifier(n notifications.Service) Option {
	return func(p *Processor) {
		if n != nil {
			p.notifier = n
		}
	}
}

// WithArchiver sets the object storage dispatcher.
func WithArchiver(a Archiver) Option {
	return func(p *Processor) {
		p.archiver = a
	}
}

// NewProcessor builds a processor for dir.
func NewProcessor(dir config.Directory, reporter Reporter, logger *slog.Logger, opts ...Option) *Processor {
	kinds := make(map[document.Kind]struct{}, len(dir.Kinds))
	for _, name := range dir.Kinds {
		if kind, ok := document.ParseKind(name); ok {
			kinds[kind] = struct{}{}
		}
	}
	p := &Processor{
		dir:      dir,
		role:     document.Role(dir.Role),
		kinds:    kinds,
		reporter: reporter,
		notifier: notifications.NewNoop(),
		logger:   logging.NewComponentLogger(logger, "workflow"),
		stats:    &Stats{},
		fs:       osFileSystem{},
	}
	p.retry = retry.New(dir.RetryBudget, dir.RetryDelay)
	p.retry.OnRetry = func(int, error) { p.stats.retry() }
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Directory returns the folder this processor serves.
func (p *Processor) Directory() config.Directory {
	return p.dir
}

// Stats returns the processor's counters.
func (p *Processor) Stats() StatsSnapshot {
	return p.stats.Snapshot()
}

// NewDropFile builds a DropFile for path.
func NewDropFile(path string, trigger Trigger) DropFile {
	return DropFile{
		Path:         path,
		Name:         filepath.Base(path),
		DiscoveredAt: time.Now(),
		Trigger:      trigger,
	}
}

// Process runs one file to a terminal outcome.
func (p *Processor) Process(ctx context.Context, file DropFile) Result {
	start := time.Now()
	ctx = services.WithDirectory(ctx, p.dir.Name)
	ctx = services.WithFile(ctx, file.Path)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, p.logger)

	res := Result{File: file}
	if document.ClassifyName(p.role, file.Name) == document.KindDiscard {
		res.Kind = document.KindDiscard
		p.discard(logger, &res)
	} else {
		p.handle(ctx, logger, &res)
	}

	res.Duration = time.Since(start)
	p.stats.record(res)
	return res
}

func (p *Processor) discard(logger *slog.Logger, res *Result) {
	if err := p.fs.Remove(res.File.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			res.Outcome = OutcomeGone
			return
		}
		res.Outcome = OutcomeRetained
		res.Err = err
		logging.WarnWithContext(logger, "open check snapshot could not be deleted", "discard_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check folder permissions"),
			logging.String(logging.FieldImpact, "snapshot stays in the folder"),
		)
		return
	}
	res.Outcome = OutcomeDiscarded
	logger.Debug("open check snapshot discarded", logging.String(logging.FieldEventType, "file_discarded"))
}

func (p *Processor) handle(ctx context.Context, logger *slog.Logger, res *Result) {
	var doc *document.Document
	err := p.retry.Run(ctx, func(ctx context.Context, attempt int) error {
		res.Attempts = attempt
		var err error
		doc, err = p.load(res.File)
		if err != nil {
			return err
		}
		res.Kind = doc.Kind
		res.Root = doc.Root
		if !p.accepts(doc.Kind) {
			return errSkip
		}
		return p.dispatch(ctx, logging.WithContext(ctx, p.logger), doc, res)
	})

	switch {
	case err == nil:
		p.remove(logger, res)
	case errors.Is(err, errGone):
		res.Outcome = OutcomeGone
		logger.Debug("file vanished before it could be read", logging.String(logging.FieldEventType, "file_gone"))
	case errors.Is(err, errSkip):
		res.Outcome = OutcomeSkipped
		p.stats.unrecognized()
		logger.Debug("document not handled by this folder; left in place",
			logging.String(logging.FieldKind, res.Kind.String()),
			logging.String("root", res.Root),
			logging.String(logging.FieldEventType, "file_skipped"),
		)
		if nerr := p.notifier.NotifyUnrecognized(ctx, p.dir.Name, res.File.Path, res.Root); nerr != nil {
			logger.Debug("unrecognized notification failed", logging.Error(nerr))
		}
	case ctx.Err() != nil:
		res.Outcome = OutcomeRetained
		res.Err = err
		logger.Info("processing interrupted by shutdown; file left in place",
			logging.String(logging.FieldEventType, "file_interrupted"),
		)
	default:
		res.Outcome = OutcomeRetained
		res.Err = err
		p.fail(ctx, logger, res)
	}
}

// load reads and classifies the file. A parse failure on a file that is
// empty or still changing size is reported as transient.
func (p *Processor) load(file DropFile) (*document.Document, error) {
	data, err := readDropFile(p.fs, file.Path)
	if err != nil {
		return nil, err
	}
	doc, err := document.Load(p.role, file.Name, data)
	if err != nil {
		if errors.Is(err, services.ErrParse) && stillWriting(p.fs, file.Path, data) {
			return nil, services.Wrap(services.ErrTransientIO, "workflow", "read", "file still being written", err)
		}
		return nil, err
	}
	return doc, nil
}

func (p *Processor) accepts(kind document.Kind) bool {
	if _, ok := p.kinds[kind]; !ok {
		return false
	}
	if p.role == document.RoleSales {
		return document.InSalesScope(kind)
	}
	return true
}

func (p *Processor) dispatch(ctx context.Context, logger *slog.Logger, doc *document.Document, res *Result) error {
	reported, err := p.reporter.Report(ctx, doc)
	if err != nil {
		return err
	}
	res.Reported = reported
	if reported {
		logger.Info("document reported",
			logging.String(logging.FieldKind, doc.Kind.String()),
			logging.String(logging.FieldEventType, "document_reported"),
		)
	} else {
		logger.Debug("no reportable loyalty memo; report skipped",
			logging.String(logging.FieldKind, doc.Kind.String()),
			logging.String(logging.FieldEventType, "report_skipped"),
		)
	}

	if p.archiver == nil || doc.Kind != document.KindCheckFinalization {
		return nil
	}
	key, archived, err := p.archiver.Archive(ctx, doc, res.File.Path)
	res.ArchiveKey = key
	res.Archived = archived
	if err != nil {
		p.stats.archiveFailure()
		if p.archiver.RequireSuccess() {
			return err
		}
		logging.WarnWithContext(logger, "archive upload failed; deleting source anyway", "archive_failed",
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check archive credentials and bucket permissions"),
			logging.String(logging.FieldImpact, "original check file is not archived"),
		)
		return nil
	}
	if archived {
		logger.Info("check archived",
			logging.String("key", key),
			logging.String(logging.FieldEventType, "document_archived"),
		)
	}
	return nil
}

func (p *Processor) remove(logger *slog.Logger, res *Result) {
	if err := p.fs.Remove(res.File.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			res.Outcome = OutcomeGone
			logger.Debug("file already removed", logging.String(logging.FieldEventType, "file_gone"))
			return
		}
		res.Outcome = OutcomeRetained
		res.Err = services.Wrap(services.ErrTransientIO, "workflow", "delete", "remove handled file", err)
		logging.ErrorWithContext(logger, "handled file could not be deleted", "delete_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check folder permissions; the file will be handled again on the next sweep"),
		)
		return
	}
	res.Outcome = OutcomeDeleted
	logger.Info("file handled and deleted",
		logging.String(logging.FieldKind, res.Kind.String()),
		logging.Int(logging.FieldAttempt, res.Attempts),
		logging.String(logging.FieldOutcome, string(OutcomeDeleted)),
		logging.String(logging.FieldEventType, "file_deleted"),
	)
}

func (p *Processor) fail(ctx context.Context, logger *slog.Logger, res *Result) {
	logging.ErrorWithContext(logger, "file processing failed; file left in place", "file_retained",
		logging.String(logging.FieldKind, res.Kind.String()),
		logging.String(logging.FieldErrorClass, services.Class(res.Err)),
		logging.Int(logging.FieldAttempt, res.Attempts),
		logging.Error(res.Err),
		logging.String(logging.FieldErrorHint, failureHint(res.Err)),
	)
	if err := p.notifier.NotifyFileRetained(ctx, p.dir.Name, res.File.Path, res.Err); err != nil {
		logger.Debug("retained-file notification failed", logging.Error(err))
	}
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, retry.ErrRetriesExhausted):
		return "the file stayed locked or incomplete; check the POS writer and remove or re-drop the file"
	case errors.Is(err, services.ErrParse):
		return "the file is not valid XML; inspect it and remove it from the folder"
	case errors.Is(err, services.ErrPermission):
		return "the daemon user cannot read the file; fix its permissions"
	case errors.Is(err, services.ErrRemoteCall):
		return "check order_service.base_url, the auth token, and service health"
	case errors.Is(err, services.ErrStorage):
		return "check archive credentials and bucket permissions"
	default:
		return "check logs for details"
	}
}
