package dispatch

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"restronaut/internal/archive"
	"restronaut/internal/config"
	"restronaut/internal/document"
	"restronaut/internal/services"
)

// Archiver uploads eligible finalized checks to object storage.
type Archiver struct {
	store          archive.Store
	bucket         string
	storeName      string
	timeout        time.Duration
	requireSuccess bool
	now            func() time.Time
}

// NewArchiver builds an archiver. A nil or Noop store disables archiving.
func NewArchiver(store archive.Store, cfg config.Archive) *Archiver {
	return &Archiver{
		store:          store,
		bucket:         cfg.Bucket,
		storeName:      cfg.StoreName,
		timeout:        time.Duration(cfg.TimeoutSeconds) * time.Second,
		requireSuccess: cfg.RequireSuccess,
		now:            time.Now,
	}
}

// WithClock overrides the clock used to derive keys.
func (a *Archiver) WithClock(now func() time.Time) *Archiver {
	a.now = now
	return a
}

// Enabled reports whether a real store is configured.
func (a *Archiver) Enabled() bool {
	if a == nil || a.store == nil || a.bucket == "" {
		return false
	}
	_, noop := a.store.(archive.Noop)
	return !noop
}

// RequireSuccess reports whether an upload failure must keep the source file.
func (a *Archiver) RequireSuccess() bool {
	return a != nil && a.requireSuccess
}

// Archive uploads path when archiving is enabled, doc is a finalized check, and
// the file name starts with D. It returns the object key and whether an upload
// happened.
func (a *Archiver) Archive(ctx context.Context, doc *document.Document, path string) (string, bool, error) {
	if !a.Enabled() || doc == nil || doc.Kind != document.KindCheckFinalization {
		return "", false, nil
	}
	name := filepath.Base(path)
	if !archive.Eligible(name) {
		return "", false, nil
	}
	key := archive.Key(a.now(), a.storeName, name)

	putCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		putCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if err := a.store.Put(putCtx, a.bucket, key, path); err != nil {
		if !errors.Is(err, services.ErrStorage) {
			err = services.Wrap(services.ErrStorage, "dispatch", "archive", key, err)
		}
		return key, false, err
	}
	return key, true, nil
}
