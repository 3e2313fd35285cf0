package workflow

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"restronaut/internal/config"
	"restronaut/internal/dispatch"
	"restronaut/internal/document"
	"restronaut/internal/logging"
	"restronaut/internal/retry"
	"restronaut/internal/services"
	"restronaut/internal/testsupport"
)

const (
	checkWithMemo = `<?xml version="1.0" encoding="utf-8"?>
<CheckFinalization><CheckNumber>42</CheckNumber><Memo>123456</Memo></CheckFinalization>`
	checkWithShortMemo = `<CheckFinalization><Memo>1234</Memo></CheckFinalization>`
	prepShortMemo      = `<PrepOrder><StoreNumber>7</StoreNumber><CheckHeader><CheckNumber>9</CheckNumber></CheckHeader><Option><Memo>12345</Memo></Option></PrepOrder>`
)

type recordingNotifier struct {
	mu           sync.Mutex
	retained     []string
	unrecognized []string
}

func (n *recordingNotifier) NotifyFileRetained(_ context.Context, _, path string, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.retained = append(n.retained, path)
	return nil
}

func (n *recordingNotifier) NotifyUnrecognized(_ context.Context, _, path, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unrecognized = append(n.unrecognized, path)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

type harness struct {
	cfg      *config.Config
	orders   *testsupport.FakeOrderService
	store    *testsupport.FakeStore
	notifier *recordingNotifier
	proc     *Processor
}

func newHarness(t *testing.T, dir func(*config.Config) config.Directory, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithArchive("checks", "Main Street")}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	h := &harness{
		cfg:      cfg,
		orders:   &testsupport.FakeOrderService{},
		store:    &testsupport.FakeStore{Files: os.ReadFile},
		notifier: &recordingNotifier{},
	}
	now := func() time.Time { return time.Date(2024, time.March, 9, 14, 5, 0, 0, time.UTC) }
	archiver := dispatch.NewArchiver(h.store, cfg.Archive).WithClock(now)
	h.proc = NewProcessor(dir(cfg), dispatch.NewReporter(h.orders), logging.NewNop(),
		WithArchiver(archiver),
		WithNotifier(h.notifier),
	)
	return h
}

func salesDir(cfg *config.Config) config.Directory  { return cfg.Directories()[0] }
func manualDir(cfg *config.Config) config.Directory { return cfg.Directories()[1] }

func (h *harness) drop(t *testing.T, dir config.Directory, name, content string) DropFile {
	t.Helper()
	path := testsupport.WriteFile(t, filepath.Join(dir.Path, name), content)
	return NewDropFile(path, TriggerCreate)
}

func TestProcessCheckWithMemoReportsArchivesAndDeletes(t *testing.T) {
	h := newHarness(t, salesDir)
	file := h.drop(t, h.proc.Directory(), "D_test.xml", checkWithMemo)

	res := h.proc.Process(context.Background(), file)
	if res.Outcome != OutcomeDeleted {
		t.Fatalf("expected deleted, got %s (err=%v)", res.Outcome, res.Err)
	}
	if h.orders.Count() != 1 || h.orders.Calls[0].Endpoint != "instore-sales-report" {
		t.Fatalf("expected one instore report, got %+v", h.orders.Calls)
	}
	if h.store.Count() != 1 {
		t.Fatalf("expected one upload, got %d", h.store.Count())
	}
	put := h.store.Puts[0]
	if put.Bucket != "checks" {
		t.Fatalf("unexpected bucket %q", put.Bucket)
	}
	wantKey := "March/Week_2/2024_March_09_14:05_Main_Street_D_test.xml"
	if put.Key != wantKey || res.ArchiveKey != wantKey {
		t.Fatalf("key = %q, want %q", put.Key, wantKey)
	}
	if put.Content != checkWithMemo {
		t.Fatalf("uploaded content mismatch: %q", put.Content)
	}
	if testsupport.Exists(t, file.Path) {
		t.Fatal("expected file to be deleted")
	}
	snap := h.proc.Stats()
	if snap.Deleted != 1 || snap.Reported != 1 || snap.Archived != 1 {
		t.Fatalf("unexpected stats %+v", snap)
	}
}

func TestProcessCheckWithInvalidMemoArchivesWithoutReport(t *testing.T) {
	h := newHarness(t, salesDir)
	file := h.drop(t, h.proc.Directory(), "D_short.xml", checkWithShortMemo)

	res := h.proc.Process(context.Background(), file)
	if res.Outcome != OutcomeDeleted {
		t.Fatalf("expected deleted, got %s (err=%v)", res.Outcome, res.Err)
	}
	if h.orders.Count() != 0 {
		t.Fatalf("expected no reports, got %d", h.orders.Count())
	}
	if h.store.Count() != 1 {
		t.Fatalf("expected one upload, got %d", h.store.Count())
	}
	if res.Reported {
		t.Fatal("expected Reported=false")
	}
}

func TestProcessCheckNotStartingWithDIsNotArchived(t *testing.T) {
	h := newHarness(t, salesDir)
	file := h.drop(t, h.proc.Directory(), "check.xml", checkWithMemo)

	res := h.proc.Process(context.Background(), file)
	if res.Outcome != OutcomeDeleted {
		t.Fatalf("expected deleted, got %s", res.Outcome)
	}
	if h.store.Count() != 0 {
		t.Fatalf("expected no uploads, got %d", h.store.Count())
	}
	if h.orders.Count() != 1 {
		t.Fatalf("expected one report, got %d", h.orders.Count())
	}
}

func TestProcessPrepOrderWithShortMemoDeletesWithoutReport(t *testing.T) {
	h := newHarness(t, salesDir)
	file := h.drop(t, h.proc.Directory(), "D_prep.xml", prepShortMemo)

	res := h.proc.Process(context.Background(), file)
	if res.Outcome != OutcomeDeleted {
		t.Fatalf("expected deleted, got %s (err=%v)", res.Outcome, res.Err)
	}
	if h.orders.Count() != 0 || h.store.Count() != 0 {
		t.Fatalf("expected no calls, got %d reports %d uploads", h.orders.Count(), h.store.Count())
	}
}

func TestProcessOpenChecksSnapshotIsDiscarded(t *testing.T) {
	h := newHarness(t, salesDir)
	file := h.drop(t, h.proc.Directory(), "OpenChks_1.xml", "not even xml")

	res := h.proc.Process(context.Background(), file)
	if res.Outcome != OutcomeDiscarded {
		t.Fatalf("expected discarded, got %s", res.Outcome)
	}
	if testsupport.Exists(t, file.Path) {
		t.Fatal("expected snapshot removed")
	}
	if h.orders.Count() != 0 || h.store.Count() != 0 {
		t.Fatal("expected no remote calls for a snapshot")
	}
}

func TestProcessManualOrderCreatesOrder(t *testing.T) {
	h := newHarness(t, manualDir)
	file := h.drop(t, h.proc.Directory(), "OUT001.xml", "<ManualOrder/>")

	res := h.proc.Process(context.Background(), file)
	if res.Outcome != OutcomeDeleted {
		t.Fatalf("expected deleted, got %s (err=%v)", res.Outcome, res.Err)
	}
	if h.orders.Count() != 1 {
		t.Fatalf("expected one call, got %d", h.orders.Count())
	}
	call := h.orders.Calls[0]
	if call.Endpoint != "create-order" || call.Body["xml"] != "<ManualOrder/>" {
		t.Fatalf("unexpected call %+v", call)
	}
}

func TestProcessUnrecognizedRootIsSkipped(t *testing.T) {
	h := newHarness(t, salesDir)
	file := h.drop(t, h.proc.Directory(), "D_popup.xml", `<PopupRequest><Terminal>1</Terminal></PopupRequest>`)

	res := h.proc.Process(context.Background(), file)
	if res.Outcome != OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", res.Outcome)
	}
	if !testsupport.Exists(t, file.Path) {
		t.Fatal("expected file retained")
	}
	if res.Kind != document.KindPopupRequest || res.Root != "PopupRequest" {
		t.Fatalf("unexpected classification %s/%s", res.Kind, res.Root)
	}
	if len(h.notifier.unrecognized) != 1 {
		t.Fatalf("expected unrecognized notification, got %d", len(h.notifier.unrecognized))
	}
	if snap := h.proc.Stats(); snap.Skipped != 1 || snap.Unrecognized != 1 {
		t.Fatalf("unexpected stats %+v", snap)
	}
}

func TestProcessMalformedXMLIsRetained(t *testing.T) {
	h := newHarness(t, salesDir)
	file := h.drop(t, h.proc.Directory(), "D_bad.xml", "<CheckFinalization><Memo>")

	res := h.proc.Process(context.Background(), file)
	if res.Outcome != OutcomeRetained {
		t.Fatalf("expected retained, got %s", res.Outcome)
	}
	if !errors.Is(res.Err, services.ErrParse) {
		t.Fatalf("expected parse error, got %v", res.Err)
	}
	if res.Attempts != 1 {
		t.Fatalf("parse errors should not be retried, got %d attempts", res.Attempts)
	}
	if !testsupport.Exists(t, file.Path) {
		t.Fatal("expected file retained")
	}
	if len(h.notifier.retained) != 1 {
		t.Fatalf("expected retained notification, got %d", len(h.notifier.retained))
	}
}

func TestProcessSecondRootIsRetainedUnreported(t *testing.T) {
	h := newHarness(t, salesDir)
	file := h.drop(t, h.proc.Directory(), "D_two.xml", "<CheckFinalization><Memo>123456</Memo></CheckFinalization><CheckFinalization/>")

	res := h.proc.Process(context.Background(), file)
	if res.Outcome != OutcomeRetained || !errors.Is(res.Err, services.ErrParse) {
		t.Fatalf("expected retained parse error, got %s %v", res.Outcome, res.Err)
	}
	if h.orders.Count() != 0 || h.store.Count() != 0 {
		t.Fatalf("expected no dispatch, got reports=%d puts=%d", h.orders.Count(), h.store.Count())
	}
	if !testsupport.Exists(t, file.Path) {
		t.Fatal("expected file retained")
	}
}

func TestProcessRemoteFailureRetainsFile(t *testing.T) {
	h := newHarness(t, salesDir)
	h.orders.Err = services.Wrap(services.ErrRemoteCall, "orderapi", "post", "status 500", nil)
	file := h.drop(t, h.proc.Directory(), "D_test.xml", checkWithMemo)

	res := h.proc.Process(context.Background(), file)
	if res.Outcome != OutcomeRetained {
		t.Fatalf("expected retained, got %s", res.Outcome)
	}
	if !errors.Is(res.Err, services.ErrRemoteCall) {
		t.Fatalf("expected remote error, got %v", res.Err)
	}
	if h.store.Count() != 0 {
		t.Fatal("archive must not run after a failed report")
	}
	if !testsupport.Exists(t, file.Path) {
		t.Fatal("expected file retained")
	}
}

func TestProcessArchiveFailureIsBestEffort(t *testing.T) {
	h := newHarness(t, salesDir)
	h.store.Err = errors.New("bucket unavailable")
	file := h.drop(t, h.proc.Directory(), "D_test.xml", checkWithMemo)

	res := h.proc.Process(context.Background(), file)
	if res.Outcome != OutcomeDeleted {
		t.Fatalf("expected deleted, got %s (err=%v)", res.Outcome, res.Err)
	}
	if res.Archived {
		t.Fatal("expected Archived=false")
	}
	if snap := h.proc.Stats(); snap.ArchiveFailures != 1 {
		t.Fatalf("expected one archive failure, got %+v", snap)
	}
}

func TestProcessArchiveFailureRetainsWhenRequired(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithArchive("checks", ""))
	cfg.Archive.RequireSuccess = true
	store := &testsupport.FakeStore{Err: errors.New("denied")}
	proc := NewProcessor(salesDir(cfg), dispatch.NewReporter(&testsupport.FakeOrderService{}), logging.NewNop(),
		WithArchiver(dispatch.NewArchiver(store, cfg.Archive)),
	)
	path := testsupport.WriteFile(t, filepath.Join(cfg.SalesWatch.Path, "D_test.xml"), checkWithMemo)

	res := proc.Process(context.Background(), NewDropFile(path, TriggerSweep))
	if res.Outcome != OutcomeRetained {
		t.Fatalf("expected retained, got %s", res.Outcome)
	}
	if !errors.Is(res.Err, services.ErrStorage) {
		t.Fatalf("expected storage error, got %v", res.Err)
	}
	if !testsupport.Exists(t, path) {
		t.Fatal("expected file retained")
	}
}

var errSharingViolation = errors.New("file is being used by another process")

type lockedFS struct {
	osFileSystem
	err   error
	reads int
}

func (l *lockedFS) ReadFile(string) ([]byte, error) {
	l.reads++
	return nil, l.err
}

func TestProcessLockedFileRetriesExactlyBudget(t *testing.T) {
	h := newHarness(t, salesDir, testsupport.WithRetry(4, 0))
	locked := &lockedFS{err: errSharingViolation}
	h.proc.fs = locked
	file := h.drop(t, h.proc.Directory(), "D_test.xml", checkWithMemo)

	res := h.proc.Process(context.Background(), file)
	if res.Outcome != OutcomeRetained {
		t.Fatalf("expected retained, got %s", res.Outcome)
	}
	if locked.reads != 4 || res.Attempts != 4 {
		t.Fatalf("expected 4 attempts, got reads=%d attempts=%d", locked.reads, res.Attempts)
	}
	if !errors.Is(res.Err, retry.ErrRetriesExhausted) || !errors.Is(res.Err, services.ErrTransientIO) {
		t.Fatalf("unexpected error chain: %v", res.Err)
	}
	if snap := h.proc.Stats(); snap.Retries != 3 || snap.Retained != 1 {
		t.Fatalf("unexpected stats %+v", snap)
	}
	if h.orders.Count() != 0 {
		t.Fatal("expected no reports")
	}
}

func TestProcessUnreadableFileIsNotRetried(t *testing.T) {
	h := newHarness(t, salesDir, testsupport.WithRetry(4, 0))
	denied := &lockedFS{err: &fs.PathError{Op: "open", Path: "D_test.xml", Err: fs.ErrPermission}}
	h.proc.fs = denied
	file := h.drop(t, h.proc.Directory(), "D_test.xml", checkWithMemo)

	res := h.proc.Process(context.Background(), file)
	if res.Outcome != OutcomeRetained {
		t.Fatalf("expected retained, got %s", res.Outcome)
	}
	if denied.reads != 1 || res.Attempts != 1 {
		t.Fatalf("expected a single attempt, got reads=%d attempts=%d", denied.reads, res.Attempts)
	}
	if !errors.Is(res.Err, services.ErrPermission) || services.IsTransient(res.Err) {
		t.Fatalf("unexpected error chain: %v", res.Err)
	}
	if got := failureHint(res.Err); !strings.Contains(got, "permissions") {
		t.Fatalf("unexpected hint %q", got)
	}
}

func TestProcessVanishedFileIsGone(t *testing.T) {
	h := newHarness(t, salesDir)
	file := NewDropFile(filepath.Join(h.proc.Directory().Path, "D_missing.xml"), TriggerCreate)

	res := h.proc.Process(context.Background(), file)
	if res.Outcome != OutcomeGone {
		t.Fatalf("expected gone, got %s", res.Outcome)
	}
	if len(h.notifier.retained) != 0 {
		t.Fatal("a vanished file is not a failure")
	}
}

func TestProcessEmptyFileIsTreatedAsStillWriting(t *testing.T) {
	h := newHarness(t, salesDir, testsupport.WithRetry(2, 0))
	file := h.drop(t, h.proc.Directory(), "D_empty.xml", "")

	res := h.proc.Process(context.Background(), file)
	if res.Outcome != OutcomeRetained {
		t.Fatalf("expected retained, got %s", res.Outcome)
	}
	if res.Attempts != 2 || !services.IsTransient(res.Err) {
		t.Fatalf("expected transient retry, attempts=%d err=%v", res.Attempts, res.Err)
	}
}
