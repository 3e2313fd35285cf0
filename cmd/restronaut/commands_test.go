package main

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"restronaut/internal/archive"
	"restronaut/internal/daemon"
	"restronaut/internal/dispatch"
	"restronaut/internal/logging"
	"restronaut/internal/testsupport"
)

const checkWithMemo = `<CheckFinalization><CheckNumber>42</CheckNumber><Memo>123456</Memo></CheckFinalization>`

func TestArchiveKeyCommand(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithArchive("checks", "Main Street"))

	out, stderr, err := runCLI(t, []string{"archive-key", "--at", "2024-03-09T14:05:00Z", "/tmp/D_test.xml"}, env.configPath)
	if err != nil {
		t.Fatalf("archive-key: %v", err)
	}
	if got := strings.TrimSpace(out); got != "March/Week_2/2024_March_09_14:05_Main_Street_D_test.xml" {
		t.Fatalf("unexpected key %q", got)
	}
	if stderr != "" {
		t.Fatalf("unexpected note for eligible file: %q", stderr)
	}

	out, stderr, err = runCLI(t, []string{"archive-key", "--at", "2024-03-01T00:00:00Z", "--store", "", "check.xml"}, env.configPath)
	if err != nil {
		t.Fatalf("archive-key: %v", err)
	}
	if got := strings.TrimSpace(out); got != "March/Week_1/2024_March_01_00:00_check.xml" {
		t.Fatalf("unexpected key %q", got)
	}
	requireContains(t, stderr, "only files whose name starts with D")
}

func TestProcessCommandReportsAndDeletes(t *testing.T) {
	env := setupCLITestEnv(t)
	path := testsupport.WriteFile(t, filepath.Join(env.cfg.SalesWatch.Path, "D_test.xml"), checkWithMemo)

	out, _, err := runCLI(t, []string{"process", path}, env.configPath)
	if err != nil {
		t.Fatalf("process: %v\n%s", err, out)
	}
	requireContains(t, out, "deleted")
	requireContains(t, out, "CheckFinalization")
	if testsupport.Exists(t, path) {
		t.Fatal("expected file deleted")
	}

	requests := env.orders.snapshot()
	if len(requests) != 1 {
		t.Fatalf("expected one remote call, got %+v", requests)
	}
	if requests[0].Path != "/instore-sales-report" || requests[0].Authorization != "test-token" || requests[0].Encoding != "gzip" {
		t.Fatalf("unexpected request %+v", requests[0])
	}
}

func TestProcessCommandNeedsRoleOutsideWatchFolders(t *testing.T) {
	env := setupCLITestEnv(t)
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "OUT1.xml"), "<ManualOrder/>")

	if _, _, err := runCLI(t, []string{"process", path}, env.configPath); err == nil {
		t.Fatal("expected error without --role")
	}

	out, _, err := runCLI(t, []string{"process", "--role", "manual_order", path}, env.configPath)
	if err != nil {
		t.Fatalf("process --role: %v\n%s", err, out)
	}
	requests := env.orders.snapshot()
	if len(requests) != 1 || requests[0].Path != "/Order" {
		t.Fatalf("expected one create-order call, got %+v", requests)
	}
}

func TestProcessCommandFailsOnRetainedFile(t *testing.T) {
	env := setupCLITestEnv(t)
	path := testsupport.WriteFile(t, filepath.Join(env.cfg.SalesWatch.Path, "D_bad.xml"), "<CheckFinalization>")

	out, _, err := runCLI(t, []string{"process", path}, env.configPath)
	if err == nil {
		t.Fatal("expected error for retained file")
	}
	requireContains(t, out, "retained")
	if !testsupport.Exists(t, path) {
		t.Fatal("malformed file must stay in place")
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	logger := logging.NewNop()
	components := daemon.NewComponents(env.cfg, dispatch.NewReporter(&testsupport.FakeOrderService{}), archive.Noop{}, logger)
	d, err := daemon.New(env.cfg, components, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	waitFor(t, 5*time.Second, func() bool { return d.Status().Running && d.Status().APIAddress != "" })
	addr := d.Status().APIAddress

	out, _, err := runCLI(t, []string{"--addr", addr, "status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running (pid")
	requireContains(t, out, "manual_order")
	requireContains(t, out, "Preflight")

	out, _, err = runCLI(t, []string{"--addr", addr, "status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var status daemon.Status
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status json: %v", err)
	}
	if len(status.Monitors) != 2 {
		t.Fatalf("expected two monitors, got %d", len(status.Monitors))
	}
}

func TestStatusCommandWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"--addr", "127.0.0.1:1", "status"}, env.configPath); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestRenderStatusLine(t *testing.T) {
	got := renderStatusLine("Restronaut", statusError, "Not running", false)
	if !strings.Contains(got, "Restronaut:") || !strings.HasSuffix(got, "[ERROR] Not running") {
		t.Fatalf("unexpected line %q", got)
	}
	colored := renderStatusLine("Restronaut", statusOK, "Running", true)
	if !strings.HasPrefix(colored, ansiGreen) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected green line, got %q", colored)
	}
}
