package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ============================================================================
// Helpers
// ============================================================================

func writeDataFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "airport.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func startWatcher(t *testing.T, path string, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(path, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

// ============================================================================
// Debouncer
// ============================================================================

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	var calls atomic.Int32

	for i := 0; i < 10; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	if n := calls.Load(); n != 1 {
		t.Errorf("Expected 1 invocation, got %d", n)
	}
}

func TestDebouncer_LastTriggerWins(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var got atomic.Int32

	d.Trigger(func() { got.Store(1) })
	d.Trigger(func() { got.Store(2) })
	time.Sleep(120 * time.Millisecond)

	if got.Load() != 2 {
		t.Errorf("Expected last trigger to run, got %d", got.Load())
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	var called atomic.Bool

	d.Trigger(func() { called.Store(true) })
	d.Cancel()
	time.Sleep(120 * time.Millisecond)

	if called.Load() {
		t.Error("Expected no invocation after Cancel")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	if d := NewDebouncer(0); d.Duration() != DefaultDebounceDuration {
		t.Errorf("Expected %v, got %v", DefaultDebounceDuration, d.Duration())
	}
	if d := NewDebouncer(-time.Second); d.Duration() != DefaultDebounceDuration {
		t.Errorf("Expected %v for negative duration, got %v", DefaultDebounceDuration, d.Duration())
	}
}

// ============================================================================
// Watcher
// ============================================================================

func TestWatcher_DetectsFileChange(t *testing.T) {
	path := writeDataFile(t, "title: a\n")

	var changed atomic.Bool
	startWatcher(t, path,
		WithDebounceDuration(50*time.Millisecond),
		WithOnChange(func() { changed.Store(true) }),
	)
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("title: modified\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Polling may be active on an unusual temp filesystem.
	deadline := time.Now().Add(3 * time.Second)
	for !changed.Load() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	if !changed.Load() {
		t.Error("Expected change to be detected")
	}
}

func TestWatcher_PollingFallback(t *testing.T) {
	path := writeDataFile(t, "title: a\n")

	var changed atomic.Bool
	w := startWatcher(t, path,
		WithDebounceDuration(50*time.Millisecond),
		WithPollInterval(100*time.Millisecond),
		WithForcePoll(true),
		WithOnChange(func() { changed.Store(true) }),
	)
	if !w.IsPolling() {
		t.Fatal("Expected polling mode")
	}

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("title: modified via polling\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(400 * time.Millisecond)

	if !changed.Load() {
		t.Error("Expected change to be detected via polling")
	}
}

func TestWatcher_ChangedChannel(t *testing.T) {
	path := writeDataFile(t, "title: a\n")
	w := startWatcher(t, path,
		WithDebounceDuration(50*time.Millisecond),
		WithPollInterval(100*time.Millisecond),
		WithForcePoll(true),
	)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(path, []byte("title: new content\n"), 0o644)
	}()

	select {
	case <-w.Changed():
	case <-time.After(time.Second):
		t.Error("Timed out waiting for change notification")
	}
}

func TestWatcher_RecreatedFileCountsAsChange(t *testing.T) {
	path := writeDataFile(t, "title: a\n")

	var (
		mu      sync.Mutex
		errs    []error
		changes atomic.Int32
	)
	startWatcher(t, path,
		WithDebounceDuration(20*time.Millisecond),
		WithPollInterval(50*time.Millisecond),
		WithForcePoll(true),
		WithOnChange(func() { changes.Add(1) }),
		WithOnError(func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}),
	)

	time.Sleep(30 * time.Millisecond)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(path, []byte("title: back\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(errs) == 0 || !errors.Is(errs[0], ErrFileRemoved) {
		t.Errorf("Expected ErrFileRemoved first, got %v", errs)
	}
	if changes.Load() == 0 {
		t.Error("Expected recreation to be reported as a change")
	}
}

func TestWatcher_EnvForcePolling(t *testing.T) {
	for _, name := range []string{EnvForcePolling, EnvForcePoll} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, "true")
			w := startWatcher(t, writeDataFile(t, "x: 1\n"), WithPollInterval(25*time.Millisecond))
			if !w.IsPolling() {
				t.Fatalf("Expected polling mode when %s is set", name)
			}
		})
	}
}

func TestWatcher_RemoteFilesystemUsesPolling(t *testing.T) {
	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(string) FilesystemType { return FSTypeNFS }
	t.Cleanup(func() { detectFilesystemTypeFunc = orig })

	w := startWatcher(t, writeDataFile(t, "x: 1\n"), WithPollInterval(25*time.Millisecond))

	if !w.IsPolling() {
		t.Fatal("Expected polling on a remote filesystem")
	}
	if got := w.FilesystemType(); got != FSTypeNFS {
		t.Fatalf("Expected %v, got %v", FSTypeNFS, got)
	}
}

func TestWatcher_MissingFileIsAllowed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later.yaml")
	w := startWatcher(t, path, WithForcePoll(true), WithPollInterval(25*time.Millisecond))
	if !w.IsStarted() {
		t.Fatal("Expected watcher to start for a file that does not exist yet")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	w, err := New(writeDataFile(t, "x: 1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if w.IsStarted() {
		t.Error("Expected watcher to be stopped initially")
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if !w.IsStarted() {
		t.Error("Expected watcher to be started")
	}
	if err := w.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Expected ErrAlreadyStarted, got %v", err)
	}
	w.Stop()
	if w.IsStarted() {
		t.Error("Expected watcher to be stopped after Stop")
	}
	w.Stop()
}

func TestWatcher_PathAndInterval(t *testing.T) {
	path := writeDataFile(t, "x: 1\n")
	w, err := New(path, WithPollInterval(500*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	abs, _ := filepath.Abs(path)
	if w.Path() != abs {
		t.Errorf("Expected path %s, got %s", abs, w.Path())
	}
	if w.PollInterval() != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %v", w.PollInterval())
	}

	w, _ = New(path, WithPollInterval(0))
	if w.PollInterval() != DefaultPollInterval {
		t.Errorf("Expected default interval for zero, got %v", w.PollInterval())
	}
}

// ============================================================================
// Filesystem detection
// ============================================================================

func TestFilesystemType_String(t *testing.T) {
	tests := []struct {
		fsType   FilesystemType
		expected string
	}{
		{FSTypeUnknown, "unknown"},
		{FSTypeLocal, "local"},
		{FSTypeNFS, "nfs"},
		{FSTypeSMB, "smb"},
		{FSTypeSSHFS, "sshfs"},
		{FSTypeFUSE, "fuse"},
		{FilesystemType(99), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.fsType.String(); got != tc.expected {
			t.Errorf("FilesystemType(%d).String() = %q, expected %q", tc.fsType, got, tc.expected)
		}
	}
}

func TestIsRemoteFilesystem(t *testing.T) {
	for _, ft := range []FilesystemType{FSTypeNFS, FSTypeSMB, FSTypeSSHFS, FSTypeFUSE} {
		if !isRemoteFilesystem(ft) {
			t.Errorf("Expected %v to be remote", ft)
		}
	}
	for _, ft := range []FilesystemType{FSTypeUnknown, FSTypeLocal} {
		if isRemoteFilesystem(ft) {
			t.Errorf("Expected %v to be treated as local", ft)
		}
	}
}

func TestDetectFilesystemType_EmptyPath(t *testing.T) {
	if got := DetectFilesystemType(""); got != FSTypeUnknown {
		t.Errorf("Expected FSTypeUnknown, got %v", got)
	}
}

func TestDetectFilesystemType_NonExistentPath(t *testing.T) {
	// Falls back to the parent directory; must not panic.
	_ = DetectFilesystemType(filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{" yes ", true},
		{"y", true},
		{"on", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"", false},
		{"invalid", false},
	}
	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv("ARCHTRACE_TEST_ENV_BOOL", tc.value)
			if got := envBool("ARCHTRACE_TEST_ENV_BOOL"); got != tc.expected {
				t.Errorf("envBool(%q) = %v, expected %v", tc.value, got, tc.expected)
			}
		})
	}
}
