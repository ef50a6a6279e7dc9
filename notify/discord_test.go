package notify

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mkondo/battlewatch/domain/monitor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// webhookSink records webhook deliveries: uploaded filenames for multipart
// posts, message content for JSON posts.
type webhookSink struct {
	mu       sync.Mutex
	files    []string
	messages []string
}

func (s *webhookSink) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		switch {
		case strings.HasPrefix(ct, "multipart/form-data"):
			if err := r.ParseMultipartForm(16 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			for _, fhs := range r.MultipartForm.File {
				for _, fh := range fhs {
					s.mu.Lock()
					s.files = append(s.files, fh.Filename)
					s.mu.Unlock()
				}
			}
		case strings.HasPrefix(ct, "application/json"):
			var body struct {
				Content string `json:"content"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			s.mu.Lock()
			s.messages = append(s.messages, body.Content)
			s.mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *webhookSink) uploaded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.files))
	copy(out, s.files)
	return out
}

func (s *webhookSink) contents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.messages))
	copy(out, s.messages)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWatcherPostsNewImagesOnce(t *testing.T) {
	sink := &webhookSink{}
	srv := httptest.NewServer(sink.handler())
	defer srv.Close()

	dir := t.TempDir()
	// Pre-existing files must never be posted.
	if err := os.WriteFile(filepath.Join(dir, "old.png"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(dir, srv.URL, testLogger())
	w.Start()
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "new.png"), []byte("fresh capture"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 10*time.Second, func() bool { return len(sink.uploaded()) >= 1 })

	got := sink.uploaded()
	if len(got) != 1 || got[0] != "new.png" {
		t.Fatalf("uploads = %v, want [new.png]", got)
	}

	// Another scan round must not repost the same file.
	time.Sleep(3 * scanInterval / 2)
	if got := sink.uploaded(); len(got) != 1 {
		t.Fatalf("file posted more than once: %v", got)
	}
}

func TestWatcherIgnoresNonImageFiles(t *testing.T) {
	sink := &webhookSink{}
	srv := httptest.NewServer(sink.handler())
	defer srv.Close()

	dir := t.TempDir()
	w := NewWatcher(dir, srv.URL, testLogger())
	w.Start()
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(3 * scanInterval / 2)
	if got := sink.uploaded(); len(got) != 0 {
		t.Fatalf("non-image file uploaded: %v", got)
	}
}

func TestWatcherDisabledWithoutURL(t *testing.T) {
	w := NewWatcher(t.TempDir(), "", testLogger())
	w.Start()
	// Stop must return immediately for a disabled watcher.
	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a disabled watcher")
	}
}

func TestEventNotifierPostsEvents(t *testing.T) {
	sink := &webhookSink{}
	srv := httptest.NewServer(sink.handler())
	defer srv.Close()

	n := NewEventNotifier(srv.URL, testLogger())
	at := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)
	n.Emit(monitor.EventStarted, at)
	n.Emit(monitor.EventStopRequested, at.Add(time.Minute))

	waitFor(t, 5*time.Second, func() bool { return len(sink.contents()) >= 2 })
	got := sink.contents()
	if !strings.Contains(got[0], monitor.EventStarted.String()) {
		t.Fatalf("first message %q does not name the started event", got[0])
	}
	if !strings.Contains(got[0], "2026-08-01T12:30:00Z") {
		t.Fatalf("first message %q does not carry the timestamp", got[0])
	}
	if !strings.Contains(got[1], monitor.EventStopRequested.String()) {
		t.Fatalf("second message %q does not name the stop request", got[1])
	}
}

func TestEventNotifierDisabledWithoutURL(t *testing.T) {
	n := NewEventNotifier("", testLogger())
	// Must not block or panic with no delivery goroutine running.
	for i := 0; i < 64; i++ {
		n.Emit(monitor.EventStarted, time.Now())
	}
	n.Close()
}

func TestEventNotifierCloseDrainsAndStops(t *testing.T) {
	sink := &webhookSink{}
	srv := httptest.NewServer(sink.handler())
	defer srv.Close()

	n := NewEventNotifier(srv.URL, testLogger())
	n.Emit(monitor.EventStarted, time.Now())
	n.Emit(monitor.EventStopRequested, time.Now())

	done := make(chan struct{})
	go func() {
		n.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	// Queued events were delivered before the goroutine exited.
	if got := sink.contents(); len(got) != 2 {
		t.Fatalf("delivered %d messages, want 2", len(got))
	}

	// Late emits and repeated closes are harmless no-ops.
	n.Emit(monitor.EventStoppedOnExit, time.Now())
	n.Close()
	if got := sink.contents(); len(got) != 2 {
		t.Fatalf("message delivered after Close: %v", sink.contents())
	}
}
