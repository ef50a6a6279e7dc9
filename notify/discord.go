// Package notify posts monitor output to a Discord webhook: archived capture
// images as uploads, recording lifecycle events as plain messages. Delivery
// is best-effort and never feeds back into monitor control flow.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mkondo/battlewatch/domain/monitor"
)

const (
	scanInterval  = 2 * time.Second
	settleWait    = 100 * time.Millisecond
	uploadTimeout = 15 * time.Second
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// Watcher polls a directory for new image files and uploads each one once.
// Files present before the watcher starts are skipped so a restart does not
// bulk-post the whole archive.
type Watcher struct {
	dir     string
	url     string
	logger  *slog.Logger
	client  *http.Client
	stopped atomic.Bool
	done    chan struct{}
	seen    map[string]bool
}

// NewWatcher watches dir and posts to the given webhook URL.
func NewWatcher(dir, url string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:    dir,
		url:    strings.TrimSpace(url),
		logger: logger,
		client: &http.Client{Timeout: uploadTimeout},
		done:   make(chan struct{}),
		seen:   make(map[string]bool),
	}
}

// Start begins polling. It is a no-op when the webhook URL is empty.
func (w *Watcher) Start() {
	if w.url == "" {
		w.logger.Info("webhook url not set, notifier disabled")
		close(w.done)
		return
	}
	// Seed the seen set so only files created from now on are posted.
	for _, p := range w.listImages() {
		w.seen[p] = true
	}
	go w.loop()
}

// Stop requests shutdown and waits for the loop to exit.
func (w *Watcher) Stop() {
	if w.stopped.Swap(true) {
		return
	}
	<-w.done
}

func (w *Watcher) loop() {
	defer close(w.done)
	w.logger.Info("webhook watcher started", "dir", w.dir)
	for !w.stopped.Load() {
		for _, p := range w.listImages() {
			if w.stopped.Load() {
				return
			}
			if w.seen[p] {
				continue
			}
			if !w.fileSettled(p) {
				continue
			}
			if err := w.postImage(p); err != nil {
				w.logger.Warn("webhook upload failed", "path", p, "error", err)
				continue
			}
			w.seen[p] = true
			w.logger.Info("posted image", "path", p)
		}
		w.sleep(scanInterval)
	}
}

func (w *Watcher) listImages() []string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		out = append(out, filepath.Join(w.dir, e.Name()))
	}
	sort.Strings(out)
	return out
}

// fileSettled reports whether the file size is stable, i.e. the writer has
// finished. Unsettled files are retried on the next scan.
func (w *Watcher) fileSettled(path string) bool {
	fi1, err := os.Stat(path)
	if err != nil {
		return false
	}
	time.Sleep(settleWait)
	fi2, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi1.Size() == fi2.Size()
}

func (w *Watcher) postImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	payload, _ := json.Marshal(map[string]string{"content": filepath.Base(path)})
	if err := mw.WriteField("payload_json", string(payload)); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("files[0]", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	resp, err := w.client.Post(w.url, mw.FormDataContentType(), &body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}

func (w *Watcher) sleep(d time.Duration) {
	deadline := time.Now().Add(d)
	for !w.stopped.Load() && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
}

// EventNotifier posts recording lifecycle events as webhook messages. Sends
// are queued and dropped when the queue is full so the monitor never blocks.
type EventNotifier struct {
	url    string
	logger *slog.Logger
	client *http.Client
	queue  chan string
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewEventNotifier returns a notifier; a nil value is never returned, an
// empty URL just disables delivery.
func NewEventNotifier(url string, logger *slog.Logger) *EventNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &EventNotifier{
		url:    strings.TrimSpace(url),
		logger: logger,
		client: &http.Client{Timeout: uploadTimeout},
		queue:  make(chan string, 16),
		done:   make(chan struct{}),
	}
	if n.url != "" {
		go n.deliver()
	} else {
		close(n.done)
	}
	return n
}

// Emit implements monitor.EventSink.
func (n *EventNotifier) Emit(kind monitor.EventKind, ts time.Time) {
	if n.url == "" {
		return
	}
	msg := fmt.Sprintf("recording %s at %s", kind, ts.Format(time.RFC3339))
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- msg:
	default:
		n.logger.Warn("event queue full, dropping", "kind", kind.String())
	}
}

// Close stops accepting events, delivers whatever is already queued, and
// waits for the delivery goroutine to exit. Emit after Close is a no-op.
func (n *EventNotifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	<-n.done
}

func (n *EventNotifier) deliver() {
	defer close(n.done)
	for msg := range n.queue {
		payload, _ := json.Marshal(map[string]string{"content": msg})
		resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(payload))
		if err != nil {
			n.logger.Warn("event post failed", "error", err)
			continue
		}
		resp.Body.Close()
	}
}

var _ monitor.EventSink = (*EventNotifier)(nil)
