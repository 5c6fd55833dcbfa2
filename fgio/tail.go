package fgio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileTail follows a file that FlightGear appends generic records to
// (--generic=file,out,<hz>,<path>,<protocol>). Existing content is skipped.
// In last-only mode each read applies only the newest complete record,
// otherwise every record read is applied.
type FileTail struct {
	path     string
	sink     *Sink
	poll     time.Duration
	lastOnly bool

	f      *os.File
	offset int64
}

// NewFileTail creates a tail. poll is a fallback re-check interval for
// filesystems without change notification; zero disables it.
func NewFileTail(path string, sink *Sink, poll time.Duration, lastOnly bool) *FileTail {
	return &FileTail{path: filepath.Clean(path), sink: sink, poll: poll, lastOnly: lastOnly}
}

// Open opens the file and seeks to its end.
func (t *FileTail) Open() error {
	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("open tail file: %w", err)
	}
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return fmt.Errorf("seek tail file: %w", err)
	}
	t.f = f
	t.offset = end
	return nil
}

// Run watches the file until ctx is done.
func (t *FileTail) Run(ctx context.Context) error {
	if t.f == nil {
		if err := t.Open(); err != nil {
			return err
		}
	}
	defer t.f.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// watch the directory so a re-created file is noticed
	if err := watcher.Add(filepath.Dir(t.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(t.path), err)
	}
	slog.Info("generic file tail started", "transport", t.sink.Name, "path", t.path, "offset", t.offset)

	var pollC <-chan time.Time
	if t.poll > 0 {
		ticker := time.NewTicker(t.poll)
		defer ticker.Stop()
		pollC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != t.path {
				continue
			}
			if event.Has(fsnotify.Create) {
				if err := t.reopen(); err != nil {
					slog.Warn("reopen tail file failed", "path", t.path, "error", err)
					continue
				}
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				t.readNew()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("tail watcher error", "path", t.path, "error", err)
		case <-pollC:
			t.readNew()
		}
	}
}

func (t *FileTail) reopen() error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	t.f.Close()
	t.f = f
	t.offset = 0
	t.sink.Stream.Reset()
	return nil
}

// readNew feeds everything appended since the last read.
func (t *FileTail) readNew() {
	info, err := t.f.Stat()
	if err != nil {
		slog.Warn("stat tail file failed", "path", t.path, "error", err)
		return
	}
	if info.Size() < t.offset {
		slog.Info("tail file truncated, rewinding", "path", t.path, "size", info.Size(), "offset", t.offset)
		t.offset = 0
		t.sink.Stream.Reset()
	}
	if info.Size() == t.offset {
		return
	}

	data := make([]byte, info.Size()-t.offset)
	n, err := t.f.ReadAt(data, t.offset)
	if err != nil && err != io.EOF {
		slog.Warn("read tail file failed", "path", t.path, "error", err)
		return
	}
	t.offset += int64(n)
	t.sink.feed(data[:n], t.lastOnly)
}
