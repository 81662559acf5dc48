/*
Copyright 2026 The Flux authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-logr/logr"
)

// DefaultPath is the location of the snapshot file relative to the working
// directory.
const DefaultPath = "data/keys.txt"

// Writer owns the snapshot file. Callers signal that the state changed with
// Notify; a single Run loop renders the Source and replaces the file.
// Signals that arrive while a write is in progress are coalesced into one
// further write.
type Writer struct {
	path   string
	log    logr.Logger
	notify chan struct{}

	mu sync.Mutex
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger used to report write failures.
func WithLogger(log logr.Logger) Option {
	return func(w *Writer) {
		w.log = log
	}
}

// NewWriter returns a Writer for the file at path. An empty path selects
// DefaultPath.
func NewWriter(path string, opts ...Option) *Writer {
	if path == "" {
		path = DefaultPath
	}
	w := &Writer{
		path:   path,
		log:    logr.Discard(),
		notify: make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Path returns the path of the snapshot file.
func (w *Writer) Path() string {
	return w.path
}

// Notify requests a write. It never blocks.
func (w *Writer) Notify() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Run writes the snapshot of src every time Notify is called, until ctx is
// done. A pending request is flushed before returning. Write failures are
// logged and do not stop the loop.
func (w *Writer) Run(ctx context.Context, src Source) error {
	for {
		select {
		case <-ctx.Done():
			select {
			case <-w.notify:
				w.writeAndLog(src)
			default:
			}
			return nil
		case <-w.notify:
			w.writeAndLog(src)
		}
	}
}

func (w *Writer) writeAndLog(src Source) {
	if err := w.Write(src); err != nil {
		w.log.Error(err, "failed to write snapshot", "path", w.path)
		return
	}
	w.log.V(1).Info("snapshot written", "path", w.path)
}

// Write renders src and replaces the snapshot file with the result. The
// content is written to a temporary file next to the target and then
// renamed over it, so readers never observe a partial file.
func (w *Writer) Write(src Source) error {
	data, err := Render(src.Snapshot())
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	tmpPath := fmt.Sprintf("%s.tmp", w.path)
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create temporary snapshot file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return errors.Join(err, os.Remove(tmpPath))
	}
	// sync the file to disk straight away
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Join(err, os.Remove(tmpPath))
	}
	if err := f.Close(); err != nil {
		return errors.Join(err, os.Remove(tmpPath))
	}

	if err := os.Rename(tmpPath, w.path); err != nil {
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}
	return nil
}
