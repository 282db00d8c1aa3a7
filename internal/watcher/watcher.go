package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/markdave123-py/officerag/internal/core"
	"github.com/markdave123-py/officerag/internal/core/chunker"
	"github.com/markdave123-py/officerag/internal/models"
)

type ChangeType int

const (
	ChangeUpserted ChangeType = iota + 1
	ChangeDeleted
)

func (t ChangeType) String() string {
	switch t {
	case ChangeUpserted:
		return "upserted"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is one settled file event in the watched directory.
type Change struct {
	Type ChangeType
	Path string
}

// Watcher reports changes to supported office files in one directory.
// Bursts of events on a path collapse into one Change after Debounce.
type Watcher struct {
	dir      string
	Debounce time.Duration
	log      *slog.Logger
}

func New(dir string) *Watcher {
	return &Watcher{dir: dir, Debounce: 500 * time.Millisecond, log: slog.With("component", "watcher", "dir", dir)}
}

// Scan lists the supported files currently in the directory, sorted by name.
func (w *Watcher) Scan() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !supported(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(w.dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Watch starts watching and returns the change stream. The channel closes
// when ctx is done.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}

	out := make(chan Change, 16)
	go w.loop(ctx, fw, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- Change) {
	defer close(out)
	defer fw.Close()

	type pending struct {
		change Change
		at     time.Time
	}
	queued := map[string]pending{}
	tick := time.NewTicker(max(w.Debounce/4, 10*time.Millisecond))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if c := w.handleFsEvent(ev); c != nil {
				queued[c.Path] = pending{change: *c, at: time.Now()}
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		case now := <-tick.C:
			for path, p := range queued {
				if now.Sub(p.at) < w.Debounce {
					continue
				}
				delete(queued, path)
				select {
				case out <- p.change:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// handleFsEvent maps a raw event to a Change, or nil when it is not relevant.
func (w *Watcher) handleFsEvent(ev fsnotify.Event) *Change {
	if !supported(filepath.Base(ev.Name)) {
		return nil
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, Path: ev.Name}
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		return &Change{Type: ChangeUpserted, Path: ev.Name}
	default:
		return nil
	}
}

// supported skips hidden files, editor lock files and unknown extensions.
func supported(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return false
	}
	_, err := chunker.DetectFormat(name)
	return err == nil
}

// Ingestor is the part of the coordinator a sync needs.
type Ingestor interface {
	IngestFile(ctx context.Context, path string) (*models.Document, error)
	Delete(ctx context.Context, filename string) error
}

// Apply mirrors one change into the ingestor. A changed file replaces the
// previous version: its old vectors are deleted before it is ingested again.
func Apply(ctx context.Context, ing Ingestor, c Change) error {
	name := filepath.Base(c.Path)
	switch c.Type {
	case ChangeDeleted:
		if err := ing.Delete(ctx, name); err != nil && !errors.Is(err, core.ErrNotFound) {
			return err
		}
		return nil
	case ChangeUpserted:
		if err := ing.Delete(ctx, name); err != nil && !errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("replace %s: %w", name, err)
		}
		_, err := ing.IngestFile(ctx, c.Path)
		return err
	default:
		return fmt.Errorf("unknown change type %d", c.Type)
	}
}

// Syncer is an Ingestor that can also report whether a file is indexed.
type Syncer interface {
	Ingestor
	Get(ctx context.Context, filename string) (*models.Document, error)
}

// Sync ingests every supported file not indexed yet, then applies changes
// until ctx is done. report receives the outcome of each step. The watch is
// started before the directory is scanned, so a file written during the
// initial ingest is still picked up.
func (w *Watcher) Sync(ctx context.Context, s Syncer, report func(Change, error)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	files, err := w.Scan()
	if err != nil {
		return fmt.Errorf("scan %s: %w", w.dir, err)
	}
	for _, path := range files {
		_, err := s.Get(ctx, filepath.Base(path))
		if err == nil {
			continue
		}
		if !errors.Is(err, core.ErrNotFound) {
			return err
		}
		_, err = s.IngestFile(ctx, path)
		report(Change{Type: ChangeUpserted, Path: path}, err)
	}

	for c := range changes {
		report(c, Apply(ctx, s, c))
	}
	return nil
}
