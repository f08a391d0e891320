package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// fileState is what the poller compares between ticks.
type fileState struct {
	exists  bool
	size    int64
	modTime time.Time
}

func (s *Store) state() fileState {
	info, err := os.Stat(s.Path())
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, size: info.Size(), modTime: info.ModTime()}
}

// Subscribe delivers the current room contents, then a fresh snapshot after
// every change to the document. Changes are picked up from fsnotify events on
// the rooms directory (debounced) and from a stat poll that covers file
// systems without event support. The returned Unsubscribe blocks until the
// watch goroutine has exited and must not be called from fn.
func (s *Store) Subscribe(ctx context.Context, order chat.Order, fn chat.SnapshotFunc) (chat.Unsubscribe, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, chat.TransportError("create rooms directory", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Warn().Err(err).Msg("fsnotify unavailable, polling only")
		watcher = nil
	} else if err := watcher.Add(s.dir); err != nil {
		s.log.Warn().Err(err).Str("dir", s.dir).Msg("cannot watch rooms directory, polling only")
		_ = watcher.Close()
		watcher = nil
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go s.watch(ctx, watcher, order, fn, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func (s *Store) watch(ctx context.Context, watcher *fsnotify.Watcher, order chat.Order, fn chat.SnapshotFunc, done chan<- struct{}) {
	defer close(done)

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if watcher != nil {
		defer watcher.Close() //nolint:errcheck
		events = watcher.Events
		errs = watcher.Errors
	}

	poll := time.NewTicker(s.pollInterval)
	defer poll.Stop()

	settle := time.NewTimer(s.debounce)
	settle.Stop()
	defer settle.Stop()

	last := s.state()
	s.deliver(ctx, order, fn)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if s.relevant(ev) {
				settle.Reset(s.debounce)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.log.Warn().Err(err).Msg("watch error")

		case <-settle.C:
			last = s.state()
			s.deliver(ctx, order, fn)

		case <-poll.C:
			if cur := s.state(); cur != last {
				last = cur
				s.deliver(ctx, order, fn)
			}
		}
	}
}

// relevant reports whether ev touches the room document itself. Lock and
// temp files live next to it and are ignored.
func (s *Store) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != filepath.Clean(s.Path()) {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}

func (s *Store) deliver(ctx context.Context, order chat.Order, fn chat.SnapshotFunc) {
	if ctx.Err() != nil {
		return
	}

	records, err := s.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("room", s.room).Msg("load room failed")
		fn(chat.Snapshot{Err: chat.TransportError("load room", err)})
		return
	}

	order.Sort(records)
	s.log.Debug().Str("room", s.room).Int("records", len(records)).Msg("room snapshot")
	fn(chat.Snapshot{Records: records})
}
