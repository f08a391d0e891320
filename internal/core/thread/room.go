package thread

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/pkg/randid"
)

var (
	ErrAlreadyActive = errors.New("room already active")
	ErrNotActive     = errors.New("room not active")
)

const defaultQueueSize = 16

// View is what the presentation layer receives after every snapshot.
type View struct {
	Messages   []chat.Message    `json:"messages"`
	Attributes []GroupAttributes `json:"attributes"`
	Scroll     ScrollDirective   `json:"scroll"`
	// Err is set when the latest delivery failed. Messages then holds the
	// last good list, which may be empty.
	Err error `json:"-"`
}

// Presenter renders views.
type Presenter interface {
	Present(View)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(View)

func (f PresenterFunc) Present(v View) { f(v) }

// ViewerProvider exposes the local participant. It is queried once per
// processed snapshot.
type ViewerProvider interface {
	Viewer() chat.ViewerID
}

// StaticViewer is a ViewerProvider with a fixed identity.
type StaticViewer chat.ViewerID

func (v StaticViewer) Viewer() chat.ViewerID { return chat.ViewerID(v) }

// Observer is notified about subscription and snapshot events.
type Observer interface {
	SubscriptionOpened()
	SubscriptionClosed()
	SnapshotApplied(messages int)
}

type nopObserver struct{}

func (nopObserver) SubscriptionOpened() {}
func (nopObserver) SubscriptionClosed() {}
func (nopObserver) SnapshotApplied(int) {}

// RoomOptions configures a Room. Zero values pick defaults.
type RoomOptions struct {
	Order       chat.Order
	Formatter   TimeFormatter
	Diagnostics Diagnostics
	Observer    Observer
	Logger      zerolog.Logger
	QueueSize   int
}

// Room owns the single subscription of a conversation view. Activate and
// Deactivate must be called from one goroutine; snapshot processing runs on
// a single consumer goroutine that owns the list and scroll state.
type Room struct {
	transport  chat.Transport
	viewer     ViewerProvider
	presenter  Presenter
	reconciler *Reconciler
	grouper    *Grouper
	order      chat.Order
	observer   Observer
	log        zerolog.Logger
	queueSize  int

	active   bool
	unsub    chat.Unsubscribe
	stopping chan struct{}
	done     chan struct{}

	// consumer state
	current List
	scroll  ScrollCoordinator
}

// NewRoom wires a room. It does not subscribe until Activate.
func NewRoom(transport chat.Transport, viewer ViewerProvider, presenter Presenter, opts RoomOptions) *Room {
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if viewer == nil {
		viewer = StaticViewer("")
	}

	return &Room{
		transport:  transport,
		viewer:     viewer,
		presenter:  presenter,
		reconciler: NewReconciler(opts.Diagnostics),
		grouper:    NewGrouper(opts.Formatter),
		order:      opts.Order,
		observer:   opts.Observer,
		log:        opts.Logger,
		queueSize:  opts.QueueSize,
	}
}

// Active reports whether the room holds a live subscription.
func (r *Room) Active() bool { return r.active }

// Activate presents the mount view, subscribes and starts processing. On a
// subscribe failure the presenter receives an empty view carrying the error
// and no subscription is left behind.
func (r *Room) Activate(ctx context.Context) error {
	if r.active {
		return ErrAlreadyActive
	}

	var (
		queue    = make(chan chat.Snapshot, r.queueSize)
		stopping = make(chan struct{})
		done     = make(chan struct{})
		subID    = randid.Tagged("sub", 8)
	)

	r.current = List{}
	r.scroll = ScrollCoordinator{}
	r.presenter.Present(View{Scroll: r.scroll.Mount()})

	go r.consume(queue, stopping, done)

	enqueue := func(s chat.Snapshot) {
		select {
		case <-stopping:
			return // late delivery after Deactivate
		default:
		}
		select {
		case queue <- s:
		case <-stopping:
		}
	}

	unsub, err := r.transport.Subscribe(ctx, r.order, enqueue)
	if err != nil {
		close(stopping)
		<-done
		r.presenter.Present(View{Err: err})
		return fmt.Errorf("subscribe: %w", err)
	}

	r.log.Debug().Str("subscription", subID).Stringer("order", r.order).Msg("subscribed")

	r.active = true
	r.unsub = unsub
	r.stopping = stopping
	r.done = done
	r.observer.SubscriptionOpened()
	return nil
}

// Deactivate unsubscribes synchronously and waits for the consumer to stop.
// Snapshots still queued are discarded. Calling it on an inactive room
// returns ErrNotActive.
func (r *Room) Deactivate() error {
	if !r.active {
		return ErrNotActive
	}

	// Release blocked enqueues before unsubscribing: a transport may wait in
	// unsubscribe for a delivery that is itself waiting on a full queue.
	close(r.stopping)
	if r.unsub != nil {
		r.unsub()
	}
	<-r.done

	r.active = false
	r.unsub = nil
	r.observer.SubscriptionClosed()
	r.log.Debug().Msg("unsubscribed")
	return nil
}

// Run activates the room, blocks until ctx is done and deactivates on the
// way out.
func (r *Room) Run(ctx context.Context) error {
	if err := r.Activate(ctx); err != nil {
		return err
	}
	defer func() { _ = r.Deactivate() }()

	<-ctx.Done()
	return nil
}

func (r *Room) consume(queue <-chan chat.Snapshot, stopping <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-stopping:
			return
		case snap := <-queue:
			select {
			case <-stopping:
				return
			default:
				r.apply(snap)
			}
		}
	}
}

func (r *Room) apply(snap chat.Snapshot) {
	viewer := r.viewer.Viewer()

	if snap.Err != nil {
		r.log.Warn().Err(snap.Err).Int("stale_messages", r.current.Len()).Msg("snapshot delivery failed")
		r.presenter.Present(View{
			Messages:   r.current.Messages(),
			Attributes: r.grouper.Compute(r.current, viewer),
			Scroll:     r.scroll.OnAttributesChanged(),
			Err:        snap.Err,
		})
		return
	}

	list := r.reconciler.Reconcile(snap.Records)
	attrs := r.grouper.Compute(list, viewer)
	directive := r.scroll.OnListChanged(list.Len())
	r.current = list

	r.log.Debug().
		Int("records", len(snap.Records)).
		Int("messages", list.Len()).
		Bool("scroll", directive.ShouldScrollToEnd).
		Msg("snapshot applied")

	r.observer.SnapshotApplied(list.Len())
	r.presenter.Present(View{
		Messages:   list.Messages(),
		Attributes: attrs,
		Scroll:     directive,
	})
}
