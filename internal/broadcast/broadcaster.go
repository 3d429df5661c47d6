// Package broadcast hands engine notifications from the hardware goroutines
// to a single delivery loop that fans them out to live subscribers.
package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vegarwe/skistart-lockedup/internal/rack"
)

var (
	ErrSubscriberClosed = errors.New("subscriber closed")
	ErrSlowSubscriber   = errors.New("subscriber outbox full")
)

// Subscriber is one live observer. Send must not block; an error removes the
// subscriber from the registry and closes it.
type Subscriber interface {
	ID() string
	Send(msg Message) error
	Close()
}

// Recorder keeps a history of log entries.
type Recorder interface {
	Record(ctx context.Context, entry string, at time.Time) error
}

type op int

const (
	opPublish op = iota
	opRegister
	opUnregister
)

type item struct {
	op  op
	msg Message
	sub Subscriber
}

// Broadcaster implements rack.Sink. Enqueueing never blocks; Run is the only
// goroutine that touches the subscriber registry.
type Broadcaster struct {
	mu    sync.Mutex
	queue []item
	wake  chan struct{}

	subs     map[string]Subscriber
	count    atomic.Int64
	recorder Recorder
	log      *slog.Logger
}

func New(recorder Recorder, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		wake:     make(chan struct{}, 1),
		subs:     make(map[string]Subscriber),
		recorder: recorder,
		log:      logger,
	}
}

func (b *Broadcaster) enqueue(it item) {
	b.mu.Lock()
	b.queue = append(b.queue, it)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Broadcaster) PublishStatus(s rack.Snapshot) {
	b.enqueue(item{op: opPublish, msg: StatusMessage(s)})
}

func (b *Broadcaster) PublishLog(entry string) {
	b.enqueue(item{op: opPublish, msg: LogMessage(entry)})
}

// Register queues sub for addition. The subscriber is sent initial before any
// message published after this call. Call it under the engine lock (see
// rack.Engine.Observe) so initial is current relative to queued events.
func (b *Broadcaster) Register(sub Subscriber, initial rack.Snapshot) {
	b.enqueue(item{op: opRegister, sub: sub, msg: StatusMessage(initial)})
}

func (b *Broadcaster) Unregister(sub Subscriber) {
	b.enqueue(item{op: opUnregister, sub: sub})
}

// Count returns the number of registered subscribers.
func (b *Broadcaster) Count() int {
	return int(b.count.Load())
}

// Run delivers queued notifications until ctx is done, then closes every
// remaining subscriber.
func (b *Broadcaster) Run(ctx context.Context) error {
	defer b.closeAll()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.wake:
		}

		b.mu.Lock()
		batch := b.queue
		b.queue = nil
		b.mu.Unlock()

		for _, it := range batch {
			b.handle(ctx, it)
		}
	}
}

func (b *Broadcaster) handle(ctx context.Context, it item) {
	switch it.op {
	case opRegister:
		b.subs[it.sub.ID()] = it.sub
		b.count.Store(int64(len(b.subs)))
		b.log.Info("subscriber registered", "id", it.sub.ID(), "subscribers", len(b.subs))
		b.deliver(it.sub, it.msg)

	case opUnregister:
		b.drop(it.sub, nil)

	case opPublish:
		if it.msg.Kind == KindLog && b.recorder != nil {
			if err := b.recorder.Record(ctx, it.msg.Entry, time.Now()); err != nil {
				b.log.Warn("failed to record log entry", "error", err)
			}
		}
		for _, sub := range b.subs {
			b.deliver(sub, it.msg)
		}
	}
}

func (b *Broadcaster) deliver(sub Subscriber, msg Message) {
	if err := sub.Send(msg); err != nil {
		b.drop(sub, err)
	}
}

func (b *Broadcaster) drop(sub Subscriber, cause error) {
	if _, ok := b.subs[sub.ID()]; !ok {
		return
	}
	delete(b.subs, sub.ID())
	b.count.Store(int64(len(b.subs)))
	sub.Close()

	if cause != nil {
		b.log.Info("subscriber dropped", "id", sub.ID(), "error", cause, "subscribers", len(b.subs))
		return
	}
	b.log.Info("subscriber unregistered", "id", sub.ID(), "subscribers", len(b.subs))
}

func (b *Broadcaster) closeAll() {
	for id, sub := range b.subs {
		sub.Close()
		delete(b.subs, id)
	}
	b.count.Store(0)
}
