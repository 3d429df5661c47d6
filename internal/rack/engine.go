package rack

import (
	"fmt"
	"log/slog"
	"sync"
)

// Sink receives engine notifications. Both methods are called with the engine
// lock held and must not block.
type Sink interface {
	PublishStatus(s Snapshot)
	PublishLog(entry string)
}

type nopSink struct{}

func (nopSink) PublishStatus(Snapshot) {}
func (nopSink) PublishLog(string)      {}

// Engine applies card, door and unlock events to the port table.
type Engine struct {
	mu    sync.Mutex
	table *Table
	sink  Sink
	log   *slog.Logger
}

func NewEngine(table *Table, sink Sink, logger *slog.Logger) *Engine {
	if sink == nil {
		sink = nopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{table: table, sink: sink, log: logger}
}

// HandleCardObserved releases the port holding cardID, or assigns cardID to
// the lowest free port. A full rack only produces a log entry.
func (e *Engine) HandleCardObserved(cardID string) {
	if cardID == "" {
		return
	}

	e.mu.Lock()
	var entry string
	if p := e.table.holding(cardID); p != nil {
		p.CardID = ""
		p.DoorStatus = DeriveStatus(false, e.table.doorSensors, p.DoorOpen, TransitionRelease)
		entry = fmt.Sprintf("release port %s %d", cardID, p.Index)
		e.sink.PublishStatus(e.table.snapshot())
	} else if p := e.table.firstFree(); p != nil {
		p.CardID = cardID
		p.DoorStatus = DeriveStatus(true, e.table.doorSensors, p.DoorOpen, TransitionAssign)
		entry = fmt.Sprintf("assign port %s %d", cardID, p.Index)
		e.sink.PublishStatus(e.table.snapshot())
	} else {
		entry = fmt.Sprintf("rack is full %s", cardID)
	}
	e.sink.PublishLog(entry)
	e.mu.Unlock()

	e.log.Info(entry, "card", cardID)
}

// HandleDoorChanged records a door sensor edge and recomputes the port's
// door status. It always notifies, even when the derived status is unchanged.
func (e *Engine) HandleDoorChanged(idx int, open bool) error {
	e.mu.Lock()
	p, err := e.table.port(idx)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	p.DoorOpen = open
	p.DoorStatus = DeriveStatus(p.Occupied(), e.table.doorSensors, open, TransitionDoor)
	entry := fmt.Sprintf("door state changed %s", p.DoorStatus)
	e.sink.PublishStatus(e.table.snapshot())
	e.sink.PublishLog(entry)
	e.mu.Unlock()

	e.log.Info(entry, "port", idx, "open", open)
	return nil
}

// Unlock clears the card on a port. Door status is not recomputed, so a
// closed door unlocked by an operator keeps reporting "locked" until its next
// sensor edge.
func (e *Engine) Unlock(idx int) error {
	e.mu.Lock()
	p, err := e.table.port(idx)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	prev := p.CardID
	p.CardID = ""
	entry := fmt.Sprintf("unlock port %d", idx)
	e.sink.PublishStatus(e.table.snapshot())
	e.sink.PublishLog(entry)
	e.mu.Unlock()

	e.log.Info(entry, "port", idx, "card", prev)
	return nil
}

// CurrentStatus returns a consistent copy of every port.
func (e *Engine) CurrentStatus() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.snapshot()
}

// Observe calls fn with the current snapshot while holding the engine lock.
// Anything fn enqueues is ordered before every later mutation's notifications.
func (e *Engine) Observe(fn func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.table.snapshot())
}

func (e *Engine) Ports() int {
	return e.table.Len()
}
