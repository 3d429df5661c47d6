// Package tracker turns raw hardware polling into discrete events: card
// arrivals from the reader and door edges from the sensor pins.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vegarwe/skistart-lockedup/internal/hw"
)

const (
	DefaultPresentWindow = 5 * time.Second
	DefaultHoldWindow    = 500 * time.Millisecond
)

// Debouncer collapses repeated reads of a card sitting on the reader into a
// single observation.
type Debouncer struct {
	Present time.Duration // window after a new card, tolerates read glitches
	Hold    time.Duration // window refreshed while the same card keeps reading

	lastID   string
	deadline time.Time
}

func NewDebouncer(present, hold time.Duration) *Debouncer {
	if present <= 0 {
		present = DefaultPresentWindow
	}
	if hold <= 0 {
		hold = DefaultHoldWindow
	}
	return &Debouncer{Present: present, Hold: hold}
}

// Observe reports whether id seen at now is a new card event.
func (d *Debouncer) Observe(id string, now time.Time) bool {
	if !d.deadline.IsZero() && now.After(d.deadline) {
		d.lastID = ""
		d.deadline = time.Time{}
	}
	if d.lastID != "" && id == d.lastID {
		d.deadline = now.Add(d.Hold)
		return false
	}
	d.lastID = id
	d.deadline = now.Add(d.Present)
	return true
}

type CardHandler interface {
	HandleCardObserved(cardID string)
}

// CardTracker polls a card reader and forwards debounced arrivals.
type CardTracker struct {
	reader  hw.CardReader
	handler CardHandler
	deb     *Debouncer
	now     func() time.Time
	log     *slog.Logger
}

func NewCardTracker(reader hw.CardReader, handler CardHandler, deb *Debouncer, logger *slog.Logger) *CardTracker {
	if deb == nil {
		deb = NewDebouncer(0, 0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardTracker{
		reader:  reader,
		handler: handler,
		deb:     deb,
		now:     time.Now,
		log:     logger.With("loop", "card"),
	}
}

// Run polls until ctx is done or the reader fails. The reader is closed on
// return. Read timeouts are retried; a cancelled ctx returns nil.
func (t *CardTracker) Run(ctx context.Context) error {
	defer func() {
		if cerr := t.reader.Close(); cerr != nil {
			t.log.Warn("reader close failed", "error", cerr)
		}
		t.log.Info("card loop stopped")
	}()

	t.log.Info("waiting for card")
	for ctx.Err() == nil {
		id, err := t.reader.Read(ctx)
		if errors.Is(err, hw.ErrReadTimeout) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			t.log.Error("card reader failed", "error", err)
			return fmt.Errorf("card loop: %w", err)
		}
		if id == "" {
			continue
		}
		if t.deb.Observe(id, t.now()) {
			t.handler.HandleCardObserved(id)
		}
	}
	return nil
}
