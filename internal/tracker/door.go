package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vegarwe/skistart-lockedup/internal/hw"
)

const DefaultDoorInterval = 200 * time.Millisecond

// Edge is a change in one door's sampled level.
type Edge struct {
	Port int
	Open bool
}

// EdgeDetector remembers the previous level of each pin. Levels start high
// (closed) so the first real opening is reported.
type EdgeDetector struct {
	prev []bool
}

func NewEdgeDetector(n int) *EdgeDetector {
	prev := make([]bool, n)
	for i := range prev {
		prev[i] = true
	}
	return &EdgeDetector{prev: prev}
}

// Sample returns the ports whose level differs from the previous sample.
func (d *EdgeDetector) Sample(levels []bool) ([]Edge, error) {
	if len(levels) != len(d.prev) {
		return nil, fmt.Errorf("sampled %d pins, expected %d", len(levels), len(d.prev))
	}
	var edges []Edge
	for i, high := range levels {
		if high != d.prev[i] {
			edges = append(edges, Edge{Port: i, Open: !high})
			d.prev[i] = high
		}
	}
	return edges, nil
}

type DoorHandler interface {
	HandleDoorChanged(port int, open bool) error
}

// DoorTracker samples the door pins on a fixed interval.
type DoorTracker struct {
	pins     hw.PinSampler
	handler  DoorHandler
	detector *EdgeDetector
	interval time.Duration
	log      *slog.Logger
}

func NewDoorTracker(pins hw.PinSampler, ports int, handler DoorHandler, interval time.Duration, logger *slog.Logger) *DoorTracker {
	if interval <= 0 {
		interval = DefaultDoorInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DoorTracker{
		pins:     pins,
		handler:  handler,
		detector: NewEdgeDetector(ports),
		interval: interval,
		log:      logger.With("loop", "door"),
	}
}

// Run samples until ctx is done or a sample fails. Pins are released on return.
func (t *DoorTracker) Run(ctx context.Context) error {
	defer func() {
		if err := t.pins.Close(); err != nil {
			t.log.Warn("pin release failed", "error", err)
		}
		t.log.Info("door loop stopped")
	}()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := t.poll(); err != nil {
			t.log.Error("door sampling failed", "error", err)
			return fmt.Errorf("door loop: %w", err)
		}
	}
}

func (t *DoorTracker) poll() error {
	levels, err := t.pins.Read()
	if err != nil {
		return err
	}
	edges, err := t.detector.Sample(levels)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if err := t.handler.HandleDoorChanged(e.Port, e.Open); err != nil {
			return err
		}
	}
	return nil
}
