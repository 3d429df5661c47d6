// Package station assembles a rack: the engine, its hardware loops and the
// broadcaster, with one start/stop lifecycle.
package station

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vegarwe/skistart-lockedup/internal/broadcast"
	"github.com/vegarwe/skistart-lockedup/internal/hw"
	"github.com/vegarwe/skistart-lockedup/internal/rack"
	"github.com/vegarwe/skistart-lockedup/internal/shared"
	"github.com/vegarwe/skistart-lockedup/internal/tracker"
)

var ErrAlreadyStarted = errors.New("station already started")

type Options struct {
	Ports int

	// Reader feeds the card loop. Nil runs without a reader.
	Reader hw.CardReader
	// Pins enables the door-sensor variant. Nil means no door sensors.
	Pins hw.PinSampler

	PresentWindow time.Duration
	HoldWindow    time.Duration
	DoorInterval  time.Duration

	Recorder broadcast.Recorder
	Logger   *slog.Logger
}

type Station struct {
	engine *rack.Engine
	bc     *broadcast.Broadcaster
	card   *tracker.CardTracker
	door   *tracker.DoorTracker
	log    *slog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	group    *errgroup.Group
	stopOnce sync.Once
	stopErr  error
}

func New(opts Options) (*Station, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	table, err := rack.NewTable(opts.Ports, opts.Pins != nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build port table: %w", err)
	}

	s := &Station{log: logger}
	s.bc = broadcast.New(opts.Recorder, logger.With("component", "broadcast"))
	s.engine = rack.NewEngine(table, s.bc, logger.With("component", "engine"))

	if opts.Reader != nil {
		deb := tracker.NewDebouncer(opts.PresentWindow, opts.HoldWindow)
		s.card = tracker.NewCardTracker(opts.Reader, s.engine, deb, logger)
	}
	if opts.Pins != nil {
		s.door = tracker.NewDoorTracker(opts.Pins, opts.Ports, s.engine, opts.DoorInterval, logger)
	}
	return s, nil
}

// FromConfig opens the configured reader and door pins and builds a station.
func FromConfig(cfg *shared.ServerConfig, rec broadcast.Recorder, logger *slog.Logger) (*Station, error) {
	reader, err := hw.NewCardReader(hw.ReaderConfig{
		Type:    cfg.Reader.Type,
		Device:  cfg.Reader.Device,
		Baud:    cfg.Reader.Baud,
		Timeout: cfg.ReaderTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open card reader: %w", err)
	}

	var pins hw.PinSampler
	if cfg.DoorSensors() {
		gpio, err := hw.OpenGPIO(cfg.DoorPins)
		if err != nil {
			if reader != nil {
				reader.Close()
			}
			return nil, fmt.Errorf("failed to open door pins: %w", err)
		}
		pins = gpio
	}

	s, err := New(Options{
		Ports:         cfg.Ports,
		Reader:        reader,
		Pins:          pins,
		PresentWindow: cfg.PresentWindow(),
		HoldWindow:    cfg.HoldWindow(),
		DoorInterval:  cfg.DoorPollInterval(),
		Recorder:      rec,
		Logger:        logger,
	})
	if err != nil {
		if reader != nil {
			reader.Close()
		}
		if pins != nil {
			pins.Close()
		}
		return nil, err
	}
	return s, nil
}

// Start launches the broadcaster and the hardware loops. A failing hardware
// loop ends on its own; the others keep running.
func (s *Station) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.group != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.group = &errgroup.Group{}

	s.group.Go(func() error { return s.bc.Run(ctx) })
	if s.card != nil {
		s.group.Go(func() error { return s.card.Run(ctx) })
	}
	if s.door != nil {
		s.group.Go(func() error { return s.door.Run(ctx) })
	}

	s.log.Info("station started", "ports", s.engine.Ports(), "card_reader", s.card != nil, "door_sensors", s.door != nil)
	return nil
}

// Stop cancels every loop and waits for them to exit. It returns the first
// hardware loop failure, if any. Safe to call more than once.
func (s *Station) Stop() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		cancel, group := s.cancel, s.group
		s.mu.Unlock()
		if group == nil {
			return
		}
		cancel()
		s.stopErr = group.Wait()
		s.log.Info("station stopped", "error", s.stopErr)
	})
	return s.stopErr
}

// Subscribe registers sub. It receives the current status first, then every
// later notification in order.
func (s *Station) Subscribe(sub broadcast.Subscriber) {
	s.engine.Observe(func(snap rack.Snapshot) {
		s.bc.Register(sub, snap)
	})
}

func (s *Station) Unsubscribe(sub broadcast.Subscriber) {
	s.bc.Unregister(sub)
}

func (s *Station) Unlock(port int) error {
	return s.engine.Unlock(port)
}

func (s *Station) Status() rack.Snapshot {
	return s.engine.CurrentStatus()
}

func (s *Station) Ports() int {
	return s.engine.Ports()
}

func (s *Station) Subscribers() int {
	return s.bc.Count()
}

// Engine exposes the engine for callers that inject events directly.
func (s *Station) Engine() *rack.Engine {
	return s.engine
}
