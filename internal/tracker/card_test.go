package tracker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegarwe/skistart-lockedup/internal/hw"
)

var t0 = time.Date(2024, 1, 6, 9, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDebouncer_SuppressesRepeatWithinHold(t *testing.T) {
	d := NewDebouncer(5*time.Second, 500*time.Millisecond)

	assert.True(t, d.Observe("a", t0))
	assert.False(t, d.Observe("a", t0.Add(100*time.Millisecond)))
	assert.False(t, d.Observe("a", t0.Add(400*time.Millisecond)))
}

func TestDebouncer_ContinuousReadsKeepCardPresent(t *testing.T) {
	d := NewDebouncer(5*time.Second, 500*time.Millisecond)
	require.True(t, d.Observe("a", t0))

	// a card left on the reader is read every 300ms for 10s: one event only
	for at := 300 * time.Millisecond; at < 10*time.Second; at += 300 * time.Millisecond {
		assert.False(t, d.Observe("a", t0.Add(at)), "at %s", at)
	}
}

func TestDebouncer_ExpiresAfterPresentWindow(t *testing.T) {
	d := NewDebouncer(5*time.Second, 500*time.Millisecond)

	assert.True(t, d.Observe("a", t0))
	assert.True(t, d.Observe("a", t0.Add(5100*time.Millisecond)))
}

func TestDebouncer_ExpiresAfterHoldWindow(t *testing.T) {
	d := NewDebouncer(5*time.Second, 500*time.Millisecond)

	require.True(t, d.Observe("a", t0))
	require.False(t, d.Observe("a", t0.Add(200*time.Millisecond)))
	// hold refreshed to t0+700ms; lifted card presented again at 1s
	assert.True(t, d.Observe("a", t0.Add(time.Second)))
}

func TestDebouncer_NewCardAlwaysPasses(t *testing.T) {
	d := NewDebouncer(5*time.Second, 500*time.Millisecond)

	assert.True(t, d.Observe("a", t0))
	assert.True(t, d.Observe("b", t0.Add(10*time.Millisecond)))
	assert.True(t, d.Observe("a", t0.Add(20*time.Millisecond)))
}

type readStep struct {
	id  string
	err error
	at  time.Duration
}

// scriptReader replays steps, advancing the fake clock to each step's time,
// then blocks until ctx is done.
type scriptReader struct {
	mu      sync.Mutex
	steps   []readStep
	now     time.Time
	drained chan struct{}
	closed  bool
}

func newScriptReader(steps ...readStep) *scriptReader {
	return &scriptReader{steps: steps, now: t0, drained: make(chan struct{})}
}

func (s *scriptReader) Read(ctx context.Context) (string, error) {
	s.mu.Lock()
	if len(s.steps) == 0 {
		select {
		case <-s.drained:
		default:
			close(s.drained)
		}
		s.mu.Unlock()
		<-ctx.Done()
		return "", ctx.Err()
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	s.now = t0.Add(step.at)
	s.mu.Unlock()
	return step.id, step.err
}

func (s *scriptReader) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *scriptReader) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type cardRecorder struct {
	mu    sync.Mutex
	cards []string
}

func (c *cardRecorder) HandleCardObserved(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cards = append(c.cards, id)
}

func (c *cardRecorder) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.cards...)
}

func runScript(t *testing.T, r *scriptReader) *cardRecorder {
	t.Helper()
	rec := &cardRecorder{}
	tr := NewCardTracker(r, rec, NewDebouncer(5*time.Second, 500*time.Millisecond), quietLogger())
	tr.now = r.clock

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	select {
	case <-r.drained:
	case <-time.After(2 * time.Second):
		t.Fatal("script not consumed")
	}
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("card loop did not stop")
	}
	assert.True(t, r.closed, "reader closed on exit")
	return rec
}

func TestCardTracker_DebouncesStream(t *testing.T) {
	r := newScriptReader(
		readStep{id: "a", at: 0},
		readStep{id: "a", at: 100 * time.Millisecond},
		readStep{err: hw.ErrReadTimeout, at: 200 * time.Millisecond},
		readStep{id: "a", at: 300 * time.Millisecond},
		readStep{id: "b", at: 2 * time.Second},
		readStep{id: "a", at: 9 * time.Second},
	)
	rec := runScript(t, r)
	assert.Equal(t, []string{"a", "b", "a"}, rec.seen())
}

func TestCardTracker_TimeoutsAreNotFatal(t *testing.T) {
	steps := make([]readStep, 0, 50)
	for i := 0; i < 50; i++ {
		steps = append(steps, readStep{err: hw.ErrReadTimeout, at: time.Duration(i) * time.Millisecond})
	}
	steps = append(steps, readStep{id: "c", at: time.Second})
	rec := runScript(t, newScriptReader(steps...))
	assert.Equal(t, []string{"c"}, rec.seen())
}

func TestCardTracker_ReaderFailureEndsLoop(t *testing.T) {
	boom := errors.New("usb unplugged")
	r := newScriptReader(readStep{id: "a"}, readStep{err: boom, at: time.Second})
	rec := &cardRecorder{}
	tr := NewCardTracker(r, rec, nil, quietLogger())
	tr.now = r.clock

	err := tr.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, rec.seen())
	assert.True(t, r.closed)
}
