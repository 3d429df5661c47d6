package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegarwe/skistart-lockedup/internal/rack"
	"github.com/vegarwe/skistart-lockedup/internal/server"
	"github.com/vegarwe/skistart-lockedup/internal/shared"
	"github.com/vegarwe/skistart-lockedup/internal/station"
)

type memJournal struct{}

func (memJournal) Recent(_ context.Context, limit int) ([]shared.JournalEntry, error) {
	out := []shared.JournalEntry{{ID: "a", Entry: "assign port 04a1 0"}, {ID: "b", Entry: "unlock port 0"}}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func newServer(t *testing.T, password string) (*station.Station, *Client) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := station.New(station.Options{Ports: 2, Logger: logger})
	require.NoError(t, err)
	require.NoError(t, st.Start(context.Background()))

	api := &server.API{
		Rack:         st,
		Journal:      memJournal{},
		AuthData:     password,
		CookieSecret: "secret",
		StaticDir:    t.TempDir(),
		Log:          logger,
	}
	srv := httptest.NewServer(server.NewRouter(api))
	t.Cleanup(func() {
		srv.Close()
		require.NoError(t, st.Stop())
	})

	c, err := New(srv.URL + "/")
	require.NoError(t, err)
	return st, c
}

func TestStatusAndUnlock(t *testing.T) {
	st, c := newServer(t, "")
	ctx := context.Background()
	st.Engine().HandleCardObserved("04a1")

	ports, err := c.Status(ctx)
	require.NoError(t, err)
	require.Len(t, ports, 2)
	assert.Equal(t, "occupied", ports[0].Status)

	ports, err = c.Unlock(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "available", ports[0].Status)

	_, err = c.Unlock(ctx, 9)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Contains(t, se.Message, rack.ErrPortOutOfRange.Error())
}

func TestLogAndHealth(t *testing.T) {
	_, c := newServer(t, "")
	ctx := context.Background()

	entries, err := c.Log(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "assign port 04a1 0", entries[0].Entry)

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.True(t, h.Ok)
	assert.Equal(t, 2, h.Ports)
}

func TestLogin(t *testing.T) {
	_, c := newServer(t, "hunter2")
	ctx := context.Background()

	_, err := c.Status(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.ErrorIs(t, c.Login(ctx, "nope"), ErrUnauthorized)
	require.NoError(t, c.Login(ctx, "hunter2"))

	_, err = c.Status(ctx)
	assert.NoError(t, err)
}

func TestWatch(t *testing.T) {
	st, c := newServer(t, "hunter2")
	require.NoError(t, c.Login(context.Background(), "hunter2"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errDone := errors.New("done")
	var got []shared.Envelope
	err := c.Watch(ctx, func(env shared.Envelope) error {
		got = append(got, env)
		if len(got) == 1 {
			// first status is in hand, so the subscriber is registered
			st.Engine().HandleCardObserved("04b2")
		}
		if len(got) == 3 {
			return errDone
		}
		return nil
	})
	require.ErrorIs(t, err, errDone)

	assert.Equal(t, shared.TypeStatus, got[0].Type)
	assert.Equal(t, shared.TypeStatus, got[1].Type)
	assert.Equal(t, "occupied", got[1].Rack[0].Status)
	assert.Equal(t, shared.TypeLog, got[2].Type)
	assert.Equal(t, "assign port 04b2 0", got[2].Entry)
}

func TestWatchCancel(t *testing.T) {
	_, c := newServer(t, "")
	ctx, cancel := context.WithCancel(context.Background())

	err := c.Watch(ctx, func(shared.Envelope) error {
		cancel()
		return nil
	})
	assert.NoError(t, err)
}

func TestWatchUnauthorized(t *testing.T) {
	_, c := newServer(t, "hunter2")
	err := c.Watch(context.Background(), func(shared.Envelope) error { return nil })
	assert.ErrorIs(t, err, ErrUnauthorized)
}
