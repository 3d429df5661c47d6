package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vegarwe/skistart-lockedup/internal/broadcast"
	"github.com/vegarwe/skistart-lockedup/internal/rack"
	"github.com/vegarwe/skistart-lockedup/internal/shared"
)

const maxLogLimit = 1000

// Rack is the station as seen by the HTTP layer.
type Rack interface {
	Status() rack.Snapshot
	Unlock(port int) error
	Subscribe(sub broadcast.Subscriber)
	Unsubscribe(sub broadcast.Subscriber)
	Subscribers() int
	Ports() int
}

// Journal serves /api/log.
type Journal interface {
	Recent(ctx context.Context, limit int) ([]shared.JournalEntry, error)
}

type API struct {
	Rack         Rack
	Journal      Journal // nil disables /api/log
	AuthData     string  // empty disables login
	CookieSecret string
	StaticDir    string
	Log          *slog.Logger
}

func (a *API) logger() *slog.Logger {
	if a.Log != nil {
		return a.Log
	}
	return slog.Default()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, shared.ErrorResponse{Error: msg})
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, 2<<20))
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func (a *API) writeStatus(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, shared.StatusEnvelope{
		Type: shared.TypeStatus,
		Rack: a.Rack.Status().Rack(),
	})
}

func (a *API) Index(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(filepath.Join(a.StaticDir, "index.html"))
	if err != nil {
		writeError(w, http.StatusNotFound, "index.html not found")
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stat failed")
		return
	}
	w.Header().Set("Content-Type", "text/html")
	http.ServeContent(w, r, "index.html", st.ModTime(), f)
}

func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	a.writeStatus(w)
}

// Cmd accepts any JSON command, logs it and answers with the current status.
func (a *API) Cmd(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	a.logger().Info("command received", "cmd", string(body))
	a.writeStatus(w)
}

func (a *API) Unlock(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}

	var req struct {
		Number *int `json:"number"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Number == nil {
		writeError(w, http.StatusBadRequest, "missing number")
		return
	}

	if err := a.Rack.Unlock(*req.Number); err != nil {
		if errors.Is(err, rack.ErrPortOutOfRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "unlock failed")
		return
	}
	a.writeStatus(w)
}

func (a *API) LogEntries(w http.ResponseWriter, r *http.Request) {
	if a.Journal == nil {
		writeError(w, http.StatusNotFound, "journal disabled")
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := parseInt64(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad limit")
			return
		}
		limit = int(min(n, maxLogLimit))
	}

	entries, err := a.Journal.Recent(r.Context(), limit)
	if err != nil {
		a.logger().Error("journal query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, shared.LogResponse{Entries: entries})
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, shared.HealthResponse{
		Ok:          true,
		Ports:       a.Rack.Ports(),
		Subscribers: a.Rack.Subscribers(),
	})
}

// Login checks the password form field and sets the signed auth_data cookie.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	if a.AuthData == "" {
		http.Redirect(w, r, "index.html", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "bad form")
		return
	}
	if r.PostFormValue("password") != a.AuthData {
		a.logger().Warn("login rejected", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "bad password")
		return
	}

	now := time.Now()
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    shared.SignCookie(a.CookieSecret, a.AuthData, now),
		Path:     "/",
		Expires:  now.Add(shared.CookieMaxAge),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "index.html", http.StatusFound)
}
