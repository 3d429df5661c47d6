package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(a *API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(WithLogging(a.logger()))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", a.Index)
	r.Get("/index.html", a.Index)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(a.StaticDir))))
	r.Post("/login", a.Login)
	r.Post("/login.html", a.Login)
	r.Get("/healthz", a.Health)

	r.Group(func(r chi.Router) {
		r.Use(a.RequireAuth)
		r.Get("/api/status", a.Status)
		r.Put("/api/cmd", a.Cmd)
		r.Put("/api/unlock", a.Unlock)
		r.Get("/api/log", a.LogEntries)
		r.Get("/ws", a.ServeWS)
	})
	return r
}
