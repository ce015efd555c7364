// Package control exposes a small local HTTP API for triggering commands
// and changing settings without the keyboard.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"hark/controller"
	"hark/log"
	"hark/settings"
	"hark/shortcut"
)

type Status interface {
	Snapshot() controller.Snapshot
}

type Dispatcher interface {
	IDs() []string
	Has(id string) bool
	Fire(ctx context.Context, id string)
}

type Settings interface {
	Flags() map[string]bool
	SetFlag(name string, enabled bool) error
	Bindings() map[string]shortcut.Binding
	SetBinding(id string, b shortcut.Binding) error
}

type Deps struct {
	Status     Status
	Dispatcher Dispatcher
	Settings   Settings
	// Rebind applies a full binding set to the live hotkeys.
	Rebind func(map[string]shortcut.Binding) error
}

type Server struct {
	d Deps
	// ctx outlives requests; commands run on it after the 202.
	ctx    context.Context
	router chi.Router
}

func New(ctx context.Context, d Deps) *Server {
	s := &Server{d: d, ctx: ctx}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/status", s.status)
	r.Get("/commands", s.listCommands)
	r.Post("/commands/{id}", s.runCommand)
	r.Get("/shortcuts", s.listShortcuts)
	r.Put("/shortcuts/{id}", s.setShortcut)
	r.Put("/flags/{name}", s.setFlag)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Infof("control: listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusResponse struct {
	controller.Snapshot
	Flags map[string]bool `json:"flags"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Snapshot: s.d.Status.Snapshot(),
		Flags:    s.d.Settings.Flags(),
	})
}

func (s *Server) listCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"commands": s.d.Dispatcher.IDs()})
}

func (s *Server) runCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.d.Dispatcher.Has(id) {
		writeError(w, http.StatusNotFound, "unknown command "+id)
		return
	}
	log.Infof("control: command %s", id)
	go s.d.Dispatcher.Fire(s.ctx, id)
	writeJSON(w, http.StatusAccepted, map[string]string{"accepted": id})
}

func (s *Server) listShortcuts(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]string)
	for id, b := range s.d.Settings.Bindings() {
		out[id] = b.String()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) setShortcut(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	current := s.d.Settings.Bindings()
	if _, ok := current[id]; !ok {
		writeError(w, http.StatusNotFound, "unknown command "+id)
		return
	}

	var body struct {
		Binding string `json:"binding"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	var b shortcut.Binding
	if body.Binding != "" {
		var err error
		if b, err = shortcut.Parse(body.Binding); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		for other, ob := range current {
			if other != id && ob.String() == b.String() {
				writeError(w, http.StatusConflict, b.String()+" is already bound to "+other)
				return
			}
		}
	}

	if err := s.d.Settings.SetBinding(id, b); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.d.Rebind != nil {
		if err := s.d.Rebind(s.d.Settings.Bindings()); err != nil {
			log.Warnf("control: rebind: %v", err)
			writeError(w, http.StatusInternalServerError, "saved but not registered: "+err.Error())
			return
		}
	}
	log.Infof("control: %s bound to %q", id, b.String())
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "binding": b.String()})
}

func (s *Server) setFlag(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !settings.KnownFlag(name) {
		writeError(w, http.StatusNotFound, "unknown flag "+name)
		return
	}
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		writeError(w, http.StatusBadRequest, `expected {"enabled": true|false}`)
		return
	}
	if err := s.d.Settings.SetFlag(name, *body.Enabled); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Infof("control: %s=%v", name, *body.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{name: *body.Enabled})
}
