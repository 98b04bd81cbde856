// Package httpapi exposes a Session over HTTP with JSON bodies.
//
// Handlers never touch the model directly: each one runs its work on the
// session's main loop through Loop.Call, so the loop must be running (see
// mainloop.Loop.Run) while the server is serving.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/tsawler/pagenum"
	"github.com/tsawler/pagenum/observability"
)

// Options configures a Server.
type Options struct {
	// RateLimit is the number of mutating requests allowed per client IP
	// in RateWindow. Zero uses 60; negative disables limiting.
	RateLimit  int
	RateWindow time.Duration

	// CallTimeout bounds the wait for the main loop. Zero uses 5s.
	CallTimeout time.Duration

	Logger observability.Logger
}

func defaultOptions() Options {
	return Options{
		RateLimit:   60,
		RateWindow:  time.Minute,
		CallTimeout: 5 * time.Second,
		Logger:      observability.NopLogger{},
	}
}

// Server is an http.Handler serving one session.
type Server struct {
	session *pagenum.Session
	router  chi.Router
	opts    Options
	log     observability.Logger
}

// New creates a server for s.
func New(s *pagenum.Session, opts *Options) *Server {
	o := defaultOptions()
	if opts != nil {
		if opts.RateLimit != 0 {
			o.RateLimit = opts.RateLimit
		}
		if opts.RateWindow > 0 {
			o.RateWindow = opts.RateWindow
		}
		if opts.CallTimeout > 0 {
			o.CallTimeout = opts.CallTimeout
		}
		o.Logger = observability.OrNop(opts.Logger)
	}

	srv := &Server{
		session: s,
		router:  chi.NewRouter(),
		opts:    o,
		log:     o.Logger,
	}
	srv.setupRoutes()
	return srv
}

// ServeHTTP implements http.Handler.
func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	srv.router.ServeHTTP(w, r)
}

func (srv *Server) setupRoutes() {
	srv.router.Use(middleware.RequestID)
	srv.router.Use(srv.logRequests)
	srv.router.Use(middleware.Recoverer)

	srv.router.Get("/status", srv.handleStatus)
	srv.router.Get("/labels", srv.handleGetLabels)
	srv.router.Get("/outline", srv.handleGetOutline)

	srv.router.Group(func(r chi.Router) {
		if srv.opts.RateLimit > 0 {
			r.Use(httprate.LimitByIP(srv.opts.RateLimit, srv.opts.RateWindow))
		}
		r.Post("/labels", srv.handleAddLabel)
		r.Put("/labels/{index}", srv.handlePutLabel)
		r.Delete("/labels/{index}", srv.handleDeleteLabel)
		r.Delete("/outline/{id}", srv.handleDeleteNode)
		r.Put("/cropbox", srv.handlePutCropBox)
		r.Delete("/cropbox", srv.handleDeleteCropBox)
		r.Post("/reload", srv.handleReload)
		r.Post("/save", srv.handleSave)
		r.Put("/autosave", srv.handlePutAutoSave)
		r.Put("/output", srv.handlePutOutput)
	})
}

func (srv *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		srv.log.Debug("request",
			observability.String("id", middleware.GetReqID(r.Context())),
			observability.String("method", r.Method),
			observability.String("path", r.URL.Path),
			observability.Int("status", ww.Status()),
			observability.Int64("duration_us", time.Since(start).Microseconds()))
	})
}

// apiError is a failure with its HTTP status
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

func fail(status int, msg string) error {
	return &apiError{status: status, msg: msg}
}

// call runs fn on the main loop and writes its result as JSON with the
// given success status.
func (srv *Server) call(w http.ResponseWriter, r *http.Request, status int, fn func() (interface{}, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), srv.opts.CallTimeout)
	defer cancel()

	var result interface{}
	var err error
	if callErr := srv.session.Loop().Call(ctx, func() { result, err = fn() }); callErr != nil {
		srv.log.Warn("main loop did not answer", observability.Err(callErr))
		writeError(w, http.StatusServiceUnavailable, "main loop busy")
		return
	}
	if err != nil {
		var ae *apiError
		if errors.As(err, &ae) {
			writeError(w, ae.status, ae.msg)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, status, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fail(http.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
	return nil
}
