package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/pbaille/syllabus/internal/catalog"
	"github.com/pbaille/syllabus/internal/derive"
	"github.com/pbaille/syllabus/internal/domain"
	"github.com/pbaille/syllabus/internal/launcher"
	"github.com/pbaille/syllabus/internal/ordering"
	"github.com/pbaille/syllabus/internal/query"
	"github.com/pbaille/syllabus/internal/session"
	"github.com/pbaille/syllabus/internal/store"
	"go.uber.org/zap"
)

// SessionHeader carries the caller's session id
const SessionHeader = "X-Session-ID"

const defaultSession = "api"

// Server handles HTTP requests for the catalog API
type Server struct {
	catalog  *catalog.Store
	rules    *derive.Rules
	launcher launcher.Launcher
	store    *store.Store
	clock    derive.Clock
	log      *zap.Logger
	addr     string
	validate *validator.Validate

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// Deps are the collaborators a Server needs. Store may be nil, in which case
// favorites live only as long as the process.
type Deps struct {
	Catalog  *catalog.Store
	Rules    *derive.Rules
	Launcher launcher.Launcher
	Store    *store.Store
	Clock    derive.Clock
	Log      *zap.Logger
}

// New creates a new API server
func New(d Deps, addr string) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = derive.SystemClock{}
	}
	return &Server{
		catalog:  d.Catalog,
		rules:    d.Rules,
		launcher: d.Launcher,
		store:    d.Store,
		clock:    d.Clock,
		log:      d.Log,
		addr:     addr,
		validate: validator.New(),
		sessions: make(map[string]*session.Session),
	}
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(withCORS)

	r.Get("/health", s.health)

	r.Get("/authorities", s.listAuthorities)
	r.Get("/authorities/{id}/levels", s.listLevels)
	r.Get("/authorities/{id}/catalog", s.queryCatalog)

	r.Get("/derive", s.derive)

	r.Get("/resources/{id}", s.getResource)
	r.Post("/resources/{id}/open", s.openResource)

	r.Get("/favorites", s.listFavorites)
	r.Post("/favorites/{id}/toggle", s.toggleFavorite)

	return r
}

// Run starts the HTTP server
func (s *Server) Run() error {
	s.log.Info("starting server", zap.String("addr", s.addr))
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+SessionHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

// session returns the caller's session, creating and restoring it on first
// use. Callers must hold s.mu.
func (s *Server) session(ctx context.Context, r *http.Request) (*session.Session, error) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		id = defaultSession
	}
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}

	opts := []session.Option{
		session.WithID(id),
		session.WithLogger(s.log),
		session.WithClock(s.clock),
	}
	if s.store != nil {
		if err := s.store.EnsureSession(ctx, id); err != nil {
			return nil, err
		}
		opts = append(opts, session.WithFavoriteStore(s.store), session.WithHistory(s.store))
	}

	sess := session.New(s.catalog, s.rules, s.launcher, opts...)
	if err := sess.LoadFavorites(ctx); err != nil {
		return nil, err
	}
	s.sessions[id] = sess
	return sess, nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listAuthorities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authorities": s.catalog.Authorities(),
	})
}

func (s *Server) listLevels(w http.ResponseWriter, r *http.Request) {
	levels := s.catalog.Levels(chi.URLParam(r, "id"))
	ordering.SortLevels(levels)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"levels": levels,
	})
}

func (s *Server) queryCatalog(w http.ResponseWriter, r *http.Request) {
	filter, err := query.ParseKindFilter(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	text := r.URL.Query().Get("q")

	groups := query.Run(s.catalog.Groups(chi.URLParam(r, "id")), text, filter)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"groups": groups,
		"count":  query.Count(groups),
		"query":  text,
		"kind":   filter,
	})
}

// DeriveRequest is the validated query of GET /derive
type DeriveRequest struct {
	Authority string `validate:"required"`
	Level     string `validate:"required"`
	Subject   string `validate:"omitempty,max=100"`
	Year      int    `validate:"omitempty,min=1900,max=2200"`
}

func (s *Server) derive(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := DeriveRequest{
		Authority: q.Get("authority"),
		Level:     q.Get("level"),
		Subject:   q.Get("subject"),
	}
	if y := q.Get("year"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		req.Year = n
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter, err := query.ParseKindFilter(q.Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := domain.SelectionContext{
		Authority: req.Authority,
		Level:     req.Level,
		Subject:   req.Subject,
		AsOfYear:  req.Year,
	}
	if ctx.AsOfYear == 0 {
		ctx.AsOfYear = s.clock.CurrentYear()
	}

	items, err := s.rules.Derive(ctx)
	if err != nil {
		s.log.Error("derive failed", zap.Any("context", ctx), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	sess, err := s.session(r.Context(), r)
	if err == nil {
		sess.Remember(items...)
	}
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	groups := query.Run([]domain.Group[domain.DerivedResource]{s.rules.Group(ctx, items)}, q.Get("q"), filter)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"context": ctx,
		"groups":  groups,
		"count":   query.Count(groups),
	})
}

func (s *Server) getResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(r.Context(), r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res, ok := sess.Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"resource": res,
		"favorite": sess.IsFavorite(id),
	})
}

func (s *Server) openResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(r.Context(), r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res, ok := sess.Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	if _, err := sess.Activate(r.Context(), res); err != nil {
		if errors.Is(err, session.ErrInvalidLink) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"resource": res,
				"warning":  err.Error(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"resource": res,
		"status":   "launching",
	})
}

func (s *Server) listFavorites(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(r.Context(), r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"favorites": sess.Favorites(),
	})
}

func (s *Server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(r.Context(), r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// a stale favorite may still be removed
	if _, ok := sess.Find(id); !ok && !sess.IsFavorite(id) {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	on, err := sess.ToggleFavorite(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       id,
		"favorite": on,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
