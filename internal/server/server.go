// Package server is a development backend for the tarefas REST API. It keeps
// tasks in memory and answers the routes the sync client calls.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Makepad-fr/tarefas/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Backend stores tasks by id. Safe for concurrent use.
type Backend struct {
	mu    sync.RWMutex
	tasks map[int64]model.Task
	token string
	log   *slog.Logger

	requests *prometheus.CounterVec
	reg      *prometheus.Registry
}

// New creates a backend. A non-empty token is required as bearer credential
// on every API call.
func New(token string, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	reg := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tarefas_backend_requests_total",
		Help: "API requests by method and status",
	}, []string{"method", "status"})
	reg.MustRegister(requests)

	return &Backend{
		tasks:    make(map[int64]model.Task),
		token:    token,
		log:      log,
		requests: requests,
		reg:      reg,
	}
}

// Handler routes /api/tarefas and /metrics.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(b.logRequests)

	r.Handle("/metrics", promhttp.HandlerFor(b.reg, promhttp.HandlerOpts{}))

	r.Route("/api/tarefas", func(r chi.Router) {
		r.Use(b.requireToken)
		r.Get("/", b.list)
		r.Post("/", b.create)
		r.Put("/{id}", b.update)
		r.Delete("/{id}", b.remove)
	})
	return r
}

// Tasks returns the stored tasks ordered by id.
func (b *Backend) Tasks() []model.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Backend) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		b.requests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		b.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (b *Backend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.token != "" {
			got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			if got != b.token {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.Tasks())
}

func (b *Backend) create(w http.ResponseWriter, r *http.Request) {
	var t model.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if t.ID == 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	b.mu.Lock()
	b.tasks[t.ID] = t
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, t)
}

func (b *Backend) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var body struct {
		Titulo string `json:"titulo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	t, found := b.tasks[id]
	if found {
		t.Title = body.Titulo
		b.tasks[id] = t
	}
	b.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (b *Backend) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	_, found := b.tasks[id]
	delete(b.tasks, id)
	b.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
