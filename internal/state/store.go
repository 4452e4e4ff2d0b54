// Package state owns the canonical task list of a running session.
//
// Every mutation updates the in-memory list first and then dispatches two
// independent side effects: the full list is written to the local kv store
// and the single change is sent to the remote sink. Side effects run on two
// background queues (one per sink) so each sink sees mutations in order.
// Their failures are logged and counted, never returned, and never undo the
// in-memory change.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Makepad-fr/tarefas/internal/kv"
	"github.com/Makepad-fr/tarefas/internal/model"
	"github.com/Makepad-fr/tarefas/internal/remote"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultTimeout bounds a single persist or sync call.
const DefaultTimeout = 10 * time.Second

const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// Store is the task list state container.
type Store struct {
	mu    sync.RWMutex
	tasks []model.Task
	ids   *model.IDGen

	local kv.Store
	sink  remote.Sink

	log     *slog.Logger
	timeout time.Duration
	metrics *metrics

	persistQ *queue
	syncQ    *queue
	base     context.Context
	cancel   context.CancelFunc
}

type options struct {
	log     *slog.Logger
	timeout time.Duration
	reg     prometheus.Registerer
	now     func() time.Time
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithTimeout bounds each side effect. Zero or negative keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRegisterer registers the store metrics on reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.reg = reg }
}

// WithClock drives id generation.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates an empty store. Call Load to pick up persisted tasks and Close
// to flush pending side effects.
func New(local kv.Store, sink remote.Sink, opts ...Option) *Store {
	o := options{
		log:     slog.Default(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.reg == nil {
		o.reg = prometheus.NewRegistry()
	}
	if sink == nil {
		sink = remote.Nop{}
	}

	base, cancel := context.WithCancel(context.Background())
	return &Store{
		tasks:    []model.Task{},
		ids:      model.NewIDGen(o.now),
		local:    local,
		sink:     sink,
		log:      o.log,
		timeout:  o.timeout,
		metrics:  newMetrics(o.reg),
		persistQ: newQueue(),
		syncQ:    newQueue(),
		base:     base,
		cancel:   cancel,
	}
}

// Load replaces the in-memory list with the persisted one. A missing,
// unreadable or malformed value leaves the list empty.
func (s *Store) Load(ctx context.Context) {
	tasks, err := s.read(ctx)
	if err != nil {
		s.log.Error("load tasks", "key", kv.TasksKey, "error", err)
		tasks = []model.Task{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = tasks
	s.ids.Seed(tasks)
	s.metrics.tasks.Set(float64(len(tasks)))
}

func (s *Store) read(ctx context.Context) ([]model.Task, error) {
	b, err := s.local.Get(ctx, kv.TasksKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return []model.Task{}, nil
		}
		return nil, err
	}
	var tasks []model.Task
	if err := json.Unmarshal(b, &tasks); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// Tasks returns a copy of the list in insertion order.
func (s *Store) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Find returns the task with id.
func (s *Store) Find(id int64) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i], true
	}
	return model.Task{}, false
}

// Add appends a task titled title. Empty titles are accepted.
func (s *Store) Add(title string) (model.Task, *Effects) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := model.Task{ID: s.ids.Next(), Title: title}
	s.tasks = append(s.tasks, task)

	return task, s.dispatchLocked(opCreate, task.ID, func(ctx context.Context) error {
		return s.sink.Create(ctx, task)
	})
}

// Edit replaces the title of task id. It reports false, and does nothing,
// when id is unknown.
func (s *Store) Edit(id int64, title string) (bool, *Effects) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false, completedEffects()
	}
	s.tasks[i].Title = title

	return true, s.dispatchLocked(opUpdate, id, func(ctx context.Context) error {
		return s.sink.Update(ctx, id, title)
	})
}

// Delete removes task id. It reports false, and does nothing, when id is unknown.
func (s *Store) Delete(id int64) (bool, *Effects) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false, completedEffects()
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)

	return true, s.dispatchLocked(opDelete, id, func(ctx context.Context) error {
		return s.sink.Delete(ctx, id)
	})
}

// Close stops accepting side effects and waits for the queued ones. If ctx
// ends first, in-flight calls are cancelled and ctx.Err() is returned.
func (s *Store) Close(ctx context.Context) error {
	s.persistQ.close()
	s.syncQ.close()
	defer s.cancel()

	for _, q := range []*queue{s.persistQ, s.syncQ} {
		select {
		case <-q.stopped:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// dispatchLocked queues both effects. It runs under s.mu so the persisted
// snapshots reach the persist queue in mutation order.
func (s *Store) dispatchLocked(op string, id int64, call func(context.Context) error) *Effects {
	s.metrics.tasks.Set(float64(len(s.tasks)))
	snap := s.snapshotLocked()

	persisted, ok := s.persistQ.push(func() {
		s.run("persist", op, id, func(ctx context.Context) error { return s.persist(ctx, snap) })
	})
	if !ok {
		s.log.Warn("store closed, persist dropped", "op", op, "id", id)
	}
	synced, ok := s.syncQ.push(func() {
		s.run("sync", op, id, call)
	})
	if !ok {
		s.log.Warn("store closed, sync dropped", "op", op, "id", id)
	}
	return newEffects(persisted, synced)
}

func (s *Store) run(effect, op string, id int64, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(s.base, s.timeout)
	defer cancel()

	err := fn(ctx)
	s.metrics.observe(effect, op, err)
	if err != nil {
		s.log.Error(effect+" failed", "op", op, "id", id, "error", err)
		return
	}
	s.log.Debug(effect+" done", "op", op, "id", id)
}

func (s *Store) persist(ctx context.Context, tasks []model.Task) error {
	b, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return s.local.Set(ctx, kv.TasksKey, b)
}

func (s *Store) snapshotLocked() []model.Task {
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *Store) indexLocked(id int64) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
