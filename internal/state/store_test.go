package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/Makepad-fr/tarefas/internal/kv"
	"github.com/Makepad-fr/tarefas/internal/logging"
	"github.com/Makepad-fr/tarefas/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	Op    string
	ID    int64
	Title string
}

// recSink records calls and optionally fails them.
type recSink struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (r *recSink) record(c call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	return r.err
}

func (r *recSink) Create(_ context.Context, t model.Task) error {
	return r.record(call{"create", t.ID, t.Title})
}

func (r *recSink) Update(_ context.Context, id int64, title string) error {
	return r.record(call{"update", id, title})
}

func (r *recSink) Delete(_ context.Context, id int64) error {
	return r.record(call{"delete", id, ""})
}

func (r *recSink) Calls() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

// brokenKV fails every operation.
type brokenKV struct{}

func (brokenKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk gone") }
func (brokenKV) Set(context.Context, string, []byte) error   { return errors.New("disk gone") }
func (brokenKV) Delete(context.Context, string) error        { return errors.New("disk gone") }
func (brokenKV) Close() error                                { return nil }

func newTestStore(t *testing.T, local kv.Store, sink *recSink, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(logging.NewNop())}, opts...)
	s := New(local, sink, opts...)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func wait(t *testing.T, e *Effects) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Wait(ctx))
}

func persisted(t *testing.T, local kv.Store) []model.Task {
	t.Helper()
	b, err := local.Get(context.Background(), kv.TasksKey)
	require.NoError(t, err)
	var out []model.Task
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestStore_BuyMilkScenario(t *testing.T) {
	local := kv.NewMemory()
	sink := &recSink{}
	s := newTestStore(t, local, sink)
	ctx := context.Background()
	s.Load(ctx)
	require.Empty(t, s.Tasks())

	t1, eff := s.Add("Buy milk")
	wait(t, eff)
	assert.Equal(t, []model.Task{{ID: t1.ID, Title: "Buy milk"}}, s.Tasks())

	ok, eff := s.Edit(t1.ID, "Buy milk and eggs")
	require.True(t, ok)
	wait(t, eff)
	assert.Equal(t, []model.Task{{ID: t1.ID, Title: "Buy milk and eggs"}}, s.Tasks())
	assert.Equal(t, s.Tasks(), persisted(t, local))

	ok, eff = s.Delete(t1.ID)
	require.True(t, ok)
	wait(t, eff)
	assert.Empty(t, s.Tasks())

	b, err := local.Get(ctx, kv.TasksKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b), "empty list persists as [] not null")

	assert.Equal(t, []call{
		{"create", t1.ID, "Buy milk"},
		{"update", t1.ID, "Buy milk and eggs"},
		{"delete", t1.ID, ""},
	}, sink.Calls())
}

func TestStore_PersistenceRoundTrip(t *testing.T) {
	local := kv.NewMemory()
	first := newTestStore(t, local, &recSink{})
	_, eff := first.Add("X")
	wait(t, eff)

	second := newTestStore(t, local, &recSink{})
	second.Load(context.Background())

	tasks := second.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "X", tasks[0].Title)
}

func TestStore_MissingIDIsNoop(t *testing.T) {
	local := kv.NewMemory()
	sink := &recSink{}
	s := newTestStore(t, local, sink)

	task, eff := s.Add("keep")
	wait(t, eff)
	before := s.Tasks()

	ok, eff := s.Edit(task.ID+1, "Y")
	assert.False(t, ok)
	select {
	case <-eff.Done():
	default:
		t.Fatal("effects of a no-op edit should already be done")
	}

	ok, eff = s.Delete(task.ID + 1)
	assert.False(t, ok)
	wait(t, eff)

	assert.Equal(t, before, s.Tasks())
	assert.Len(t, sink.Calls(), 1, "no sink call for unknown ids")
}

func TestStore_EmptyTitleAllowed(t *testing.T) {
	s := newTestStore(t, kv.NewMemory(), &recSink{})
	task, eff := s.Add("")
	wait(t, eff)

	got, ok := s.Find(task.ID)
	require.True(t, ok)
	assert.Equal(t, "", got.Title)
}

func TestStore_RemoteFailureKeepsMemoryChange(t *testing.T) {
	local := kv.NewMemory()
	sink := &recSink{err: errors.New("connection refused")}
	reg := prometheusRegistry()
	s := newTestStore(t, local, sink, WithRegisterer(reg))

	task, eff := s.Add("offline")
	wait(t, eff)

	assert.Equal(t, []model.Task{task}, s.Tasks())
	assert.Equal(t, []model.Task{task}, persisted(t, local), "local persist is independent of sync")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.effects.WithLabelValues("sync", opCreate, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.effects.WithLabelValues("persist", opCreate, "ok")))
}

func TestStore_StorageFailureIgnored(t *testing.T) {
	sink := &recSink{}
	s := newTestStore(t, brokenKV{}, sink)
	s.Load(context.Background())
	assert.Empty(t, s.Tasks())

	task, eff := s.Add("still here")
	wait(t, eff)

	assert.Equal(t, []model.Task{task}, s.Tasks())
	assert.Len(t, sink.Calls(), 1, "sync runs even when persist fails")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.effects.WithLabelValues("persist", opCreate, "error")))
}

func TestStore_LoadMalformedIsEmpty(t *testing.T) {
	for name, raw := range map[string]string{
		"garbage": "{not json",
		"null":    "null",
		"object":  `{"id":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			local := kv.NewMemory()
			require.NoError(t, local.Set(context.Background(), kv.TasksKey, []byte(raw)))
			s := newTestStore(t, local, &recSink{})
			s.Load(context.Background())
			assert.Empty(t, s.Tasks())
			assert.NotNil(t, s.Tasks())
		})
	}
}

func TestStore_LoadReplacesState(t *testing.T) {
	local := kv.NewMemory()
	s := newTestStore(t, local, &recSink{})
	_, eff := s.Add("in memory only")
	wait(t, eff)

	require.NoError(t, local.Set(context.Background(), kv.TasksKey, []byte(`[{"id":5,"titulo":"from disk"}]`)))
	s.Load(context.Background())

	assert.Equal(t, []model.Task{{ID: 5, Title: "from disk"}}, s.Tasks())
}

func TestStore_LoadSeedsIDs(t *testing.T) {
	local := kv.NewMemory()
	future := time.Now().Add(24 * time.Hour).UnixMilli()
	raw := fmt.Sprintf(`[{"id":%d,"titulo":"later"}]`, future)
	require.NoError(t, local.Set(context.Background(), kv.TasksKey, []byte(raw)))

	s := newTestStore(t, local, &recSink{})
	s.Load(context.Background())

	task, eff := s.Add("new")
	wait(t, eff)
	assert.Greater(t, task.ID, future)
}

func TestStore_RapidAddsGetDistinctIDs(t *testing.T) {
	frozen := time.UnixMilli(1_700_000_000_000)
	s := newTestStore(t, kv.NewMemory(), &recSink{}, WithClock(func() time.Time { return frozen }))

	a, _ := s.Add("a")
	b, _ := s.Add("b")
	assert.NotEqual(t, a.ID, b.ID)
}

// Applying a random sequence of operations must match a plain slice model.
func TestStore_ReplayMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	local := kv.NewMemory()
	s := newTestStore(t, local, &recSink{})

	var ref []model.Task
	var last *Effects
	for i := 0; i < 300; i++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(ref) == 0:
			title := fmt.Sprintf("t%d", i)
			task, eff := s.Add(title)
			ref = append(ref, model.Task{ID: task.ID, Title: title})
			last = eff
		case op == 1:
			id := pickID(rng, ref)
			title := fmt.Sprintf("e%d", i)
			ok, eff := s.Edit(id, title)
			for j := range ref {
				if ref[j].ID == id {
					ref[j].Title = title
				}
			}
			assert.Equal(t, containsID(ref, id), ok)
			last = eff
		default:
			id := pickID(rng, ref)
			ok, eff := s.Delete(id)
			assert.Equal(t, containsID(ref, id), ok)
			ref = removeID(ref, id)
			last = eff
		}
	}
	wait(t, last)

	if ref == nil {
		ref = []model.Task{}
	}
	assert.Equal(t, ref, s.Tasks())
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, ref, persisted(t, local), "last persisted snapshot matches memory")
}

func TestStore_ConcurrentAddsAreNotLost(t *testing.T) {
	local := kv.NewMemory()
	sink := &recSink{}
	s := newTestStore(t, local, sink)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Add(fmt.Sprintf("task %d", i))
		}(i)
	}
	wg.Wait()
	require.NoError(t, s.Close(context.Background()))

	tasks := s.Tasks()
	assert.Len(t, tasks, n)
	seen := map[int64]bool{}
	for _, task := range tasks {
		assert.False(t, seen[task.ID], "duplicate id %d", task.ID)
		seen[task.ID] = true
	}
	assert.Len(t, persisted(t, local), n)
	assert.Len(t, sink.Calls(), n)
}

type blockingSink struct{ recSink }

func (b *blockingSink) Create(ctx context.Context, _ model.Task) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestStore_CloseHonoursContext(t *testing.T) {
	s := New(kv.NewMemory(), &blockingSink{}, WithLogger(logging.NewNop()), WithTimeout(time.Hour))
	s.Add("stuck")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Close(ctx), context.DeadlineExceeded)
}

func TestStore_MutationAfterClose(t *testing.T) {
	sink := &recSink{}
	s := New(kv.NewMemory(), sink, WithLogger(logging.NewNop()))
	require.NoError(t, s.Close(context.Background()))

	task, eff := s.Add("late")
	wait(t, eff)
	assert.Equal(t, []model.Task{task}, s.Tasks())
	assert.Empty(t, sink.Calls())
}

func TestEffects_WaitContext(t *testing.T) {
	never := make(chan struct{})
	e := newEffects(never)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.Wait(ctx), context.Canceled)
}

func pickID(rng *rand.Rand, ref []model.Task) int64 {
	// one in four picks an id that does not exist
	if len(ref) == 0 || rng.Intn(4) == 0 {
		return -1
	}
	return ref[rng.Intn(len(ref))].ID
}

func containsID(ref []model.Task, id int64) bool {
	for _, t := range ref {
		if t.ID == id {
			return true
		}
	}
	return false
}

func removeID(ref []model.Task, id int64) []model.Task {
	out := ref[:0]
	for _, t := range ref {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}
