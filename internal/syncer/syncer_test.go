package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonatato/routeit-sub001/internal/connectivity"
	"github.com/jonatato/routeit-sub001/internal/localstore"
	"github.com/jonatato/routeit-sub001/internal/models"
)

type fakeQueue struct {
	mu        sync.Mutex
	mutations []localstore.Mutation
	dead      map[string]time.Time
	lists     int
}

func newFakeQueue(mutations ...localstore.Mutation) *fakeQueue {
	return &fakeQueue{mutations: mutations, dead: make(map[string]time.Time)}
}

func (q *fakeQueue) ListMutations(ctx context.Context) ([]localstore.Mutation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lists++
	live := make([]localstore.Mutation, 0, len(q.mutations))
	for _, m := range q.mutations {
		if _, parked := q.dead[m.ID]; !parked {
			live = append(live, m)
		}
	}
	return live, nil
}

func (q *fakeQueue) RemoveMutation(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, m := range q.mutations {
		if m.ID == id {
			q.mutations = append(q.mutations[:i], q.mutations[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *fakeQueue) MarkMutationDead(ctx context.Context, id string, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead[id] = at
	return nil
}

func (q *fakeQueue) listCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lists
}

func (q *fakeQueue) ids() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.mutations))
	for _, m := range q.mutations {
		if _, parked := q.dead[m.ID]; !parked {
			out = append(out, m.ID)
		}
	}
	return out
}

type scriptedApplier struct {
	applied []string
	fail    map[string]error
}

func (a *scriptedApplier) ApplyMutation(ctx context.Context, m models.PendingMutation) error {
	if err, ok := a.fail[m.ID]; ok {
		return err
	}
	a.applied = append(a.applied, m.ID)
	return nil
}

func queuedMutation(id string, at time.Time) localstore.Mutation {
	return localstore.Mutation{
		ID:        id,
		Kind:      "expense",
		Action:    "create",
		Payload:   []byte(`{}`),
		CreatedAt: at,
	}
}

func onlineMonitor() *connectivity.Monitor {
	m := connectivity.NewMonitor()
	m.SetOnline()
	return m
}

func TestDrainAppliesInCreationOrder(t *testing.T) {
	base := time.Now()
	queue := newFakeQueue(
		queuedMutation("a", base),
		queuedMutation("b", base.Add(time.Second)),
		queuedMutation("c", base.Add(2*time.Second)),
	)
	applier := &scriptedApplier{}
	loop := New(queue, applier, onlineMonitor(), Config{}, nil, zerolog.Nop())

	loop.Drain(context.Background())

	assert.Equal(t, []string{"a", "b", "c"}, applier.applied)
	assert.Empty(t, queue.ids())
}

func TestDrainLeavesFailedMutationQueued(t *testing.T) {
	base := time.Now()
	queue := newFakeQueue(
		queuedMutation("a", base),
		queuedMutation("b", base.Add(time.Second)),
		queuedMutation("c", base.Add(2*time.Second)),
	)
	applier := &scriptedApplier{fail: map[string]error{"b": errors.New("remote hiccup")}}
	loop := New(queue, applier, onlineMonitor(), Config{}, nil, zerolog.Nop())

	loop.Drain(context.Background())

	assert.Equal(t, []string{"a", "c"}, applier.applied)
	assert.Equal(t, []string{"b"}, queue.ids())
}

func TestDrainSkippedWhileOffline(t *testing.T) {
	queue := newFakeQueue(queuedMutation("a", time.Now()))
	applier := &scriptedApplier{}
	loop := New(queue, applier, connectivity.NewMonitor(), Config{}, nil, zerolog.Nop())

	loop.Drain(context.Background())

	assert.Empty(t, applier.applied)
	assert.Equal(t, []string{"a"}, queue.ids())
}

func TestDrainReturnsToOnline(t *testing.T) {
	queue := newFakeQueue(queuedMutation("a", time.Now()))
	monitor := onlineMonitor()
	var seen []connectivity.Status
	monitor.OnChange(func(_, next connectivity.Status) { seen = append(seen, next) })
	loop := New(queue, &scriptedApplier{}, monitor, Config{}, nil, zerolog.Nop())

	loop.Drain(context.Background())

	require.Equal(t, []connectivity.Status{connectivity.Syncing, connectivity.Online}, seen)
	assert.Equal(t, connectivity.Online, monitor.Status())
}

func TestExhaustedMutationMovesToDeadLetter(t *testing.T) {
	queue := newFakeQueue(queuedMutation("stuck", time.Now()))
	applier := &scriptedApplier{fail: map[string]error{"stuck": errors.New("payload refers to deleted member")}}
	loop := New(queue, applier, onlineMonitor(), Config{MaxAttempts: 3}, nil, zerolog.Nop())

	var dead []string
	loop.OnDead(func(m models.PendingMutation) { dead = append(dead, m.ID) })

	ctx := context.Background()
	loop.Drain(ctx)
	loop.Drain(ctx)
	require.Empty(t, queue.dead, "two attempts should not exhaust a budget of three")

	loop.Drain(ctx)

	assert.Contains(t, queue.dead, "stuck")
	assert.Equal(t, []string{"stuck"}, dead)
	assert.Empty(t, queue.ids())
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	queue := newFakeQueue(queuedMutation("a", time.Now()))
	applier := &scriptedApplier{fail: map[string]error{"a": errors.New("timeout")}}
	loop := New(queue, applier, onlineMonitor(), Config{}, nil, zerolog.Nop())

	ctx := context.Background()
	loop.Drain(ctx)
	require.Equal(t, []string{"a"}, queue.ids())

	delete(applier.fail, "a")
	loop.Drain(ctx)

	assert.Equal(t, []string{"a"}, applier.applied)
	assert.Empty(t, queue.ids())
	assert.Empty(t, loop.attempts, "attempt counter should clear on success")
}

func TestRunDoesNotRespinOnEndOfPassTransition(t *testing.T) {
	queue := newFakeQueue(queuedMutation("stuck", time.Now()))
	applier := &scriptedApplier{fail: map[string]error{"stuck": errors.New("timeout")}}
	loop := New(queue, applier, onlineMonitor(), Config{Interval: time.Hour, MaxAttempts: 100}, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	// The failing mutation stays queued and each pass ends with a
	// syncing-to-online transition. Only the interval may start another
	// pass, so with Interval at an hour exactly one pass runs.
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 1, queue.listCount())
	assert.Equal(t, []string{"stuck"}, queue.ids())
}

func TestRunDrainsOnReconnect(t *testing.T) {
	queue := newFakeQueue(queuedMutation("a", time.Now()))
	applier := &scriptedApplier{}
	monitor := connectivity.NewMonitor()
	loop := New(queue, applier, monitor, Config{Interval: time.Hour}, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	monitor.SetOnline()

	require.Eventually(t, func() bool { return len(queue.ids()) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, []string{"a"}, applier.applied)
}
