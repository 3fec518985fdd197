// Package syncer drains the offline mutation queue against the remote system
// whenever connectivity allows: on every offline-to-online transition and on
// a fixed interval while online, so transient failures get retried without a
// fresh connectivity event.
package syncer

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/jonatato/routeit-sub001/internal/connectivity"
	"github.com/jonatato/routeit-sub001/internal/localstore"
	"github.com/jonatato/routeit-sub001/internal/models"
)

// Applier replays one queued mutation against the remote system. The service
// layer implements it.
type Applier interface {
	ApplyMutation(ctx context.Context, m models.PendingMutation) error
}

// Queue is the durable pending-mutation store.
type Queue interface {
	ListMutations(ctx context.Context) ([]localstore.Mutation, error)
	RemoveMutation(ctx context.Context, id string) error
	MarkMutationDead(ctx context.Context, id string, at time.Time) error
}

// Monitor is the connectivity surface the loop drives and listens to.
type Monitor interface {
	Available() bool
	SetSyncing()
	SetOnline()
	OnChange(fn func(prev, next connectivity.Status)) func()
}

type Config struct {
	// Interval between drain passes while online.
	Interval time.Duration
	// Timeout for one remote apply; a hung call must not wedge the drain.
	Timeout time.Duration
	// MaxAttempts before a mutation is parked as dead instead of retried
	// forever.
	MaxAttempts int
}

type Loop struct {
	queue   Queue
	applier Applier
	monitor Monitor
	breaker *gobreaker.CircuitBreaker
	cfg     Config
	log     zerolog.Logger
	metrics *Metrics

	// attempts is in-memory on purpose: a process restart resets the budget,
	// which errs on the side of retrying after whatever broke was fixed.
	attempts map[string]int

	// onDead, when set, surfaces a sync-failure notification for a mutation
	// that exhausted its budget.
	onDead func(models.PendingMutation)
}

func New(queue Queue, applier Applier, monitor Monitor, cfg Config, metrics *Metrics, log zerolog.Logger) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	settings := gobreaker.Settings{Name: "remote-apply"}
	settings.Interval = 60 * time.Second
	settings.Timeout = 30 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 5
	}
	return &Loop{
		queue:    queue,
		applier:  applier,
		monitor:  monitor,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		cfg:      cfg,
		log:      log.With().Str("component", "syncer").Logger(),
		metrics:  metrics,
		attempts: make(map[string]int),
	}
}

// OnDead registers the sync-failure callback. Must be called before Run.
func (l *Loop) OnDead(fn func(models.PendingMutation)) {
	l.onDead = fn
}

// Run drains until ctx is cancelled. Each offline-to-online transition and
// each interval tick triggers one pass. Only the offline edge kicks a drain:
// the syncing-to-online transition Drain itself performs at end of pass must
// not re-trigger, or a pass that leaves a failing mutation queued would spin
// without ever waiting out the interval.
func (l *Loop) Run(ctx context.Context) {
	kick := make(chan struct{}, 1)
	cancel := l.monitor.OnChange(func(prev, next connectivity.Status) {
		if prev == connectivity.Offline && next == connectivity.Online {
			select {
			case kick <- struct{}{}:
			default:
			}
		}
	})
	defer cancel()

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	if l.monitor.Available() {
		l.Drain(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-kick:
			l.Drain(ctx)
		case <-ticker.C:
			l.Drain(ctx)
		}
	}
}

// Drain runs one reconciliation pass: every live queued mutation is tried
// once, in creation order. A failing mutation is left in place and the pass
// moves on; the state always returns to online when the pass ends, whether
// or not anything remains queued.
func (l *Loop) Drain(ctx context.Context) {
	if !l.monitor.Available() {
		return
	}
	mutations, err := l.queue.ListMutations(ctx)
	if err != nil {
		l.log.Error().Err(err).Msg("listing pending mutations failed")
		return
	}
	if len(mutations) == 0 {
		if l.metrics != nil {
			l.metrics.QueueDepth.Set(0)
		}
		return
	}

	l.monitor.SetSyncing()
	defer l.monitor.SetOnline()

	remaining := 0
	for _, queued := range mutations {
		mutation := models.PendingMutation{
			ID:        queued.ID,
			Kind:      queued.Kind,
			Action:    models.MutationAction(queued.Action),
			Payload:   queued.Payload,
			CreatedAt: queued.CreatedAt,
		}
		if err := l.applyOne(ctx, mutation); err != nil {
			if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
				// Remote is down; stop burning the rest of the queue.
				l.log.Warn().Msg("remote apply breaker open, ending drain pass")
				remaining += countRemaining(mutations, queued.ID)
				break
			}
			l.metrics.failedInc()
			l.attempts[mutation.ID]++
			if l.attempts[mutation.ID] >= l.cfg.MaxAttempts {
				l.park(ctx, mutation, err)
				continue
			}
			l.log.Warn().Err(err).Str("mutation_id", mutation.ID).Str("kind", mutation.Kind).
				Int("attempts", l.attempts[mutation.ID]).Msg("mutation replay failed, will retry")
			remaining++
			continue
		}
		delete(l.attempts, mutation.ID)
		if err := l.queue.RemoveMutation(ctx, mutation.ID); err != nil {
			l.log.Error().Err(err).Str("mutation_id", mutation.ID).Msg("dequeue failed after successful replay")
			remaining++
			continue
		}
		l.metrics.drainedInc()
		l.log.Debug().Str("mutation_id", mutation.ID).Str("kind", mutation.Kind).Msg("mutation replayed")
	}
	if l.metrics != nil {
		l.metrics.QueueDepth.Set(float64(remaining))
	}
}

func (l *Loop) applyOne(ctx context.Context, mutation models.PendingMutation) error {
	_, err := l.breaker.Execute(func() (any, error) {
		applyCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()
		return nil, l.applier.ApplyMutation(applyCtx, mutation)
	})
	return err
}

func (l *Loop) park(ctx context.Context, mutation models.PendingMutation, cause error) {
	l.log.Error().Err(cause).Str("mutation_id", mutation.ID).Str("kind", mutation.Kind).
		Msg("mutation exhausted retry budget, moving to dead letter")
	if err := l.queue.MarkMutationDead(ctx, mutation.ID, time.Now()); err != nil {
		l.log.Error().Err(err).Str("mutation_id", mutation.ID).Msg("dead-letter mark failed")
		return
	}
	delete(l.attempts, mutation.ID)
	l.metrics.deadInc()
	if l.onDead != nil {
		l.onDead(mutation)
	}
}

func countRemaining(mutations []localstore.Mutation, fromID string) int {
	for i, m := range mutations {
		if m.ID == fromID {
			return len(mutations) - i
		}
	}
	return 0
}

func (m *Metrics) drainedInc() {
	if m != nil {
		m.Drained.Inc()
	}
}

func (m *Metrics) failedInc() {
	if m != nil {
		m.Failed.Inc()
	}
}

func (m *Metrics) deadInc() {
	if m != nil {
		m.DeadLettered.Inc()
	}
}
