package audit

import (
	"context"
	"prompt-manager/internal/metrics"
	"prompt-manager/internal/worker"

	"github.com/rs/zerolog/log"
)

// Dispatcher fans entries out to its sinks. With a pool, delivery happens on
// the pool's workers; without one it is synchronous.
type Dispatcher struct {
	sinks []Sink
	pool  *worker.WorkerPool
}

func NewDispatcher(pool *worker.WorkerPool, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, pool: pool}
}

// Record fills request metadata from ctx and hands the entry to every sink.
func (d *Dispatcher) Record(ctx context.Context, e Entry) {
	e = e.FillFrom(ctx)

	for _, sink := range d.sinks {
		task := func(ctx context.Context) error {
			err := sink.Write(ctx, e)
			metrics.RecordAudit(sink.Name(), err)
			return err
		}
		if d.pool == nil {
			if err := task(context.WithoutCancel(ctx)); err != nil {
				log.Warn().Err(err).Str("sink", sink.Name()).Msg("audit write failed")
			}
			continue
		}
		if !d.pool.Submit(task) {
			metrics.RecordAuditDropped()
		}
	}
}
