package statsd

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cloudant/bucky/queue"
)

// Orchestrator wires the Server, FlushEngine and GaugePersister together
// and owns their goroutine lifecycle with an errgroup + context
// cancellation, rather than a detached thread that wakes on a timer.
type Orchestrator struct {
	agg           *Aggregator
	server        *Server
	flush         *FlushEngine
	persister     *GaugePersister
	persistGauges bool
}

// NewOrchestrator assembles the full engine: Aggregator, Server, FlushEngine
// and GaugePersister, ready for Run. persistGauges gates whether the
// persister's Load/Save are actually invoked; when false the GaugePersister
// is still built but never touches disk.
func NewOrchestrator(serverCfg ServerConfig, flushCfg FlushConfig, gaugeDir, gaugeFile string, gaugeGzip, persistGauges bool, defaults Metadata, q queue.Queue, log logrus.FieldLogger, stats *SelfStats) *Orchestrator {
	agg := NewAggregator(defaults, log.WithField("component", "aggregator"))
	if stats != nil {
		agg.OnBadLine(func(string) { stats.BadLines.Inc() })
	}

	var recv, drop func()
	if stats != nil {
		recv = stats.PacketsReceived.Inc
		drop = stats.PacketsDropped.Inc
	}

	return &Orchestrator{
		agg:           agg,
		server:        NewServer(serverCfg, agg, log.WithField("component", "server"), recv, drop),
		flush:         NewFlushEngine(agg, flushCfg, q, log.WithField("component", "flush")),
		persister:     NewGaugePersister(gaugeDir, gaugeFile, gaugeGzip, log.WithField("component", "gauges")),
		persistGauges: persistGauges,
	}
}

// Aggregator exposes the underlying Aggregator, e.g. for the admin HTTP
// surface's read-only gauge snapshot.
func (o *Orchestrator) Aggregator() *Aggregator { return o.agg }

// Run loads any persisted gauges, then runs the Server and FlushEngine
// until ctx is canceled, at which point it saves gauges once before
// returning. There is no graceful cancellation of an in-flight tick —
// shutdown just stops scheduling new ticks and saves once.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.persistGauges {
		o.persister.Load(o.agg)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.server.Run(gctx)
	})
	g.Go(func() error {
		o.flush.Run(gctx)
		return nil
	})

	err := g.Wait()
	if o.persistGauges {
		o.persister.Save(o.agg)
	}
	return err
}
