// Command buckyd runs the StatsD aggregation daemon: it listens for UDP
// StatsD/DogStatsD datagrams, aggregates them in memory, and flushes
// derived points to a downstream queue on a fixed interval.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/cloudant/bucky/internal/config"
	"github.com/cloudant/bucky/internal/httpapi"
	"github.com/cloudant/bucky/queue"
	"github.com/cloudant/bucky/statsd"
)

func main() {
	app := &cli.App{
		Name:  "buckyd",
		Usage: "StatsD aggregation daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "/etc/buckyd/buckyd.toml",
				Usage:   "path to the daemon's TOML configuration file",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("buckyd: exiting")
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	log := newLogger(cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	stats := statsd.NewSelfStats(reg)

	q, closeQueue, err := buildQueue(cfg, log)
	if err != nil {
		return err
	}
	defer closeQueue()

	orch := statsd.NewOrchestrator(
		statsd.ServerConfig{
			Address:                cfg.ServiceAddress,
			NumberWorkerThreads:    cfg.NumberWorkerThreads,
			AllowedPendingMessages: cfg.AllowedPendingMessages,
			ReadBufferSize:         cfg.ReadBufferSize,
		},
		statsd.FlushConfig{
			FlushTime: cfg.FlushInterval(),
			Naming: statsd.NamingConfig{
				LegacyNamespace: cfg.LegacyNamespace,
				GlobalPrefix:    cfg.GlobalPrefix,
				PrefixCounter:   cfg.PrefixCounter,
				PrefixTimer:     cfg.PrefixTimer,
				PrefixGauge:     cfg.PrefixGauge,
				PrefixSet:       cfg.PrefixSet,
			},
			PercentileThresholds: cfg.PercentileThresholds,
			Timer: statsd.TimerEnables{
				Mean:       cfg.TimerMean,
				Upper:      cfg.TimerUpper,
				Lower:      cfg.TimerLower,
				Count:      cfg.TimerCount,
				CountPS:    cfg.TimerCountPS,
				Sum:        cfg.TimerSum,
				SumSquares: cfg.TimerSumSquares,
				Median:     cfg.TimerMedian,
				Std:        cfg.TimerStd,
			},
			Delete: statsd.DeleteIdleStats{
				Enabled:           cfg.DeleteIdlestats,
				Counters:          cfg.DeleteIdlestats && cfg.DeleteCounters,
				Timers:            cfg.DeleteIdlestats && cfg.DeleteTimers,
				Sets:              cfg.DeleteIdlestats && cfg.DeleteSets,
				OnlyChangedGauges: cfg.DeleteIdlestats && cfg.OnlychangedGauges,
			},
		},
		cfg.Directory,
		cfg.GaugesSavefile,
		cfg.GaugesSavefileGzip,
		cfg.PersistentGauges,
		metadataOf(cfg),
		q,
		log,
		stats,
	)

	admin := httpapi.New(cfg.AdminAddress, orch.Aggregator(), reg, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- orch.Run(ctx) }()
	go func() {
		if err := admin.Run(); err != nil {
			log.WithError(err).Error("buckyd: admin server stopped")
		}
	}()

	err = <-errc
	_ = admin.Shutdown()
	return err
}

func metadataOf(cfg *config.Config) statsd.Metadata {
	if len(cfg.Metadata) == 0 {
		return nil
	}
	return statsd.Metadata(cfg.Metadata)
}

func buildQueue(cfg *config.Config, log logrus.FieldLogger) (queue.Queue, func(), error) {
	if len(cfg.Kafka.Brokers) > 0 {
		kq, err := queue.NewKafkaQueue(queue.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, log)
		if err != nil {
			return nil, func() {}, err
		}
		return kq, func() { _ = kq.Close() }, nil
	}

	cq := queue.NewChannelQueue(cfg.AllowedPendingMessages)
	return cq, func() {}, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}
