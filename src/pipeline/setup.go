package pipeline

import (
	"context"
	"fmt"
	"net/http"

	"drone-compare/src/broker"
	"drone-compare/src/config"
	"drone-compare/src/drone"
	"drone-compare/src/logger"
	"drone-compare/src/metrics"
	"drone-compare/src/report"
	"drone-compare/src/store"
)

// Clients builds the Gen1 and Gen2 API clients described by cfg.
func Clients(cfg *config.Config) (*drone.Client, *drone.Client, error) {
	timeout, err := cfg.HTTPTimeout()
	if err != nil {
		return nil, nil, err
	}

	opts := []drone.Option{
		drone.WithHTTPClient(&http.Client{Timeout: timeout}),
		drone.WithPageSize(cfg.HTTP.PageSize),
	}
	gen1 := drone.NewClient("drone1", cfg.Drone1.URL, cfg.Repo, cfg.Drone1.Token, opts...)
	gen2 := drone.NewClient("drone2", cfg.Drone2.URL, cfg.Repo, cfg.Drone2.Token, opts...)
	return gen1, gen2, nil
}

// FromConfig builds a Runner for cfg. The returned store is nil when
// persistence is disabled; the caller closes it.
func FromConfig(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runner, store.Store, error) {
	gen1, gen2, err := Clients(cfg)
	if err != nil {
		return nil, nil, err
	}

	engine, err := metrics.NewEngine(cfg.MetricsOptions(), log)
	if err != nil {
		return nil, nil, err
	}

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var opts []Option
	if st != nil {
		opts = append(opts, WithStore(st))
	}
	return NewRunner(gen1, gen2, engine, log, opts...), st, nil
}

// OpenStore opens the configured store, or returns nil if none is configured.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.DSN == "" {
		return nil, nil
	}
	st, err := store.Open(ctx, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", store.DialectFor(cfg.Store.DSN), err)
	}
	return st, nil
}

// PublishEnabled reports whether rows should be published to Redpanda.
func PublishEnabled(cfg *config.Config) bool {
	return len(cfg.Redpanda.Brokers) > 0
}

// Outputs opens the report sink and, when publishing is enabled, a Redpanda
// row publisher. Rows are published before the report is committed, so a
// failed publish leaves no report. The returned cleanup closes the broker
// after the sink.
func Outputs(ctx context.Context, cfg *config.Config, out report.Options, log logger.Logger) (metrics.Sink, func(), error) {
	sink, err := report.Open(out)
	if err != nil {
		return nil, nil, err
	}

	if !PublishEnabled(cfg) {
		return sink, func() {}, nil
	}

	publisher, cleanup, err := Publisher(ctx, cfg, log)
	if err != nil {
		metrics.Abort(sink)
		return nil, nil, err
	}
	return metrics.MultiSink{publisher, sink}, cleanup, nil
}

// Publisher connects to the configured Redpanda brokers and returns a row
// publisher. Runner.Run binds the run ID before the first row. The returned
// cleanup closes the broker.
func Publisher(ctx context.Context, cfg *config.Config, log logger.Logger) (metrics.Sink, func(), error) {
	rp, err := broker.NewRedpandaBroker(cfg.Redpanda.Brokers, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Redpanda broker: %w", err)
	}
	log.Info("Publishing rows to %s on %v", cfg.Redpanda.Topic, cfg.Redpanda.Brokers)

	publisher := broker.NewRowPublisher(ctx, rp, cfg.Redpanda.Topic, "")
	cleanup := func() {
		if err := rp.Close(); err != nil {
			log.Warn("Failed to close Redpanda broker: %v", err)
		}
	}
	return publisher, cleanup, nil
}
