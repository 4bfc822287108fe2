package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/plateful/tenantcore/internal/adapter/metrics"
)

// Prober runs periodic liveness probes against every backend instance
// and is the only writer of the registry's health state.
type Prober struct {
	registry      *ServiceRegistry
	client        *http.Client
	logger        *slog.Logger
	metrics       *metrics.GatewayMetrics
	interval      time.Duration
	failThreshold int
	riseThreshold int
}

func NewProber(
	registry *ServiceRegistry,
	logger *slog.Logger,
	m *metrics.GatewayMetrics,
	interval, timeout time.Duration,
	failThreshold, riseThreshold int,
) *Prober {
	return &Prober{
		registry:      registry,
		client:        &http.Client{Timeout: timeout},
		logger:        logger.With("component", "health_prober"),
		metrics:       m,
		interval:      interval,
		failThreshold: failThreshold,
		riseThreshold: riseThreshold,
	}
}

// Run blocks until ctx is cancelled, probing every backend each tick.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("starting backend health prober",
		"interval", p.interval,
		"fail_threshold", p.failThreshold,
		"rise_threshold", p.riseThreshold,
	)

	// One immediate sweep so the gateway does not serve a whole interval
	// on optimistic health state.
	p.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("stopping backend health prober")
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// Sweep probes every backend once. Exposed for tests.
func (p *Prober) Sweep(ctx context.Context) {
	for service, backends := range p.registry.snapshot() {
		for _, b := range backends {
			up := p.probe(ctx, b)
			healthy, changed := p.registry.setHealth(b, up, p.failThreshold, p.riseThreshold)

			gauge := 0.0
			if healthy {
				gauge = 1.0
			}
			p.metrics.BackendHealthy.WithLabelValues(service, b.URL.Host).Set(gauge)

			if changed {
				if healthy {
					p.logger.Info("backend restored", "service", service, "instance", b.URL.Host)
				} else {
					p.logger.Warn("backend ejected", "service", service, "instance", b.URL.Host)
				}
			}
		}
	}
}

func (p *Prober) probe(ctx context.Context, b *Backend) bool {
	probeURL := b.URL.JoinPath("/health").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
