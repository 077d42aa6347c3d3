package main

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/cuemby/balthazar/pkg/config"
	"github.com/cuemby/balthazar/pkg/health"
	"github.com/cuemby/balthazar/pkg/log"
	"github.com/cuemby/balthazar/pkg/metrics"
	"github.com/cuemby/balthazar/pkg/swarmnet"
)

// startMetricsServer exposes /metrics, /health, /ready, and /live on
// cfg.MetricsAddr, and keeps a swarmnet peer-count collector and a set of
// background health checks running for as long as ctx stays alive. A
// blank cfg.MetricsAddr disables the endpoint entirely.
func startMetricsServer(ctx context.Context, cfg config.Config, host *swarmnet.Host) {
	if cfg.MetricsAddr == "" {
		return
	}

	collector := metrics.NewCollector(host)
	collector.Start()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())

	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics: server stopped: " + err.Error())
		}
	}()

	metrics.RegisterComponent("swarm", true, "")
	go runHealthChecks(ctx, cfg)

	go func() {
		<-ctx.Done()
		collector.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// runHealthChecks periodically probes the role-specific external
// dependency a node can't function without: the chain RPC endpoint for a
// Manager, the IPFS gateway for a Worker configured with that backend.
func runHealthChecks(ctx context.Context, cfg config.Config) {
	var checker health.Checker
	var name string

	switch cfg.NodeType {
	case config.NodeTypeManager:
		name = "chain"
		checker = health.NewHTTPChecker(cfg.Chain.RPCEndpoint)
	case config.NodeTypeWorker:
		name = "storage"
		if cfg.Storage.Backend == "ipfs" {
			checker = health.NewHTTPChecker(ipfsHealthURL(cfg.Storage.IPFSURL))
		}
	}
	if checker == nil {
		metrics.RegisterComponent(name, true, "no external dependency to probe")
		return
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		result := checker.Check(ctx)
		metrics.RegisterComponent(name, result.Healthy, result.Message)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func ipfsHealthURL(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = "/api/v0/version"
	return u.String()
}
