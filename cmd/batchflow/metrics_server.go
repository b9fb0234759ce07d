package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alexisbeaulieu97/batchflow/internal/infrastructure/metrics"
	"github.com/alexisbeaulieu97/batchflow/internal/ports"
)

// metricsServer exposes the run's Prometheus registry on /metrics.
type metricsServer struct {
	srv      *http.Server
	listener net.Listener
	done     chan error
}

// startMetrics returns a no-op collector when addr is empty.
func startMetrics(addr string, logger ports.Logger) (ports.MetricsCollector, *metricsServer, error) {
	if addr == "" {
		return metrics.NewNoOpCollector(), nil, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.NewPrometheusCollector(reg)
	if err != nil {
		return nil, nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &metricsServer{
		srv:      &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		listener: listener,
		done:     make(chan error, 1),
	}
	go func() {
		err := server.srv.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		server.done <- err
	}()

	logger.Info(context.Background(), "serving metrics", "addr", listener.Addr().String())
	return collector, server, nil
}

// Addr is the bound listen address.
func (m *metricsServer) Addr() string {
	if m == nil {
		return ""
	}
	return m.listener.Addr().String()
}

func (m *metricsServer) Shutdown() error {
	if m == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.srv.Shutdown(ctx); err != nil {
		return err
	}
	return <-m.done
}
