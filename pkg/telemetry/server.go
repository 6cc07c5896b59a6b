package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trunkwave/trunkwave/pkg/logger"
)

// ServeHTTP runs the metrics and websocket-telemetry HTTP servers until
// ctx is cancelled, split across the two independently configurable
// listeners the CLI exposes.
func ServeHTTP(ctx context.Context, metricsEnabled bool, metricsHost string, metricsPort int, metricsPath string,
	webEnabled bool, webHost string, webPort int, reg *prometheus.Registry, hub *Hub, log *logger.Logger) error {

	var servers []*http.Server

	if metricsEnabled {
		mux := http.NewServeMux()
		mux.Handle(metricsPath, MetricsGatherer(reg))
		addr := fmt.Sprintf("%s:%d", metricsHost, metricsPort)
		servers = append(servers, &http.Server{Addr: addr, Handler: mux, ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second})
		if log != nil {
			log.Info("metrics server listening", logger.String("addr", addr), logger.String("path", metricsPath))
		}
	}

	if webEnabled && hub != nil {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		mux.Handle("/ws", hub.Handler())
		addr := fmt.Sprintf("%s:%d", webHost, webPort)
		servers = append(servers, &http.Server{Addr: addr, Handler: mux, ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second})
		if log != nil {
			log.Info("telemetry websocket server listening", logger.String("addr", addr))
		}
	}

	if len(servers) == 0 {
		<-ctx.Done()
		return nil
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		srv := srv
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		shutdownAll(servers)
		return err
	}

	shutdownAll(servers)
	return nil
}

func shutdownAll(servers []*http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		_ = srv.Shutdown(shutdownCtx)
	}
}

// MetricsGatherer lets a caller register a custom registry in place of the
// default one promhttp.Handler() reads from. A nil registry falls back to
// the default one.
func MetricsGatherer(reg *prometheus.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
