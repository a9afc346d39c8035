// Copyright 2026 The Drivefuse Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Server wires the OpenTelemetry SDK's Prometheus exporter into a meter
// provider and serves it over /metrics on the given port, in the style of
// the teacher's own pull-based exporter setup. Callers are expected to call
// Shutdown when the mount exits.
type Server struct {
	httpServer *http.Server
	provider   *sdkmetric.MeterProvider
}

// StartServer builds a Prometheus exporter, installs it as the global
// OpenTelemetry meter provider, and starts serving /metrics on port.
func StartServer(port int) (*Server, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		_ = httpServer.ListenAndServe()
	}()

	return &Server{httpServer: httpServer, provider: provider}, nil
}

// Shutdown stops serving metrics and flushes the meter provider.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return s.provider.Shutdown(ctx)
}
