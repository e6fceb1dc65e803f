package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/auth"
	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/ledger"
	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/publish"
	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

const serviceName = "rabbitmq-binding"

// Metrics is what the router records; *telemetry.Metrics satisfies it.
type Metrics interface {
	auth.MetricsRecorder
	RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64)
}

// HealthChecker reports whether the broker channel is usable
type HealthChecker interface {
	IsOpen() bool
}

// Dependencies wires the handlers behind the router. Ledger may be nil,
// which leaves /flushes unregistered. Metrics may be nil.
type Dependencies struct {
	Batch          publish.ServiceInterface
	Ledger         ledger.ServiceInterface
	Health         HealthChecker
	Verifier       auth.TokenVerifier
	Permissions    auth.Permissions
	Metrics        Metrics
	AllowedOrigins []string
}

// SetupRouter initializes all routes for the application
func SetupRouter(deps Dependencies) http.Handler {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware(serviceName))
	if deps.Metrics != nil {
		r.Use(requestMetrics(deps.Metrics))
	}

	var authMetrics auth.MetricsRecorder
	if deps.Metrics != nil {
		authMetrics = deps.Metrics
	}
	protect := func(permission string, h http.HandlerFunc) http.Handler {
		return auth.Middleware(deps.Verifier, authMetrics)(
			auth.RequirePermission(permission, deps.Permissions, authMetrics)(h),
		)
	}

	r.HandleFunc("/health", healthHandler(deps.Health)).Methods(http.MethodGet)

	batchHandler := publish.NewHandler(deps.Batch)
	r.Handle("/batch", protect(auth.PermBatchView, batchHandler.GetBatch)).Methods(http.MethodGet)
	r.Handle("/batch", protect(auth.PermBatchReset, batchHandler.ResetBatch)).Methods(http.MethodDelete)
	r.Handle("/batch/messages", protect(auth.PermBatchPublish, batchHandler.AddMessage)).Methods(http.MethodPost)
	r.Handle("/batch/flush", protect(auth.PermBatchFlush, batchHandler.FlushBatch)).Methods(http.MethodPost)

	if deps.Ledger != nil {
		ledgerHandler := ledger.NewHandler(deps.Ledger)
		r.Handle("/flushes", protect(auth.PermFlushesView, ledgerHandler.ListFlushes)).Methods(http.MethodGet)
	}

	return CORSMiddleware(deps.AllowedOrigins)(r)
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Broker  string `json:"broker"`
}

func healthHandler(hc HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Service: serviceName, Broker: "connected"}
		status := http.StatusOK
		if hc == nil || !hc.IsOpen() {
			resp.Status = "degraded"
			resp.Broker = "disconnected"
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}
}

// requestMetrics records status and latency per route template
func requestMetrics(m Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			snoop := httpsnoop.CaptureMetrics(next, w, r)
			m.RecordHTTPRequest(r.Context(), r.Method, route, snoop.Code, float64(snoop.Duration.Microseconds())/1000)
		})
	}
}
