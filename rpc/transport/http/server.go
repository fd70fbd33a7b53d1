package http

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dTodo/rpc/common"
	"github.com/ValentinKolb/dTodo/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net/http"
	"sync"
	"time"
)

var Logger = logger.GetLogger("transport/rpc")

// maxRequestBytes limits the size of a request body
const maxRequestBytes = 8 << 20

func NewHttpServerTransport() transport.IRPCServerTransport {
	return &httpServerTransport{}
}

type httpServerTransport struct {
	handler transport.ServerHandleFunc
	view    transport.ServerViewFunc

	mu       sync.Mutex
	server   *http.Server
	shutdown bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *httpServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *httpServerTransport) RegisterView(view transport.ServerViewFunc) {
	t.view = view
}

func (t *httpServerTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("http transport: no handler registered")
	}

	t.mu.Lock()
	if t.shutdown {
		t.mu.Unlock()
		return nil
	}
	t.server = &http.Server{
		Addr:              config.Endpoint,
		Handler:           NewHandler(t.handler, t.view, config.LogLevel == "debug"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := t.server
	t.mu.Unlock()

	Logger.Infof("Starting HTTP server on %s", config.Endpoint)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (t *httpServerTransport) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	server := t.server
	t.shutdown = true
	t.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// NewHandler builds the routes of the transport:
//
//	POST /{store}  rpc request for the collection
//	GET  /{store}  html page of the collection (if a view is given)
//	GET  /metrics  prometheus metrics
func NewHandler(handler transport.ServerHandleFunc, view transport.ServerViewFunc, logRequests bool) http.Handler {
	mux := http.NewServeMux()

	wrap := func(route string, h http.HandlerFunc) http.HandlerFunc {
		h = metricsMiddleware(route, h)
		if logRequests {
			h = loggerMiddleware(h)
		}
		return h
	}

	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	mux.HandleFunc("POST /{store}", wrap("rpc", rpcHandler(handler)))
	if view != nil {
		mux.HandleFunc("GET /{store}", wrap("view", viewHandler(view)))
	}
	return mux
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// rpcHandler passes the request body to the handler and writes its response
func rpcHandler(handler transport.ServerHandleFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("store")
		if name == "" {
			http.Error(w, "Invalid store name", http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		defer r.Body.Close()
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}

		resp := handler(name, body)
		w.Header().Set("Content-Type", "application/octet-stream")
		if _, err = w.Write(resp); err != nil {
			Logger.Warningf("Failed to write response: %v", err)
		}
	}
}

// viewHandler renders the collection page
func viewHandler(view transport.ServerViewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("store")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := view(name, w); err != nil {
			Logger.Errorf("Failed to render %q: %v", name, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// responseWriter is a custom response writer that captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing it
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware counts requests per route and status and records their duration
func metricsMiddleware(route string, next http.HandlerFunc) http.HandlerFunc {
	duration := metrics.GetOrCreateHistogram(fmt.Sprintf(`dtodo_http_request_duration_seconds{route=%q}`, route))
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration.UpdateDuration(start)
		metrics.GetOrCreateCounter(fmt.Sprintf(`dtodo_http_requests_total{route=%q,code="%d"}`, route, rw.statusCode)).Inc()
	}
}

// loggerMiddleware is a middleware that logs HTTP requests
func loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		Logger.Debugf("%s %s => %d took %s", r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	}
}
