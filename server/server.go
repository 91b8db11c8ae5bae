package server

import (
	"context"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/siegeai/javro/javro"
	"github.com/siegeai/javro/registry"
	"log/slog"
	"net/http"
)

type Options struct {
	// Namespace is used when a request does not name one.
	Namespace string

	// Registry, when set, lets requests that name a subject reorder against and check
	// compatibility with its latest version.
	Registry *registry.Client

	Logger *slog.Logger
}

type Server struct {
	router    *mux.Router
	namespace string
	registry  *registry.Client
	logger    *slog.Logger
	gatherer  *prometheus.Registry
	metrics   *javro.Metrics
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		router:    mux.NewRouter(),
		namespace: opts.Namespace,
		registry:  opts.Registry,
		logger:    logger,
		gatherer:  reg,
		metrics:   javro.NewMetrics(reg),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
