package server

import (
	"context"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/siegeai/javro/javro"
	"github.com/siegeai/javro/jsonschema"
	"github.com/siegeai/javro/mapper"
	"github.com/siegeai/javro/registry"
	"github.com/siegeai/javro/resolve"
	"github.com/urfave/negroni"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const maxBodySize = 4 << 20

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/v1/convert", s.handleConvert()).Methods("POST")
	s.router.HandleFunc("/healthz", s.handleHealth()).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	s.router.Use(requestIDMiddleware, s.logMiddleware)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := negroni.NewResponseWriter(w)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"size", ww.Size(),
			"requestId", requestID(r.Context()))
	})
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	}
}

func (s *Server) handleConvert() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		allowMultipleTypes := false
		if v := q.Get("allowMultipleTypes"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				s.writeError(w, r, http.StatusBadRequest, errors.Errorf("invalid allowMultipleTypes %q", v))
				return
			}
			allowMultipleTypes = b
		}

		bs, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, err)
			return
		}

		format := jsonschema.FormatJSON
		if ct := r.Header.Get("Content-Type"); strings.Contains(ct, "yaml") {
			format = jsonschema.FormatYAML
		}
		doc, err := jsonschema.Unmarshal(bs, format)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, errors.Wrap(err, "decoding schema"))
			return
		}

		namespace := s.namespace
		if q.Has("namespace") {
			namespace = q.Get("namespace")
		}

		opts := javro.Options{
			Schema:             doc,
			Namespace:          namespace,
			Name:               q.Get("name"),
			AllowMultipleTypes: allowMultipleTypes,
			Resolver:           resolve.NewResolver(resolve.LocalOnly{}),
			Metrics:            s.metrics,
			Logger:             s.logger.With("requestId", requestID(r.Context())),
		}
		if subject := q.Get("subject"); subject != "" && s.registry != nil {
			opts.AvroFetcher = registry.NewAvroFetcher(s.registry, subject)
		}

		res, err := javro.Run(r.Context(), opts)
		if err != nil {
			s.writeError(w, r, statusOf(err), err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, res)
	}
}

func statusOf(err error) int {
	var re *registry.ResponseError
	switch {
	case mapper.IsMappingError(err):
		return http.StatusUnprocessableEntity
	case errors.As(err, &re), errors.Is(err, registry.ErrUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.logger.Debug("conversion failed", "err", err, "requestId", requestID(r.Context()))
	s.writeJSON(w, r, status, &errorResponse{Error: err.Error(), RequestID: requestID(r.Context())})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	bs, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("could not encode response", "err", err, "requestId", requestID(r.Context()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(bs)
}
