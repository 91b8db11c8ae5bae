package registrytest

import (
	"compress/gzip"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
)

const contentType = "application/vnd.schemaregistry.v1+json"

type server struct {
	router   *mux.Router
	registry *Registry
	logger   *slog.Logger
	gzip     bool
}

// Option configures the handler returned by NewHandler.
type Option func(*server)

// WithLogger logs every request to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *server) { s.logger = logger }
}

// WithGzip compresses responses for clients that accept gzip.
func WithGzip() Option {
	return func(s *server) { s.gzip = true }
}

func NewHandler(r *Registry, opts ...Option) http.Handler {
	s := &server{
		router:   mux.NewRouter(),
		registry: r,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.setupRoutes()
	return s.router
}

// NewServer starts an httptest server around a fresh registry.
func NewServer(opts ...Option) (*httptest.Server, *Registry) {
	r := NewRegistry()
	return httptest.NewServer(NewHandler(r, opts...)), r
}

func (s *server) setupRoutes() {
	s.router.HandleFunc("/subjects", s.handleGetSubjects()).Methods("GET")
	s.router.HandleFunc("/subjects/{subject}/versions", s.handleGetVersions()).Methods("GET")
	s.router.HandleFunc("/subjects/{subject}/versions", s.handleRegister()).Methods("POST")
	s.router.HandleFunc("/subjects/{subject}/versions/{version}", s.handleGetVersion()).Methods("GET")
	s.router.HandleFunc("/compatibility/subjects/{subject}/versions/{version}", s.handleCompatibility()).Methods("POST")
	s.router.Use(s.logMiddleware)
}

func (s *server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := negroni.NewResponseWriter(w)
		next.ServeHTTP(ww, r)
		s.logger.Debug("registry request", "method", r.Method, "uri", r.RequestURI, "status", ww.Status(), "size", ww.Size())
	})
}

func (s *server) handleGetSubjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.write(w, r, http.StatusOK, s.registry.Subjects())
	}
}

func (s *server) handleGetVersions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versions, err := s.registry.Versions(mux.Vars(r)["subject"])
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.write(w, r, http.StatusOK, versions)
	}
}

type versionResponse struct {
	Subject string `json:"subject"`
	Version int    `json:"version"`
	ID      int    `json:"id"`
	Schema  string `json:"schema"`
}

func (s *server) handleGetVersion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		subject := vars["subject"]

		version, err := s.versionOf(subject, vars["version"])
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		id, schema, err := s.registry.Schema(subject, version)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if version == 0 {
			versions, _ := s.registry.Versions(subject)
			version = len(versions)
		}

		s.write(w, r, http.StatusOK, &versionResponse{Subject: subject, Version: version, ID: id, Schema: schema})
	}
}

type schemaRequest struct {
	Schema string `json:"schema"`
}

func (s *server) handleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := readSchemaRequest(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		id, _, err := s.registry.Register(mux.Vars(r)["subject"], req.Schema)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.write(w, r, http.StatusOK, map[string]int{"id": id})
	}
}

type compatibilityResponse struct {
	IsCompatible bool     `json:"is_compatible"`
	Messages     []string `json:"messages,omitempty"`
}

func (s *server) handleCompatibility() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		subject := vars["subject"]

		version, err := s.versionOf(subject, vars["version"])
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		req, err := readSchemaRequest(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		msgs, err := s.registry.Compatible(subject, version, req.Schema)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.write(w, r, http.StatusOK, &compatibilityResponse{IsCompatible: len(msgs) == 0, Messages: msgs})
	}
}

// versionOf parses a version path segment; "latest" is 0.
func (s *server) versionOf(subject, v string) (int, error) {
	if v == "latest" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, &registryError{code: codeVersionNotFound, message: "version " + v + " of subject " + subject + " not found"}
	}
	return n, nil
}

func readSchemaRequest(r *http.Request) (*schemaRequest, error) {
	bs, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	var req schemaRequest
	if err := json.Unmarshal(bs, &req); err != nil {
		return nil, &registryError{code: codeInvalidSchema, message: "invalid request body: " + err.Error()}
	}
	return &req, nil
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	re, ok := err.(*registryError)
	if !ok {
		re = &registryError{code: 50001, message: err.Error()}
	}

	status := re.code
	if status > 999 {
		status /= 100
	}
	s.write(w, r, status, map[string]any{"error_code": re.code, "message": re.message})
}

func (s *server) write(w http.ResponseWriter, r *http.Request, status int, v any) {
	bs, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("could not encode response", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	if !s.gzip || !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.WriteHeader(status)
		_, _ = w.Write(bs)
		return
	}

	w.Header().Set("Content-Encoding", "gzip")
	w.WriteHeader(status)
	gz := gzip.NewWriter(w)
	_, _ = gz.Write(bs)
	if err := gz.Close(); err != nil {
		s.logger.Warn("could not close gzip writer", "err", err)
	}
}
