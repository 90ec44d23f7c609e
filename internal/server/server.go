// Package server exposes the gateway over HTTP for the house bucket.
//
// Credentials come from X-S3-* request headers and fall back to the
// gateway's configured defaults. Every JSON response uses the envelope
// {success, message, data, error}.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/bucketgate/internal/gateway"
	"github.com/koustreak/bucketgate/internal/logger"
)

// Options configures a Server.
type Options struct {
	Addr    string
	Gateway *gateway.Gateway
	Logger  *logger.Logger

	// Debug adds error details to 5xx responses.
	Debug bool

	// MaxUploadBytes caps multipart uploads. Zero means 5 GiB, the single
	// PUT limit of S3.
	MaxUploadBytes int64
}

// Server is the HTTP front end.
type Server struct {
	gw        *gateway.Gateway
	log       *logger.Logger
	debug     bool
	maxUpload int64
	router    chi.Router
	http      *http.Server
}

// New builds the router. It does not start listening.
func New(opts Options) (*Server, error) {
	if opts.Gateway == nil {
		return nil, errors.New("server: Gateway is required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 5 << 30
	}

	s := &Server{
		gw:        opts.Gateway,
		log:       log,
		debug:     opts.Debug,
		maxUpload: maxUpload,
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, envelope{Success: true, Message: "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/connection/test", s.testConnection)
		r.Get("/stats", s.bucketStats)

		r.Route("/objects", func(r chi.Router) {
			r.Get("/", s.listObjects)
			r.Post("/", s.uploadObject)
			r.Delete("/", s.deleteObject)
			r.Get("/exists", s.objectExists)
			r.Get("/metadata", s.objectMetadata)
			r.Get("/preview", s.previewObject)
			r.Get("/range", s.objectRange)
			r.Get("/download-url", s.downloadURL)
			r.Get("/upload-url", s.uploadURL)
			r.Post("/copy", s.copyObject)
			r.Post("/rename", s.renameObject)
		})

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", s.listFolders)
			r.Post("/", s.createFolder)
			r.Delete("/", s.deleteFolder)
		})
	})
	return r
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until the server stops. It returns nil after a
// graceful Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Infof("listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// requestLogger logs one line per request and puts a request-scoped
// logger into the context.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		reqLog := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()

		next.ServeHTTP(ww, r.WithContext(reqLog.WithContext(r.Context())))

		reqLog.HTTPEvent().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
