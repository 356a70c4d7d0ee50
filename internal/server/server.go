// Package server exposes the render protocol over HTTP.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mcncl/jsonview/internal/config"
	"github.com/mcncl/jsonview/internal/errors"
	"github.com/mcncl/jsonview/internal/worker"
)

const shutdownTimeout = 5 * time.Second

// RenderResponse is the body of a /render response.
type RenderResponse struct {
	Reply worker.Reply        `json:"reply"`
	Loads []worker.LoadSignal `json:"loads"`
}

// Server serves render requests with gin.
type Server struct {
	cfg    *config.Config
	log    logrus.FieldLogger
	worker *worker.Worker
	engine *gin.Engine
}

// New builds the gin engine and registers the routes.
func New(cfg *config.Config, logger logrus.FieldLogger, w *worker.Worker) *Server {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if w == nil {
		w = worker.New(cfg, logger)
	}

	s := &Server{
		cfg:    cfg,
		log:    logger,
		worker: w,
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.logRequests())
	s.RegisterRoute(func(route *gin.Engine) {
		route.GET("/healthz", s.healthz)
		route.POST("/render", s.render)
	})
	return s
}

// RegisterRoute lets callers add routes to the engine.
func (s *Server) RegisterRoute(route func(route *gin.Engine)) {
	route(s.engine)
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return errors.NewTransportError("failed to listen on "+s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout) * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- httpServer.Serve(ln)
	}()
	s.log.WithField("addr", ln.Addr().String()).Info("server started")

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.NewTransportError("server stopped", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.NewTransportError("failed to shut down server", err)
	}
	return nil
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) render(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			s.log.WithField("limit", tooLarge.Limit).Warn("request body too large")
			fail(c, http.StatusRequestEntityTooLarge)
			return
		}
		s.log.WithError(err).Warn("failed to read request body")
		fail(c, http.StatusBadRequest)
		return
	}

	req, err := worker.DecodeRequest(body)
	if err != nil {
		s.log.WithError(err).Warn("rejecting undecodable request")
		fail(c, http.StatusBadRequest)
		return
	}

	reply, loads := s.worker.Handle(req)
	if loads == nil {
		loads = []worker.LoadSignal{}
	}
	status := http.StatusOK
	if reply.Error {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, RenderResponse{Reply: reply, Loads: loads})
}

// fail answers with the error reply and no loads.
func fail(c *gin.Context, status int) {
	c.JSON(status, RenderResponse{Reply: worker.Reply{Error: true}, Loads: []worker.LoadSignal{}})
}

// logRequests logs each request at debug level once it completes.
func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("handled request")
	}
}
