// Package dashboard serves every snapshot view over HTTP.
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/covidlens-cli/internal/config"
	"github.com/KaramelBytes/covidlens-cli/internal/logging"
	"github.com/KaramelBytes/covidlens-cli/internal/report"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-Id"

// Loader is the snapshot source the handlers read through.
type Loader interface {
	Load(ctx context.Context, date time.Time) (*report.Snapshot, error)
	Location(date time.Time) string
}

// Server wires the handlers to a shared loader.
type Server struct {
	loader Loader
	cfg    *config.Global
	log    *zap.Logger
}

// NewServer returns a dashboard over loader. A nil cfg uses the defaults.
func NewServer(loader Loader, cfg *config.Global, log *zap.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{loader: loader, cfg: cfg, log: log}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.accessLog())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := r.Group("/api")
	api.GET("/source", s.source)
	api.GET("/countries", s.countries)
	api.GET("/countries/list", s.countryList)
	api.GET("/provinces", s.provinces)
	api.GET("/extremes", s.extremes)
	api.GET("/profile", s.profile)
	api.GET("/sample", s.sample)
	api.GET("/sample.xlsx", s.sampleXLSX)
	r.GET("/charts/:file", s.chart)
	return r
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

// requestID reuses the caller's X-Request-Id or mints one, echoes it and
// stores a tagged logger in the request context.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Set("requestID", id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), s.log, id))
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.FromContext(c.Request.Context()).Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
