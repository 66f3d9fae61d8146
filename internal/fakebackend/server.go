package fakebackend

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"wordxl/internal/config"
	"wordxl/internal/logging"
)

const (
	defaultStep = 10
	defaultTick = 500 * time.Millisecond

	sessionCookie = "sessionid"
)

// Paths are the routes the server answers on.
type Paths struct {
	Upload   string
	Convert  string
	Progress string
	Result   string
	Reset    string
}

// DefaultPaths matches the default client configuration.
func DefaultPaths() Paths {
	return Paths{
		Upload:   "/api/upload/",
		Convert:  "/api/convert/",
		Progress: "/api/progress/",
		Result:   "/api/result/",
		Reset:    "/api/reset/",
	}
}

// Options configures a Server.
type Options struct {
	Paths  Paths
	Step   int
	Tick   time.Duration
	Logger *slog.Logger
}

// Server is the stand-in backend. It implements http.Handler.
type Server struct {
	echo   *echo.Echo
	paths  Paths
	step   int
	tick   time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	jobs       map[string]*job
	script     []Step
	failUpload bool
	failStart  bool
	users      map[string]account
	sessions   map[string]string
	requestIDs []string
}

// New builds a server with its routes registered.
func New(opts Options) *Server {
	if opts.Paths == (Paths{}) {
		opts.Paths = DefaultPaths()
	}
	if opts.Step <= 0 {
		opts.Step = defaultStep
	}
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	s := &Server{
		paths:    opts.Paths,
		step:     opts.Step,
		tick:     opts.Tick,
		logger:   logging.NewComponentLogger(opts.Logger, "dev-backend"),
		now:      time.Now,
		jobs:     make(map[string]*job),
		users:    make(map[string]account),
		sessions: make(map[string]string),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.logRequests)

	e.POST(s.paths.Upload, s.handleUpload)
	e.POST(s.paths.Convert, s.handleStart)
	e.GET(s.paths.Progress, s.handleProgress)
	e.GET(s.paths.Result, s.handleResult)
	e.POST(s.paths.Reset, s.handleReset)

	e.POST("/api/auth/login/", s.handleLogin)
	e.POST("/api/auth/logout/", s.handleLogout)
	e.GET("/api/auth/check/", s.handleCheck)

	s.echo = e
	return s
}

// NewFromConfig builds a server that answers on the configured endpoint
// paths with the [dev_backend] progress cadence.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Server {
	return New(Options{
		Paths: Paths{
			Upload:   cfg.Service.UploadPath,
			Convert:  cfg.Service.ConvertPath,
			Progress: cfg.Service.ProgressPath,
			Result:   cfg.Service.ResultPath,
			Reset:    cfg.Service.ResetPath,
		},
		Step:   cfg.DevBackend.Step,
		Tick:   time.Duration(cfg.DevBackend.TickMillis) * time.Millisecond,
		Logger: logger,
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.echo, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("dev backend listening", logging.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

// SetScript replaces the time-based progress with a fixed sequence. Each
// poll consumes one step; the last step repeats.
func (s *Server) SetScript(steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append([]Step(nil), steps...)
}

// FailUpload makes uploads answer 500.
func (s *Server) FailUpload(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpload = fail
}

// FailStart makes conversion starts answer 500.
func (s *Server) FailStart(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStart = fail
}

// RequestIDs returns the X-Request-ID values seen so far.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		started := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		rid := c.Response().Header().Get(echo.HeaderXRequestID)
		s.mu.Lock()
		s.requestIDs = append(s.requestIDs, rid)
		s.mu.Unlock()
		s.logger.Debug("request",
			logging.String("method", c.Request().Method),
			logging.String("path", c.Request().URL.Path),
			logging.Int("status", c.Response().Status),
			logging.String(logging.FieldCorrelationID, rid),
			logging.Duration("elapsed", time.Since(started)),
		)
		return nil
	}
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}
