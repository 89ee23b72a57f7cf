package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/muddyapp/muddy/core"
	"github.com/muddyapp/muddy/core/course"
	"github.com/muddyapp/muddy/core/session"
	"github.com/muddyapp/muddy/core/story"
	"github.com/muddyapp/muddy/core/submission"
)

type (
	Deps struct {
		Conf           *core.Config
		Logger         core.Logger
		DisableReqLogs bool

		CourseSvc     *course.Service
		SessionSvc    *session.Service
		SubmissionSvc *submission.Service
		StorySvc      *story.Service
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		addr     string
		shutdown chan os.Signal
		deps     *Deps
		app      *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(addr string, shutdown chan os.Signal, deps *Deps) Server {
	s := &server{
		addr:     addr,
		shutdown: shutdown,
		deps:     deps,
		app:      echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.GET("/class/:token", classLinkHandler(s.deps.SessionSvc, conf))

	api := s.app.Group("/api")
	api.GET("/health", health)

	jwt := middleware.JWTWithConfig(newJWTConfig(conf))
	staff := staffMiddleware()

	registerAuthAPI(api, conf)
	registerCourseAPI(api, jwt, staff, s.deps.CourseSvc, s.deps.SessionSvc)
	registerSubmissionAPI(api, s.deps.SubmissionSvc)
	registerAnalyticsAPI(api, s.deps.SubmissionSvc)
	registerStoryAPI(api, jwt, staff, s.deps.StorySvc)
}

// signalShutdown asks main to gracefully bring the server down.
func (s *server) signalShutdown() {
	if s.shutdown != nil {
		s.shutdown <- syscall.SIGTERM
	}
}

func (s *server) Start() {
	if err := s.app.Start(s.addr); err != nil && err != http.ErrServerClosed {
		s.app.Logger.Fatal(err)
	}
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Muddy API!")
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
