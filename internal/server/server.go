// Package server exposes the tracker over a JSON HTTP API.
package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/nhle/task-tracker/internal/auth"
	"github.com/nhle/task-tracker/internal/tracker"
)

// Server wires HTTP routes to a tracker.Service.
type Server struct {
	echo   *echo.Echo
	svc    *tracker.Service
	tokens *auth.Tokens
	log    *logrus.Entry
}

// New builds the router with logging, metrics, and bearer authentication.
func New(svc *tracker.Service, tokens *auth.Tokens, log *logrus.Entry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, svc: svc, tokens: tokens, log: log}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.logRequests)
	e.Use(metrics)

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.POST("/login", s.login)

	protected := api.Group("", s.authenticate)

	protected.GET("/me", s.getMe)
	protected.PUT("/me", s.updateMe)
	protected.GET("/dashboard", s.getDashboard)

	protected.GET("/tasks", s.listTasks)
	protected.POST("/tasks", s.createTask)
	protected.GET("/tasks/:id", s.getTask)
	protected.PUT("/tasks/:id", s.editTask)
	protected.DELETE("/tasks/:id", s.deleteTask)
	protected.PATCH("/tasks/:id/status", s.updateTaskStatus)
	protected.GET("/tasks/:id/attachment", s.downloadAttachment)
	protected.POST("/checklist/:id/toggle", s.toggleChecklistItem)

	protected.GET("/users", s.listUsers)
	protected.POST("/users", s.createUser)
	protected.GET("/users/:id", s.getUser)
	protected.PUT("/users/:id", s.editUser)
	protected.DELETE("/users/:id", s.deleteUser)

	protected.GET("/notices", s.listNotices)
	protected.POST("/notices/read", s.markNoticesRead)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called, then returns
// http.ErrServerClosed.
func (s *Server) Start(addr string) error {
	s.log.WithField("addr", addr).Info("http server listening")
	return s.echo.Start(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
