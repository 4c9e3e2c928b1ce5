// Package api exposes the HTTP surface: the event-subscription webhook the
// chat platform calls, plus a health endpoint. Request signatures are
// verified before anything is decoded; handling happens off the request
// goroutine so the webhook can acknowledge within the platform's deadline.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/quarterdeck/internal/events"
)

// Handler consumes one decoded event.
type Handler interface {
	Handle(ctx context.Context, ev events.Event) error
}

// Server is the HTTP server.
type Server struct {
	echo          *echo.Echo
	port          int
	signingSecret string
	handler       Handler
	log           zerolog.Logger
}

// NewServer creates the server and wires its routes.
func NewServer(port int, signingSecret string, handler Handler, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	s := &Server{
		echo:          e,
		port:          port,
		signingSecret: signingSecret,
		handler:       handler,
		log:           log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	s.echo.POST("/slack/events", s.handleEvents)
}

// Start runs the server until ctx is cancelled, then shuts it down with a
// grace period for in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.log.Info().Int("port", s.port).Msg("http server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
