package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/slack-go/slack"

	"github.com/quarterdeck/internal/events"
)

// handleTimeout bounds one event's processing once the HTTP request has been
// acknowledged.
const handleTimeout = 30 * time.Second

// handleEvents receives one event-subscription callback. The platform retries
// any delivery not acknowledged within three seconds, so the event is
// dispatched on its own goroutine and the request answered immediately.
func (s *Server) handleEvents(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	if err := s.verifySignature(c.Request().Header, body); err != nil {
		s.log.Warn().Err(err).Msg("rejected event with bad signature")
		return c.NoContent(http.StatusUnauthorized)
	}

	ev, err := events.Decode(body)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to decode event payload")
		return c.NoContent(http.StatusBadRequest)
	}
	if ev == nil {
		return c.NoContent(http.StatusOK)
	}

	if challenge, ok := ev.(events.URLVerification); ok {
		return c.String(http.StatusOK, challenge.Challenge)
	}

	go s.dispatch(ev)
	return c.NoContent(http.StatusOK)
}

func (s *Server) verifySignature(header http.Header, body []byte) error {
	verifier, err := slack.NewSecretsVerifier(header, s.signingSecret)
	if err != nil {
		return err
	}
	if _, err := verifier.Write(body); err != nil {
		return err
	}
	return verifier.Ensure()
}

// dispatch runs the handler for one event under a correlation ID. A panic in
// a handler must not take the process down; it is logged and the event
// dropped.
func (s *Server) dispatch(ev events.Event) {
	log := s.log.With().Str("event_id", uuid.NewString()).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("event handler panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := s.handler.Handle(ctx, ev); err != nil {
		log.Error().Err(err).Msg("event handling failed")
	}
}
