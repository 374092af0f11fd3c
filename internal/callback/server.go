// Package callback receives the OAuth redirect on a local listener.
package callback

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Result is the authorization response carried by the redirect.
type Result struct {
	Code  string
	State string
}

// Server is a one-shot HTTP listener for the redirect URI.
type Server struct {
	app     *fiber.App
	addr    string
	path    string
	results chan Result
	errs    chan error
	logger  zerolog.Logger
}

// ErrDenied is returned when the user declines the authorization request.
var ErrDenied = errors.New("callback: authorization denied")

// New builds a server for redirectURI, which must be an http URL with an
// explicit port on a loopback host.
func New(redirectURI string, logger zerolog.Logger) (*Server, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("redirect URI must use http, got %q", u.Scheme)
	}
	if u.Port() == "" {
		return nil, fmt.Errorf("redirect URI must include a port: %s", redirectURI)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
		addr:    net.JoinHostPort(u.Hostname(), u.Port()),
		path:    path,
		results: make(chan Result, 1),
		errs:    make(chan error, 1),
		logger:  logger.With().Str("component", "callback").Logger(),
	}
	s.app.Get(path, s.handle)

	return s, nil
}

// handle receives ?code=...&state=... or ?error=...
func (s *Server) handle(c *fiber.Ctx) error {
	if reason := c.Query("error"); reason != "" {
		s.logger.Warn().Str("reason", reason).Msg("Authorization denied")
		s.deliverErr(fmt.Errorf("%w: %s", ErrDenied, reason))
		return c.Status(fiber.StatusBadRequest).SendString("Authorization was denied. You can close this window.")
	}

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Missing authorization code.")
	}

	select {
	case s.results <- Result{Code: code, State: c.Query("state")}:
	default:
		// A result is already pending
		return c.Status(fiber.StatusConflict).SendString("Authorization already received.")
	}

	s.logger.Debug().Msg("Authorization code received")
	return c.SendString("Authentication complete. You can close this window.")
}

func (s *Server) deliverErr(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

// Start begins listening in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Debug().Str("addr", s.addr).Msg("Listening for redirect")
		if err := s.app.Listen(s.addr); err != nil {
			s.deliverErr(fmt.Errorf("callback listener failed: %w", err))
		}
	}()
}

// Wait blocks until the redirect arrives, the listener fails, or ctx ends.
func (s *Server) Wait(ctx context.Context) (Result, error) {
	select {
	case r := <-s.results:
		return r, nil
	case err := <-s.errs:
		return Result{}, err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Shutdown stops the listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
