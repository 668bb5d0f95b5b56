// Package health serves the liveness and stats endpoints.
package health

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/m3rciful/assocbot/core/buildinfo"
	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/core/telegram/middleware"
)

const pingTimeout = 2 * time.Second

// Pinger checks the storage connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Sessions counts users inside a conversation.
type Sessions interface {
	Len() int
}

// Stats is the body of /stats.
type Stats struct {
	Build          buildinfo.Info          `json:"build"`
	ActiveSessions int                     `json:"active_sessions"`
	Updates        middleware.UpdateCounts `json:"updates"`
	Log            logger.WriterStats      `json:"log"`
	Uptime         string                  `json:"uptime"`
}

// Server is the HTTP surface.
type Server struct {
	e        *echo.Echo
	store    Pinger
	sessions Sessions
	started  time.Time
}

// New builds the server and its routes.
func New(store Pinger, sessions Sessions) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	s := &Server{e: e, store: store, sessions: sessions, started: time.Now()}
	e.GET("/healthz", s.healthz)
	e.GET("/stats", s.stats)
	return s
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
	defer cancel()
	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			logger.Warn(ctx, logger.CompHTTP, "healthz.failed", slog.String("err", err.Error()))
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) stats(c echo.Context) error {
	st := Stats{
		Build:   buildinfo.Current(),
		Updates: middleware.Counts(),
		Log:     logger.Stats(),
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	}
	if s.sessions != nil {
		st.ActiveSessions = s.sessions.Len()
	}
	return c.JSON(http.StatusOK, st)
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	logger.Info(context.Background(), logger.CompHTTP, "http.listen", slog.String("addr", addr))
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
