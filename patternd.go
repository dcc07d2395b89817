// Package patternd plays LED patterns on a strip and streams the rendered
// frames to websocket viewers.
package patternd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"dev.acmcsuf.com/patternd/show"
	"github.com/gobwas/ws"
	"github.com/gofrs/uuid/v5"
	"golang.org/x/sync/errgroup"
	"gopkg.in/typ.v4/sync2"
)

// ServerOpts are options for a server.
type ServerOpts struct {
	// Player is the player whose frames are streamed and which viewers may
	// control.
	Player *Player
	// Logger is the logger to use for the server.
	Logger *slog.Logger
	// HTTPUpgrader is the HTTP-to-Websocket upgrader to use for the server.
	HTTPUpgrader ws.HTTPUpgrader
}

// Server handles all viewer websocket connections.
type Server struct {
	opts        ServerOpts
	connections sync2.Map[*Session, sessionControl]
}

type sessionControl struct {
	cancel context.CancelCauseFunc
}

// NewServer creates a new server.
func NewServer(opts ServerOpts) *Server {
	return &Server{
		opts: opts,
	}
}

// KickAllConnections kicks all connections from the server.
// Optionally, a reason can be provided.
func (s *Server) KickAllConnections(reason string) {
	var err error
	if reason != "" {
		err = fmt.Errorf("kicked: %s", reason)
	} else {
		err = fmt.Errorf("kicked")
	}

	s.connections.Range(func(s *Session, ctrl sessionControl) bool {
		ctrl.cancel(err)
		return true
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session, err := SessionUpgrade(w, r, s.opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancelCause(r.Context())
	defer cancel(nil)

	s.connections.Store(session, sessionControl{cancel: cancel})
	defer s.connections.Delete(session)

	if err := session.Start(ctx); err != nil {
		session.logger.Debug(
			"session ended",
			"error", err,
			"cause", context.Cause(ctx))
	}
}

// Session is a websocket session with a single viewer. It streams frames to
// the viewer and applies its pattern selections.
type Session struct {
	ID uuid.UUID

	ws     *websocketServer
	logger *slog.Logger
	opts   ServerOpts
}

// SessionUpgrade upgrades an HTTP request to a websocket session.
func SessionUpgrade(w http.ResponseWriter, r *http.Request, opts ServerOpts) (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	wsconn, _, _, err := opts.HTTPUpgrader.Upgrade(r, w)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade HTTP: %w", err)
	}

	logger := opts.Logger.With(
		"addr", wsconn.RemoteAddr(),
		"session", id)

	return &Session{
		ID:     id,
		ws:     newWebsocketServer(wsconn, logger),
		logger: logger,
		opts:   opts,
	}, nil
}

// Start starts the session.
func (s *Session) Start(ctx context.Context) error {
	errg, ctx := errgroup.WithContext(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errg.Go(func() error {
		return s.ws.Start(ctx)
	})

	errg.Go(func() error {
		// Treat main loop errors as fatal and kill the connection,
		// but don't return it because it's not the caller's fault.
		if err := s.mainLoop(ctx); err != nil {
			return s.ws.SendError(ctx, err)
		}
		return nil
	})

	return errg.Wait()
}

func (s *Session) mainLoop(ctx context.Context) error {
	frames, unsubscribe := s.opts.Player.Subscribe(EventFrame)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-frames:
			s.ws.Send(ctx, &ServerMessage{
				Seq:     ev.Seq,
				LEDs:    ev.LEDs,
				Pattern: ev.Pattern.String(),
			})

		case msg := <-s.ws.Messages:
			if msg.Select == "" {
				continue
			}

			step, err := show.DecodeStep([]byte(msg.Select))
			if err != nil {
				return fmt.Errorf("invalid selection: %w", err)
			}

			s.logger.InfoContext(ctx,
				"viewer selected pattern",
				"pattern", step.Pattern.Kind)

			if err := s.opts.Player.Select(ctx, step.Pattern); err != nil {
				return fmt.Errorf("failed to select pattern: %w", err)
			}
		}
	}
}
