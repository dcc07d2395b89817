package patternd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"golang.org/x/sync/errgroup"
)

// closeGracePeriod is how long the peer gets to answer our close frame
// before the connection is dropped.
const closeGracePeriod = 2 * time.Second

// websocketServer is the server side of a viewer connection. It decodes
// client messages into Messages and encodes whatever is put on Sending.
type websocketServer struct {
	// Messages receives messages from the viewer.
	Messages chan *ClientMessage
	// Sending takes messages to send to the viewer.
	Sending chan *ServerMessage

	wsconn io.ReadWriteCloser
	logger *slog.Logger
}

func newWebsocketServer(wsconn io.ReadWriteCloser, logger *slog.Logger) *websocketServer {
	return &websocketServer{
		Messages: make(chan *ClientMessage),
		Sending:  make(chan *ServerMessage),
		wsconn:   wsconn,
		logger:   logger,
	}
}

// Send queues msg for the viewer.
func (s *websocketServer) Send(ctx context.Context, msg *ServerMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.Sending <- msg:
		return nil
	}
}

// SendError sends err to the viewer as its last message. The connection is
// closed once it is delivered.
func (s *websocketServer) SendError(ctx context.Context, err error) error {
	msg := err.Error()
	return s.Send(ctx, &ServerMessage{Error: &msg})
}

// Start runs the connection until ctx is canceled, the viewer closes it, or
// an error is delivered.
func (s *websocketServer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error { return s.closeOnDone(ctx) })
	errg.Go(func() error {
		defer cancel()
		return s.readLoop(ctx)
	})
	errg.Go(func() error { return s.writeLoop(ctx, errg, cancel) })

	return errg.Wait()
}

func (s *websocketServer) closeOnDone(ctx context.Context) error {
	<-ctx.Done()

	s.logger.DebugContext(ctx,
		"closing websocket",
		"error", ctx.Err())

	if err := s.wsconn.Close(); err != nil {
		s.logger.WarnContext(ctx,
			"failed to close websocket",
			"error", err)

		return fmt.Errorf("failed to close websocket: %w", err)
	}

	return nil
}

func (s *websocketServer) readLoop(ctx context.Context) error {
	var buf bytes.Buffer
	buf.Grow(512)

	for {
		if err := readBinary(&buf, s.wsconn); err != nil {
			var closedErr wsutil.ClosedError
			if errors.As(err, &closedErr) {
				s.logger.DebugContext(ctx,
					"viewer closed websocket",
					"code", closedErr.Code)
				return nil
			}

			if ctx.Err() != nil {
				return ctx.Err()
			}

			return fmt.Errorf("failed to read from websocket: %w", err)
		}

		msg := &ClientMessage{}
		if err := msg.Unmarshal(buf.Bytes()); err != nil {
			return s.SendError(ctx, fmt.Errorf("failed to unmarshal message: %w", err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case s.Messages <- msg:
		}
	}
}

func (s *websocketServer) writeLoop(ctx context.Context, errg *errgroup.Group, cancel context.CancelFunc) error {
	buf := make([]byte, 0, 512)

	for {
		var msg *ServerMessage
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg = <-s.Sending:
		}

		buf = msg.MarshalAppend(buf[:0])
		if err := wsutil.WriteServerBinary(s.wsconn, buf); err != nil {
			return fmt.Errorf("failed to write to websocket: %w", err)
		}

		if msg.Error == nil {
			continue
		}

		s.logger.DebugContext(ctx,
			"closing websocket after error",
			"error", *msg.Error)

		body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "error delivered to client")
		if err := ws.WriteFrame(s.wsconn, ws.NewCloseFrame(body)); err != nil {
			s.logger.WarnContext(ctx,
				"failed to write close frame",
				"error", err)
		}

		errg.Go(func() error {
			timer := time.NewTimer(closeGracePeriod)
			defer timer.Stop()

			select {
			case <-timer.C:
				cancel()
			case <-ctx.Done():
			}
			return nil
		})

		return nil
	}
}

// readBinary reads the next data message into dst, answering control frames
// and skipping text messages.
func readBinary(dst *bytes.Buffer, conn io.ReadWriter) error {
	onControl := wsutil.ControlFrameHandler(conn, ws.StateServerSide)
	rd := wsutil.Reader{
		Source:         conn,
		State:          ws.StateServerSide,
		OnIntermediate: onControl,
	}

	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return err
		}

		switch {
		case hdr.OpCode.IsControl():
			if err := onControl(hdr, &rd); err != nil {
				return err
			}
		case hdr.OpCode != ws.OpBinary:
			if err := rd.Discard(); err != nil {
				return err
			}
		default:
			dst.Reset()
			_, err := io.Copy(dst, &rd)
			return err
		}
	}
}
