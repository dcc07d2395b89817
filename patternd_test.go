package patternd

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"dev.acmcsuf.com/christmas/lib/leddraw"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/go-cmp/cmp"
	"github.com/neilotoole/slogt"
)

func TestSession(t *testing.T) {
	tests := []struct {
		name string
		play func(t *testing.T, conn io.ReadWriteCloser)
	}{
		{
			name: "select pattern",
			play: func(t *testing.T, conn io.ReadWriteCloser) {
				writeClientMessage(t, conn, &ClientMessage{
					Select: "{pattern: color-wipe, interval: 1ms, color1: '#ff0000'}",
				})

				assertMessage(t, conn, &ServerMessage{
					Seq:     1,
					LEDs:    leddraw.LEDStrip{{R: 255}, {}, {}, {}},
					Pattern: "color-wipe",
				})

				assertMessage(t, conn, &ServerMessage{
					Seq:     2,
					LEDs:    leddraw.LEDStrip{{R: 255}, {R: 255}, {}, {}},
					Pattern: "color-wipe",
				})
			},
		},
		{
			name: "invalid selection",
			play: func(t *testing.T, conn io.ReadWriteCloser) {
				writeClientMessage(t, conn, &ClientMessage{
					Select: "disco",
				})

				assertMessage(t, conn, &ServerMessage{
					Error: ptr(`invalid selection: unknown pattern: "disco"`),
				})

				expectCloseFrame(t, conn)
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			conn := startTestSession(t, ctx)
			test.play(t, conn)
		})
	}
}

func writeClientMessage(t *testing.T, conn io.ReadWriteCloser, msg *ClientMessage) {
	t.Helper()

	if err := wsutil.WriteClientBinary(conn, msg.MarshalAppend(nil)); err != nil {
		t.Fatal("error writing client message:", err)
	}
}

func readServerMessage(t *testing.T, conn io.ReadWriteCloser) *ServerMessage {
	t.Helper()

	b, err := wsutil.ReadServerBinary(conn)
	if err != nil {
		t.Fatal("error reading server message:", err)
	}

	msg := &ServerMessage{}
	if err := msg.Unmarshal(b); err != nil {
		t.Fatal("invalid server message:", err)
	}

	return msg
}

func assertMessage(t *testing.T, conn io.ReadWriteCloser, expect *ServerMessage) {
	t.Helper()

	actual := readServerMessage(t, conn)
	assertEq(t, expect, actual)
}

func assertEq[T any](t *testing.T, expected, actual T, opts ...cmp.Option) {
	t.Helper()

	if diff := cmp.Diff(expected, actual, opts...); diff != "" {
		t.Errorf("unexpected diff (-want +got):\n%s", diff)
	}
}

func expectCloseFrame(t *testing.T, conn io.ReadWriteCloser) {
	t.Helper()
	var closedErr wsutil.ClosedError

	_, op, err := wsutil.ReadServerData(conn)
	if err == nil {
		t.Fatal("no close frame received, got op", op)
	}
	if !errors.As(err, &closedErr) {
		t.Fatal("unexpected non-ClosedError while reading server data:", err)
	}

	// Responding close frame is automatically handled by gobwas/ws/wsutil.
	// See wsutil/handler.go @ ControlHandler.HandleClose.
}

func startTestSession(t *testing.T, ctx context.Context) io.ReadWriteCloser {
	t.Helper()

	conn1, conn2 := net.Pipe()

	t.Cleanup(func() {
		t.Log("closing test session pipes")
		conn1.Close()
		conn2.Close()
	})

	logger := slogt.New(t)

	player := startTestPlayer(t, ctx, PlayerOpts{
		Strip:  make(leddraw.LEDStrip, 4),
		Logger: logger,
	})

	session := &Session{
		ws:     newWebsocketServer(conn1, logger),
		logger: logger,
		opts:   ServerOpts{Player: player, Logger: logger},
	}

	ctx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)

	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			t.Error("server session error:", err)
		}
	})

	go func() {
		errCh <- session.Start(ctx)
	}()

	return conn2
}

func ptr[T any](v T) *T { return &v }
