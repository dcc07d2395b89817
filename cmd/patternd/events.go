package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"dev.acmcsuf.com/patternd"
)

// PlayerEvent is the JSON payload of an SSE event. The SSE event name is the
// player event type.
type PlayerEvent struct {
	Pattern string `json:"pattern"`
	Step    int    `json:"step"`
	Seq     uint64 `json:"seq"`
}

type sseEvent struct {
	Type string
	Data []byte
}

type writeFlusher interface {
	io.Writer
	http.Flusher
}

func writeSSE(w writeFlusher, ev sseEvent) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func playerEventToSSE(typ patternd.EventType, ev PlayerEvent) sseEvent {
	b, err := json.Marshal(ev)
	if err != nil {
		panic(err)
	}
	return sseEvent{
		Type: string(typ),
		Data: b,
	}
}

// eventsHandler streams pattern changes and completions as server-sent
// events.
type eventsHandler struct {
	player *patternd.Player
	logger *slog.Logger
}

func newEventsHandler(player *patternd.Player, logger *slog.Logger) *eventsHandler {
	return &eventsHandler{
		player: player,
		logger: logger,
	}
}

func (h *eventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wf, ok := w.(writeFlusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, unsubscribe := h.player.Subscribe(patternd.EventPattern, patternd.EventComplete)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	wf.Flush()

	// Send the current pattern first so clients don't wait for a change.
	if status, err := h.player.Status(r.Context()); err == nil {
		writeSSE(wf, playerEventToSSE(patternd.EventPattern, PlayerEvent{
			Pattern: status.Pattern,
			Step:    status.Step,
			Seq:     status.Frames,
		}))
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			sse := playerEventToSSE(ev.Type, PlayerEvent{
				Pattern: ev.Pattern.String(),
				Step:    ev.Step,
				Seq:     ev.Seq,
			})
			if err := writeSSE(wf, sse); err != nil {
				h.logger.Debug(
					"failed to write event",
					"addr", r.RemoteAddr,
					"error", err)
				return
			}
		}
	}
}
