package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"dev.acmcsuf.com/patternd"
	"dev.acmcsuf.com/patternd/show"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"libdb.so/hrt"
)

type adminHandler struct {
	*chi.Mux
	player *patternd.Player
	server *patternd.Server
}

func newAdminHandler(player *patternd.Player, server *patternd.Server, logger *slog.Logger) *adminHandler {
	h := &adminHandler{
		Mux:    chi.NewRouter(),
		player: player,
		server: server,
	}

	h.Use(httplog.RequestLogger(&httplog.Logger{
		Logger:  logger,
		Options: httplog.Options{Concise: true},
	}))
	h.Use(hrt.Use(hrt.Opts{
		Encoder: hrt.CombinedEncoder{
			Encoder: hrt.JSONEncoder,
			Decoder: hrt.URLDecoder,
		},
		ErrorWriter: hrt.TextErrorWriter,
	}))

	h.Patch("/pattern", hrt.Wrap(h.patchPattern))
	h.Post("/next", hrt.Wrap(h.next))
	h.Post("/pause", hrt.Wrap(h.pause))
	h.Post("/resume", hrt.Wrap(h.resume))
	h.Post("/reverse", hrt.Wrap(h.reverse))
	h.Post("/kick-all", hrt.Wrap(h.kickAll))
	h.Get("/status", hrt.Wrap(h.status))

	return h
}

type patchPatternRequest struct {
	Pattern    string `query:"pattern"`
	Interval   string `query:"interval"`
	Direction  string `query:"direction"`
	Color1     string `query:"color1"`
	Color2     string `query:"color2"`
	Steps      string `query:"steps"`
	Palette    string `query:"palette"`
	Blend      string `query:"blend"`
	Brightness string `query:"brightness"`
}

func (req patchPatternRequest) stepSpec() (show.StepSpec, error) {
	spec := show.StepSpec{
		Pattern:   req.Pattern,
		Interval:  req.Interval,
		Direction: req.Direction,
		Color1:    req.Color1,
		Color2:    req.Color2,
		Blend:     req.Blend,
	}

	if req.Steps != "" {
		steps, err := strconv.Atoi(req.Steps)
		if err != nil {
			return spec, fmt.Errorf("invalid steps: %w", err)
		}
		spec.Steps = steps
	}

	if req.Palette != "" {
		spec.Palette = strings.Split(req.Palette, ",")
	}

	if req.Brightness != "" {
		brightness, err := strconv.ParseUint(req.Brightness, 10, 8)
		if err != nil {
			return spec, fmt.Errorf("invalid brightness: %w", err)
		}
		b := uint8(brightness)
		spec.Brightness = &b
	}

	return spec, nil
}

func (h *adminHandler) patchPattern(ctx context.Context, req patchPatternRequest) (hrt.None, error) {
	spec, err := req.stepSpec()
	if err != nil {
		return hrt.Empty, hrt.WrapHTTPError(http.StatusBadRequest, err)
	}

	step, err := spec.Build()
	if err != nil {
		return hrt.Empty, hrt.WrapHTTPError(http.StatusBadRequest, err)
	}

	if err := h.player.Select(ctx, step.Pattern); err != nil {
		return hrt.Empty, err
	}

	return hrt.Empty, nil
}

func (h *adminHandler) next(ctx context.Context, _ hrt.None) (hrt.None, error) {
	if err := h.player.Next(ctx); err != nil {
		if errors.Is(err, patternd.ErrNoShow) {
			return hrt.Empty, hrt.WrapHTTPError(http.StatusConflict, err)
		}
		return hrt.Empty, err
	}
	return hrt.Empty, nil
}

func (h *adminHandler) pause(ctx context.Context, _ hrt.None) (hrt.None, error) {
	return hrt.Empty, h.player.SetPaused(ctx, true)
}

func (h *adminHandler) resume(ctx context.Context, _ hrt.None) (hrt.None, error) {
	return hrt.Empty, h.player.SetPaused(ctx, false)
}

func (h *adminHandler) reverse(ctx context.Context, _ hrt.None) (hrt.None, error) {
	return hrt.Empty, h.player.Reverse(ctx)
}

type kickAllRequest struct {
	Reason string `query:"reason"`
}

func (h *adminHandler) kickAll(ctx context.Context, req kickAllRequest) (hrt.None, error) {
	h.server.KickAllConnections(req.Reason)
	return hrt.Empty, nil
}

func (h *adminHandler) status(ctx context.Context, _ hrt.None) (patternd.Status, error) {
	return h.player.Status(ctx)
}
