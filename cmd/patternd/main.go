package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"image"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"dev.acmcsuf.com/christmas/lib/csvutil"
	"dev.acmcsuf.com/christmas/lib/leddraw"
	"dev.acmcsuf.com/patternd"
	"dev.acmcsuf.com/patternd/show"
	"github.com/go-chi/chi/v5"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"libdb.so/hserve"
)

var (
	httpAddr      = "0.0.0.0:9000"
	httpAdminAddr = "127.0.0.1:9002"
	ledPointsCSV  = ""
	numLEDs       = 0
	showFile      = ""
	outputKind    = "ws281x"
	frameRate     = 60
	mqttBroker    = ""
	mqttTopic     = "patternd/select"
	verbose       = false
)

func init() {
	pflag.StringVarP(&httpAddr, "http-addr", "a", httpAddr, "HTTP server address")
	pflag.StringVarP(&httpAdminAddr, "http-admin-addr", "A", httpAdminAddr, "HTTP admin server address")
	pflag.StringVar(&ledPointsCSV, "led-points", ledPointsCSV, "CSV file of LED points, one row per LED")
	pflag.IntVarP(&numLEDs, "num-leds", "n", numLEDs, "number of LEDs, if --led-points is not given")
	pflag.StringVarP(&showFile, "show", "s", showFile, "YAML show file to play")
	pflag.StringVarP(&outputKind, "output", "o", outputKind, "LED output (ws281x, none)")
	pflag.IntVar(&frameRate, "frame-rate", frameRate, "maximum rate to flush the LED strip at")
	pflag.StringVar(&mqttBroker, "mqtt-broker", mqttBroker, "MQTT broker URL, e.g. tcp://localhost:1883")
	pflag.StringVar(&mqttTopic, "mqtt-topic", mqttTopic, "MQTT topic to receive pattern selections on")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose logging")
}

func main() {
	log.SetFlags(0)
	pflag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	logHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05 PM", // extended time.Kitchen
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})

	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	var ledCoords []image.Point
	if ledPointsCSV != "" {
		var err error
		ledCoords, err = csvutil.UnmarshalFile[image.Point](ledPointsCSV)
		if err != nil {
			return fmt.Errorf("failed to unmarshal CSV file %q: %w", ledPointsCSV, err)
		}
		numLEDs = len(ledCoords)
	}
	if numLEDs <= 0 {
		return fmt.Errorf("no LEDs: either --led-points or --num-leds is required")
	}

	var s *show.Show
	if showFile != "" {
		steps, err := show.Load(showFile)
		if err != nil {
			return fmt.Errorf("failed to load show %q: %w", showFile, err)
		}

		s, err = show.New(steps, logger.With("component", "show"))
		if err != nil {
			return fmt.Errorf("failed to create show: %w", err)
		}
	}

	errg, ctx := errgroup.WithContext(ctx)

	var output patternd.Output
	switch outputKind {
	case "ws281x":
		controller, err := newLEDController(ledControlConfig{
			NumLEDs:   numLEDs,
			FrameRate: frameRate,
			Logger:    logger.With("component", "led-controller"),
		})
		if err != nil {
			return fmt.Errorf("failed to create a LED controller: %w", err)
		}
		errg.Go(func() error {
			controller.start(ctx)
			return nil
		})
		output = controller
	case "none":
	default:
		return fmt.Errorf("unknown output %q", outputKind)
	}

	player, err := patternd.NewPlayer(patternd.PlayerOpts{
		Strip:  make(leddraw.LEDStrip, numLEDs),
		Output: output,
		Show:   s,
		Logger: logger.With("component", "player"),
	})
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	server := patternd.NewServer(patternd.ServerOpts{
		Player: player,
		Logger: logger.With("component", "server"),
	})

	errg.Go(func() error {
		return player.Run(ctx)
	})

	errg.Go(func() error {
		r := chi.NewRouter()
		r.Get("/ws", server.ServeHTTP)
		r.Get("/events", newEventsHandler(player, logger.With("component", "events")).ServeHTTP)

		if ledCoords != nil {
			r.Get("/led-points.csv", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/csv")
				w.Header().Set("Content-Disposition", "attachment; filename=led-points.csv")

				csvw := csv.NewWriter(w)
				csvutil.Marshal(csvw, ledCoords)
			})
		}

		logger.Info(
			"starting public HTTP server",
			"addr", httpAddr)

		return hserve.ListenAndServe(ctx, httpAddr, r)
	})

	errg.Go(func() error {
		admin := newAdminHandler(player, server, logger.With("component", "admin"))

		logger.Info(
			"starting admin HTTP server",
			"addr", httpAdminAddr)

		return hserve.ListenAndServe(ctx, httpAdminAddr, admin)
	})

	if mqttBroker != "" {
		errg.Go(func() error {
			return runMQTT(ctx, mqttConfig{
				Broker: mqttBroker,
				Topic:  mqttTopic,
				Player: player,
				Logger: logger.With("component", "mqtt"),
			})
		})
	}

	return errg.Wait()
}
