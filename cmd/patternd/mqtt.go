package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dev.acmcsuf.com/patternd"
	"dev.acmcsuf.com/patternd/show"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type mqttConfig struct {
	Broker string
	Topic  string
	Player *patternd.Player
	Logger *slog.Logger
}

// runMQTT selects patterns received on cfg.Topic until ctx is canceled.
// Payloads are decoded with show.DecodeStep.
func runMQTT(ctx context.Context, cfg mqttConfig) error {
	handle := func(_ mqtt.Client, msg mqtt.Message) {
		step, err := show.DecodeStep(msg.Payload())
		if err != nil {
			cfg.Logger.Warn(
				"ignoring invalid pattern selection",
				"topic", msg.Topic(),
				"error", err)
			return
		}

		cfg.Logger.Info(
			"remote selected pattern",
			"pattern", step.Pattern.Kind)

		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := cfg.Player.Select(ctx, step.Pattern); err != nil {
			cfg.Logger.Error(
				"failed to select pattern",
				"error", err)
		}
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(fmt.Sprintf("patternd-%d", time.Now().UnixNano())).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(c mqtt.Client) {
			cfg.Logger.Info(
				"connected to MQTT broker",
				"broker", cfg.Broker,
				"topic", cfg.Topic)

			// Subscriptions are lost on reconnect unless the session is
			// persistent, so subscribe on every connect.
			if token := c.Subscribe(cfg.Topic, 1, handle); token.Wait() && token.Error() != nil {
				cfg.Logger.Error(
					"failed to subscribe",
					"topic", cfg.Topic,
					"error", token.Error())
			}
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			cfg.Logger.Warn(
				"lost connection to MQTT broker",
				"error", err)
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker %q: %w", cfg.Broker, token.Error())
	}

	<-ctx.Done()
	client.Disconnect(250)

	return nil
}
