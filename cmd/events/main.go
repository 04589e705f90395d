// Logs submit outcomes published by the web app.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nknandakumar/tablet-scheduler/config"
	"github.com/nknandakumar/tablet-scheduler/internal/entity"
	"github.com/nknandakumar/tablet-scheduler/internal/pkg/kafka"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	viperInstance, err := config.LoadConfig(config.GetEnv("TS_CONFIG_PATH", "./config"))
	if err != nil {
		logrus.Fatalf("Cannot load config. Error: {%s}", err.Error())
	}
	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("Cannot parse config. Error: {%s}", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = kafka.ConsumeEvents(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, func(event entity.SubmitEvent) {
		entry := logrus.WithFields(logrus.Fields{
			"session":  event.SessionID,
			"file":     event.FileName,
			"status":   event.Status,
			"duration": event.Duration,
			"at":       event.At,
		})
		if event.Status == entity.StatusError {
			entry.Warnf("Submit failed: %s", event.Error)
			return
		}
		entry.Infof("Submit result: %s", event.Result)
	})
	if err != nil {
		logrus.Errorf("Submit event consumer stopped: %v", err)
		os.Exit(1)
	}
}
