// entry point to the tablet scheduler web app
package main

import (
	"os"

	"github.com/nknandakumar/tablet-scheduler/config"
	"github.com/nknandakumar/tablet-scheduler/internal/appServer"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))
	logrus.SetOutput(os.Stdout)

	viperInstance, err := config.LoadConfig(config.GetEnv("TS_CONFIG_PATH", "./config"))
	if err != nil {
		logrus.Fatalf("Cannot load config. Error: {%s}", err.Error())
	}

	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("Cannot parse config. Error: {%s}", err.Error())
	}

	if cfg.Server.Env == "development" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	appServer.NewServer(cfg)
}
