// Command upload sends one image through the upload form from the terminal:
//
//	upload --file pill.jpg [--endpoint URL] [--config DIR] [--timeout 30s]
package main

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nknandakumar/tablet-scheduler/config"
	"github.com/nknandakumar/tablet-scheduler/internal/appServer"
	"github.com/nknandakumar/tablet-scheduler/internal/entity"
	"github.com/nknandakumar/tablet-scheduler/internal/form"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logrus.WarnLevel)

	flags := pflag.NewFlagSet("upload", pflag.ExitOnError)
	filePath := flags.StringP("file", "f", "", "image to upload")
	configPath := flags.StringP("config", "c", "./config", "directory holding config.yaml")
	flags.StringP("endpoint", "e", "", "analysis endpoint, overrides upload.endpoint")
	flags.Duration("timeout", 0, "request timeout, overrides upload.timeout")
	flags.Int("max-dimension", 0, "downscale the image so its longest side fits, overrides upload.max_dimension")
	verbose := flags.BoolP("verbose", "v", false, "log request details")
	flags.Parse(os.Args[1:])

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	viperInstance, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Cannot load config. Error: {%s}", err.Error())
	}
	viperInstance.BindPFlag("upload.endpoint", flags.Lookup("endpoint"))
	viperInstance.BindPFlag("upload.timeout", flags.Lookup("timeout"))
	viperInstance.BindPFlag("upload.max_dimension", flags.Lookup("max-dimension"))

	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("Cannot parse config. Error: {%s}", err.Error())
	}

	imgUploader, closeUploader := appServer.NewUploader(cfg)
	defer closeUploader()

	uploadForm := form.New(imgUploader)

	if *filePath != "" {
		file, err := readImage(*filePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			closeUploader()
			os.Exit(1)
		}
		uploadForm.SelectFile(file)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = uploadForm.Submit(ctx)
	view := uploadForm.View()
	if err != nil {
		logrus.WithField("endpoint", cfg.Upload.Endpoint).Debugf("submit failed: %v", err)
		fmt.Fprintln(os.Stderr, view.Error)
		stop()
		closeUploader()
		os.Exit(1)
	}

	fmt.Println(view.Result)
}

func readImage(path string) (*entity.SelectedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return entity.NewSelectedFile(name, contentType, data), nil
}
