// launching the server, staging storage, kafka, redis
package appServer

import (
	"context"
	"crypto/tls"
	"log"

	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nknandakumar/tablet-scheduler/config"
	"github.com/nknandakumar/tablet-scheduler/internal/cache"
	"github.com/nknandakumar/tablet-scheduler/internal/database"
	"github.com/nknandakumar/tablet-scheduler/internal/form"
	"github.com/nknandakumar/tablet-scheduler/internal/pkg/kafka"
	"github.com/nknandakumar/tablet-scheduler/internal/pkg/processor"
	"github.com/nknandakumar/tablet-scheduler/internal/pkg/storage"
	"github.com/nknandakumar/tablet-scheduler/internal/pkg/uploader"
	"github.com/nknandakumar/tablet-scheduler/internal/service"
	"github.com/nknandakumar/tablet-scheduler/internal/transport"
	"github.com/nknandakumar/tablet-scheduler/internal/worker"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},           // ban on outdate TLS certificate
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags), // os.Stderr can be replaced with ElsasticSearch in the feature
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// NewUploader builds the client that posts images to the analysis endpoint,
// fronted by the redis result cache when it is enabled and reachable. The
// returned close func releases the cache connection.
func NewUploader(cfg *config.Config) (form.Uploader, func()) {
	client := uploader.NewClient(uploader.Config{
		Endpoint:     cfg.Upload.Endpoint,
		FieldName:    cfg.Upload.FieldName,
		Timeout:      cfg.Upload.Timeout,
		MaxDimension: cfg.Upload.MaxDimension,
	}, processor.NewImageProcessor())

	if !cfg.Redis.Enabled {
		return client, func() {}
	}

	resultCache := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := resultCache.Ping(ctx); err != nil {
		logrus.Warnf("Redis unavailable, results will not be cached: %v", err)
		resultCache.Close()
		return client, func() {}
	}

	logrus.WithField("addr", cfg.Redis.Addr).Info("Redis result cache connected")
	return uploader.NewCachingUploader(client, resultCache), func() {
		if err := resultCache.Close(); err != nil {
			logrus.Errorf("error occured on closing redis: %s", err.Error())
		}
	}
}

func newProducer(cfg *config.Config) kafka.Producer {
	if !cfg.Kafka.Enabled {
		return kafka.NewMockProducer()
	}
	return kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}

func NewServer(cfg *config.Config) {

	fileStorage := storage.NewFileStorage(cfg.Session.StoragePath)
	selectionRepo := database.NewSelectionRepository(fileStorage)
	imgProcessor := processor.NewImageProcessor()

	imgUploader, closeUploader := NewUploader(cfg)
	defer closeUploader()

	producer := newProducer(cfg)
	defer producer.Close()

	formService := service.NewFormService(service.Config{
		SubmitTimeout: cfg.Upload.Timeout,
		SessionTTL:    cfg.Session.TTL,
		MaxFileSize:   cfg.Upload.MaxFileSize,
		PreviewWidth:  cfg.Preview.Width,
		PreviewHeight: cfg.Preview.Height,
	}, imgUploader, selectionRepo, imgProcessor, producer)

	formHandler := transport.NewFormHandler(formService, cfg.Session.CookieName, cfg.Session.TTL, cfg.Upload.MaxFileSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanupWorker := worker.NewSessionCleanupWorker(formService, cfg.Session.CleanupInterval)
	go cleanupWorker.Start(ctx)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(formHandler, cfg.Upload.Timeout)); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":     cfg.Server.Port,
		"endpoint": cfg.Upload.Endpoint,
		"version":  cfg.Server.AppVersion,
	}).Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}

	// uploads started before shutdown still report their outcome
	formService.Wait()
}
