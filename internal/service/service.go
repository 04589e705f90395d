package service

import (
	"context"
	"mime/multipart"
	"sync"
	"time"

	"github.com/nknandakumar/tablet-scheduler/internal/database"
	"github.com/nknandakumar/tablet-scheduler/internal/entity"
	"github.com/nknandakumar/tablet-scheduler/internal/form"
	"github.com/nknandakumar/tablet-scheduler/internal/pkg/kafka"
	"github.com/nknandakumar/tablet-scheduler/internal/pkg/processor"
)

// FormService keeps one upload form per browser session.
type FormService interface {
	View(sessionID string) entity.FormView
	SelectFile(sessionID string, file *multipart.FileHeader) (entity.FormView, error)
	Submit(ctx context.Context, sessionID string, wait bool) (entity.FormView, error)
	Reset(sessionID string) entity.FormView
	Cleanup(now time.Time) int
	Wait()
}

type Config struct {
	SubmitTimeout time.Duration
	SessionTTL    time.Duration
	MaxFileSize   int64
	PreviewWidth  int
	PreviewHeight int
}

type formService struct {
	cfg       Config
	uploader  form.Uploader
	repo      database.SelectionRepository
	processor processor.ImageProcessor
	producer  kafka.Producer

	sessions *sessionRegistry
	inflight sync.WaitGroup
}

func NewFormService(
	cfg Config,
	uploader form.Uploader,
	repo database.SelectionRepository,
	processor processor.ImageProcessor,
	producer kafka.Producer,
) FormService {
	return &formService{
		cfg:       cfg,
		uploader:  uploader,
		repo:      repo,
		processor: processor,
		producer:  producer,
		sessions:  newSessionRegistry(),
	}
}
