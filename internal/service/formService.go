package service

import (
	"context"
	"mime"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/nknandakumar/tablet-scheduler/internal/entity"
	"github.com/nknandakumar/tablet-scheduler/internal/form"
	"github.com/nknandakumar/tablet-scheduler/internal/metrics"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

func (s *formService) View(sessionID string) entity.FormView {
	return s.form(sessionID).View()
}

func (s *formService) SelectFile(sessionID string, header *multipart.FileHeader) (entity.FormView, error) {
	f := s.form(sessionID)

	if s.cfg.MaxFileSize > 0 && header.Size > s.cfg.MaxFileSize {
		return f.View(), entity.ErrFileTooLarge
	}

	src, err := header.Open()
	if err != nil {
		return f.View(), err
	}
	defer src.Close()

	name := filepath.Base(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
			contentType = byExt
		}
	}

	file, err := s.repo.Stage(sessionID, name, contentType, src)
	if err != nil {
		return f.View(), err
	}

	s.attachPreview(file)
	f.SelectFile(file)

	logrus.WithFields(logrus.Fields{
		"session": sessionID,
		"file":    file.Name,
		"size":    file.Size,
	}).Info("Image selected")

	return f.View(), nil
}

// attachPreview is best effort: a file imaging cannot decode is still
// uploaded, just without a thumbnail.
func (s *formService) attachPreview(file *entity.SelectedFile) {
	if s.processor == nil || s.cfg.PreviewWidth <= 0 || s.cfg.PreviewHeight <= 0 {
		return
	}

	rc, err := file.Open()
	if err != nil {
		return
	}
	defer rc.Close()

	preview, err := s.processor.Thumbnail(rc, s.cfg.PreviewWidth, s.cfg.PreviewHeight)
	if err != nil {
		logrus.WithField("file", file.Name).Debugf("no preview: %v", err)
		return
	}
	file.Preview = preview
}

// Submit starts the upload. With wait it blocks until the result is in,
// otherwise the form is returned in its loading state.
func (s *formService) Submit(ctx context.Context, sessionID string, wait bool) (entity.FormView, error) {
	f := s.form(sessionID)

	if wait {
		ctx, cancel := s.submitContext(ctx)
		defer cancel()

		err := f.Submit(ctx)
		return f.View(), err
	}

	// the request that started the upload ends before the upload does
	ctx, cancel := s.submitContext(context.Background())
	s.inflight.Add(1)
	err := f.SubmitAsync(ctx, func(error) {
		cancel()
		s.inflight.Done()
	})
	if err != nil {
		cancel()
		s.inflight.Done()
	}
	return f.View(), err
}

func (s *formService) Reset(sessionID string) entity.FormView {
	f := s.form(sessionID)
	f.Reset()
	return f.View()
}

func (s *formService) Cleanup(now time.Time) int {
	if s.cfg.SessionTTL <= 0 {
		return 0
	}

	removed := s.sessions.expire(now.Add(-s.cfg.SessionTTL), func(id string, f *form.Form) {
		f.Reset()
		if err := s.repo.Purge(id); err != nil {
			logrus.WithField("session", id).Warnf("failed to purge staged selections: %v", err)
		}
	})

	metrics.ActiveSessions(s.sessions.count())
	return removed
}

// Wait blocks until background uploads and event publishing have finished.
func (s *formService) Wait() {
	s.inflight.Wait()
}

func (s *formService) submitContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.SubmitTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.cfg.SubmitTimeout)
}

func (s *formService) form(sessionID string) *form.Form {
	f, count := s.sessions.get(sessionID, time.Now(), func() *form.Form {
		return form.New(s.uploader,
			form.WithLogger(logrus.WithField("session", sessionID)),
			form.WithOnComplete(func(event entity.SubmitEvent) {
				s.complete(sessionID, event)
			}),
		)
	})
	metrics.ActiveSessions(count)
	return f
}

func (s *formService) complete(sessionID string, event entity.SubmitEvent) {
	event.SessionID = sessionID

	metrics.SubmitTotal(string(event.Status))
	metrics.SubmitDuration(string(event.Status), event.Duration)

	if s.producer == nil {
		return
	}

	// the result is already visible; a slow broker must not hold up the caller
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := s.producer.Publish(ctx, event); err != nil {
			logrus.WithField("session", sessionID).Warnf("failed to publish submit event: %v", err)
		}
	}()
}
