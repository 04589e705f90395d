// Package form holds the upload form state: the selected image, the error
// line, the result text and the loading flag.
package form

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nknandakumar/tablet-scheduler/internal/entity"
	"github.com/sirupsen/logrus"
)

type Uploader interface {
	Upload(ctx context.Context, file *entity.SelectedFile) (string, error)
}

type Option func(*Form)

// WithOnComplete registers a hook called after every finished upload,
// successful or not. It runs outside the form lock.
func WithOnComplete(fn func(entity.SubmitEvent)) Option {
	return func(f *Form) {
		f.onComplete = fn
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(f *Form) {
		f.log = log
	}
}

type Form struct {
	uploader   Uploader
	onComplete func(entity.SubmitEvent)
	log        *logrus.Entry

	mu       sync.Mutex
	file     *entity.SelectedFile
	inflight *entity.SelectedFile
	errMsg   string
	result   string
	loading  bool
}

func New(uploader Uploader, opts ...Option) *Form {
	f := &Form{
		uploader: uploader,
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SelectFile replaces the selected image and clears the error line.
// A nil file is ignored.
func (f *Form) SelectFile(file *entity.SelectedFile) {
	if file == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	old := f.file
	f.file = file
	f.errMsg = ""

	if old != nil && old != file && old != f.inflight {
		old.Release()
	}
}

// Submit uploads the selected image and blocks until the upload finishes.
func (f *Form) Submit(ctx context.Context) error {
	file, err := f.begin()
	if err != nil {
		return err
	}
	return f.run(ctx, file)
}

// SubmitAsync validates and flips the form into loading synchronously, then
// uploads in the background. done, if set, receives the upload result.
func (f *Form) SubmitAsync(ctx context.Context, done func(error)) error {
	file, err := f.begin()
	if err != nil {
		return err
	}

	go func() {
		err := f.run(ctx, file)
		if done != nil {
			done(err)
		}
	}()
	return nil
}

func (f *Form) begin() (*entity.SelectedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// a running upload wins over validation, even after Reset dropped the file
	if f.loading {
		return nil, entity.ErrSubmitInFlight
	}
	if f.file == nil {
		// a stale result must not show next to the error
		f.errMsg = entity.MsgNoFileSelected
		f.result = ""
		return nil, entity.ErrNoFileSelected
	}

	f.loading = true
	f.errMsg = ""
	f.result = ""
	f.inflight = f.file
	return f.file, nil
}

func (f *Form) run(ctx context.Context, file *entity.SelectedFile) error {
	start := time.Now()

	var (
		result    string
		uploadErr = entity.ErrUploadAborted
	)
	// loading must drop even if the uploader panics
	defer func() {
		f.finish(file, result, uploadErr, start)
	}()

	result, uploadErr = f.uploader.Upload(ctx, file)
	if uploadErr != nil {
		f.log.WithFields(logrus.Fields{
			"file":  file.Name,
			"size":  file.Size,
			"error": uploadErr,
		}).Error("Image upload failed")
		return fmt.Errorf("upload %s: %w", file.Name, uploadErr)
	}
	return nil
}

func (f *Form) finish(file *entity.SelectedFile, result string, uploadErr error, start time.Time) {
	event := entity.SubmitEvent{
		FileName: file.Name,
		Duration: time.Since(start),
		At:       time.Now(),
	}

	f.mu.Lock()
	f.loading = false
	f.inflight = nil

	if uploadErr == nil {
		f.result = result
		f.errMsg = ""
		if f.file == file {
			f.file = nil
		}
		event.Status = entity.StatusResult
		event.Result = result
	} else {
		f.result = ""
		f.errMsg = entity.MsgUploadFailed
		event.Status = entity.StatusError
		event.Error = uploadErr.Error()
	}

	if f.file != file {
		file.Release()
	}
	hook := f.onComplete
	f.mu.Unlock()

	if hook != nil {
		hook(event)
	}
}

// Reset drops the selection and clears every message. A running upload is
// left to finish.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file != nil && f.file != f.inflight {
		f.file.Release()
	}
	f.file = nil
	f.errMsg = ""
	f.result = ""
}

func (f *Form) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

func (f *Form) View() entity.FormView {
	f.mu.Lock()
	defer f.mu.Unlock()

	view := entity.FormView{
		Error:   f.errMsg,
		Result:  f.result,
		Loading: f.loading,
	}
	if f.file != nil {
		view.FileName = f.file.Name
		view.FileSize = f.file.Size
		view.Preview = f.file.Preview
	}

	switch {
	case f.loading:
		view.Status = entity.StatusLoading
	case f.errMsg != "":
		view.Status = entity.StatusError
	case f.result != "":
		view.Status = entity.StatusResult
	default:
		view.Status = entity.StatusIdle
	}
	return view
}
