package entity

import (
	"bytes"
	"io"
	"sync"
	"time"
)

type UIStatus string

const (
	StatusIdle    UIStatus = "idle"
	StatusError   UIStatus = "error"
	StatusLoading UIStatus = "loading"
	StatusResult  UIStatus = "result"
)

// SelectedFile is the image picked by the user. The blob is reached through
// Open so it can live in memory or in staging storage.
type SelectedFile struct {
	Name        string
	ContentType string
	Size        int64
	Preview     string

	open        func() (io.ReadCloser, error)
	release     func()
	releaseOnce sync.Once
}

func NewSelectedFile(name, contentType string, data []byte) *SelectedFile {
	return &SelectedFile{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func NewStagedFile(name, contentType string, size int64, open func() (io.ReadCloser, error), release func()) *SelectedFile {
	return &SelectedFile{
		Name:        name,
		ContentType: contentType,
		Size:        size,
		open:        open,
		release:     release,
	}
}

func (f *SelectedFile) Open() (io.ReadCloser, error) {
	return f.open()
}

// Release drops the staged blob. Safe to call more than once.
func (f *SelectedFile) Release() {
	f.releaseOnce.Do(func() {
		if f.release != nil {
			f.release()
		}
	})
}

type FormView struct {
	Status   UIStatus `json:"status"`
	FileName string   `json:"file_name,omitempty"`
	FileSize int64    `json:"file_size,omitempty"`
	Preview  string   `json:"preview,omitempty"`
	Error    string   `json:"error,omitempty"`
	Result   string   `json:"result,omitempty"`
	Loading  bool     `json:"loading"`
}

func (v FormView) HasFile() bool {
	return v.FileName != ""
}

type SubmitEvent struct {
	SessionID string        `json:"session_id,omitempty"`
	FileName  string        `json:"file_name"`
	Status    UIStatus      `json:"status"`
	Result    string        `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	At        time.Time     `json:"at"`
}
