package database

import (
	"io"

	"github.com/nknandakumar/tablet-scheduler/internal/entity"
	"github.com/nknandakumar/tablet-scheduler/internal/pkg/storage"
)

// SelectionRepository stages selected images until they are uploaded,
// replaced or their session expires.
type SelectionRepository interface {
	Stage(sessionID, name, contentType string, data io.Reader) (*entity.SelectedFile, error)
	Purge(sessionID string) error
}

type fileSelectionRepository struct {
	storage storage.FileStorage
}
