package database

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nknandakumar/tablet-scheduler/internal/entity"
	"github.com/nknandakumar/tablet-scheduler/internal/pkg/storage"
	"github.com/sirupsen/logrus"
)

const selectionsDir = "selections"

func NewSelectionRepository(storage storage.FileStorage) SelectionRepository {
	return &fileSelectionRepository{storage: storage}
}

func (r *fileSelectionRepository) Stage(sessionID, name, contentType string, data io.Reader) (*entity.SelectedFile, error) {
	path := r.getSelectionPath(sessionID, uuid.New().String())

	size, err := r.storage.Save(path, data)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		r.remove(path)
		return nil, entity.ErrEmptyFile
	}

	return entity.NewStagedFile(name, contentType, size,
		func() (io.ReadCloser, error) {
			return r.storage.Get(path)
		},
		func() {
			r.remove(path)
		},
	), nil
}

func (r *fileSelectionRepository) Purge(sessionID string) error {
	return r.storage.DeleteAll(filepath.Join(selectionsDir, sessionID))
}

func (r *fileSelectionRepository) remove(path string) {
	if err := r.storage.Delete(path); err != nil && !os.IsNotExist(err) {
		logrus.WithField("path", path).Warnf("failed to remove staged selection: %v", err)
	}
}

func (r *fileSelectionRepository) getSelectionPath(sessionID, id string) string {
	return filepath.Join(selectionsDir, sessionID, id)
}
