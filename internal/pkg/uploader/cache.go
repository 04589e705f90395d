package uploader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/nknandakumar/tablet-scheduler/internal/entity"
	"github.com/sirupsen/logrus"
)

type Uploader interface {
	Upload(ctx context.Context, file *entity.SelectedFile) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
}

// CachingUploader answers repeated uploads of the same image from the cache.
// Cache failures are logged and never fail the upload.
type CachingUploader struct {
	next  Uploader
	cache Cache
}

func NewCachingUploader(next Uploader, cache Cache) *CachingUploader {
	return &CachingUploader{next: next, cache: cache}
}

func (u *CachingUploader) Upload(ctx context.Context, file *entity.SelectedFile) (string, error) {
	key, err := cacheKey(file)
	if err != nil {
		return "", err
	}

	cached, found, err := u.cache.Get(ctx, key)
	if err != nil {
		logrus.Warnf("cache get error: %v", err)
	}
	if found {
		logrus.WithField("file", file.Name).Info("served from cache")
		return cached, nil
	}

	result, err := u.next.Upload(ctx, file)
	if err != nil {
		return "", err
	}

	if err := u.cache.Set(ctx, key, result); err != nil {
		logrus.Warnf("failed to set cache: %v", err)
	}
	return result, nil
}

func cacheKey(file *entity.SelectedFile) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("reading selected file: %w", err)
	}
	defer rc.Close()

	h := sha256.New()
	io.WriteString(h, file.Name)
	h.Write([]byte{0})
	if _, err := io.Copy(h, rc); err != nil {
		return "", fmt.Errorf("reading selected file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
