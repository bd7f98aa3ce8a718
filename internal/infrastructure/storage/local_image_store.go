package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

// LocalImageStore хранит снимки в каталоге на диске.
// Ссылка на снимок: urlPrefix + относительный путь.
type LocalImageStore struct {
	basePath  string
	urlPrefix string
}

// NewLocalImageStore создаёт хранилище в basePath
func NewLocalImageStore(basePath, urlPrefix string) *LocalImageStore {
	if urlPrefix == "" {
		urlPrefix = "/uploads/"
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &LocalImageStore{basePath: basePath, urlPrefix: urlPrefix}
}

// Put записывает снимок по относительному пути
func (s *LocalImageStore) Put(ctx context.Context, path string, image *entity.ImageHandle) (string, error) {
	if image == nil || len(image.Data) == 0 {
		return "", errors.New("image is empty")
	}
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create image directory: %w", err)
	}
	if err := os.WriteFile(full, image.Data, 0o644); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}
	return s.urlPrefix + filepath.ToSlash(filepath.Clean(path)), nil
}

// Delete удаляет снимок по ссылке. Отсутствующий файл не ошибка.
func (s *LocalImageStore) Delete(ctx context.Context, ref string) error {
	if !strings.HasPrefix(ref, s.urlPrefix) {
		return fmt.Errorf("image ref %q does not belong to this store", ref)
	}
	full, err := s.resolve(strings.TrimPrefix(ref, s.urlPrefix))
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image file: %w", err)
	}
	return nil
}

func (s *LocalImageStore) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid image path %q", path)
	}
	return filepath.Join(s.basePath, clean), nil
}

var _ port.ImageStore = (*LocalImageStore)(nil)
