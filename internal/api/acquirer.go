package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

// ErrAcquisitionFailed снимок не удалось скачать или раскодировать
var ErrAcquisitionFailed = errors.New("image acquisition failed")

// incomingFile файл, присланный в чат
type incomingFile struct {
	FileID   string
	Filename string
	MimeType string
	Document bool
}

// deliveryResult итог передачи файла ожидающему запросу
type deliveryResult int

const (
	deliveryAccepted deliveryResult = iota
	deliveryNotWaiting
	deliveryRejected
)

// fileFetcher скачивает файл Telegram по его ID
type fileFetcher func(ctx context.Context, fileID string) ([]byte, error)

// chatAcquirer источник снимков для одного чата. Разрешение даёт сам Telegram,
// снимок приходит следующим сообщением с фото или файлом.
type chatAcquirer struct {
	fetch   fileFetcher
	decoder port.ImageDecoder

	mu      sync.Mutex
	waiting chan incomingFile
	kind    entity.AcquisitionKind
}

func newChatAcquirer(fetch fileFetcher, decoder port.ImageDecoder) *chatAcquirer {
	return &chatAcquirer{fetch: fetch, decoder: decoder}
}

// RequestPermission всегда разрешает: доступ к камере и галерее контролирует клиент Telegram.
func (a *chatAcquirer) RequestPermission(ctx context.Context, kind entity.AcquisitionKind) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return kind.Valid(), nil
}

// Acquire ждёт файл из чата. Отмена контекста означает отмену пользователем.
func (a *chatAcquirer) Acquire(ctx context.Context, kind entity.AcquisitionKind) (*entity.ImageHandle, error) {
	slot := make(chan incomingFile, 1)

	a.mu.Lock()
	a.waiting = slot
	a.kind = kind
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		if a.waiting == slot {
			a.waiting = nil
			a.kind = 0
		}
		a.mu.Unlock()
	}()

	var file incomingFile
	select {
	case <-ctx.Done():
		return nil, nil
	case file = <-slot:
	}

	data, err := a.fetch(ctx, file.FileID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
	}

	width, height, mimeType, err := a.decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
	}

	filename := file.Filename
	if filename == "" {
		filename = file.FileID
	}
	handle := entity.NewImageHandle(data, mimeType, filename, file.FileID, nil)
	handle.Width = width
	handle.Height = height
	return handle, nil
}

// deliver передаёт файл ожидающему Acquire. Камера принимает только сжатые
// фото, галерея ещё и файлы-изображения.
func (a *chatAcquirer) deliver(file incomingFile) deliveryResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.waiting == nil {
		return deliveryNotWaiting
	}
	if file.Document {
		if a.kind == entity.AcquireCamera || !strings.HasPrefix(file.MimeType, "image/") {
			return deliveryRejected
		}
	}

	select {
	case a.waiting <- file:
		a.waiting = nil
		return deliveryAccepted
	default:
		return deliveryNotWaiting
	}
}

// isWaiting сообщает, ждёт ли чат снимок
func (a *chatAcquirer) isWaiting() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.waiting != nil
}

var _ port.ImageAcquirer = (*chatAcquirer)(nil)
