package entity

import (
	"fmt"
	"sync"
)

// AcquisitionKind источник снимка
type AcquisitionKind int

const (
	AcquireCamera AcquisitionKind = iota + 1
	AcquireGallery
)

func (k AcquisitionKind) String() string {
	switch k {
	case AcquireCamera:
		return "camera"
	case AcquireGallery:
		return "gallery"
	default:
		return fmt.Sprintf("AcquisitionKind(%d)", int(k))
	}
}

// Valid сообщает, что источник известен
func (k AcquisitionKind) Valid() bool {
	return k == AcquireCamera || k == AcquireGallery
}

// ImageHandle снимок листа плюс ссылка для показа превью.
// Ссылка живёт, пока её не освободят через Release.
type ImageHandle struct {
	Data     []byte
	MimeType string
	Filename string
	Preview  string
	Width    int
	Height   int

	once    sync.Once
	mu      sync.Mutex
	free    bool
	release func()
}

// NewImageHandle создаёт дескриптор. release вызывается ровно один раз.
func NewImageHandle(data []byte, mimeType, filename, preview string, release func()) *ImageHandle {
	return &ImageHandle{
		Data:     data,
		MimeType: mimeType,
		Filename: filename,
		Preview:  preview,
		release:  release,
	}
}

// Release освобождает превью. Повторные вызовы ничего не делают.
func (h *ImageHandle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.release != nil {
			h.release()
		}
		h.mu.Lock()
		h.free = true
		h.mu.Unlock()
	})
}

// Released сообщает, освобождено ли превью
func (h *ImageHandle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.free
}

// Extension возвращает расширение файла по MIME-типу
func (h *ImageHandle) Extension() string {
	switch h.MimeType {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "jpg"
	}
}
