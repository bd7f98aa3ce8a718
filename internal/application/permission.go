package app

import (
	"errors"
	"sync"

	"maize-bot/internal/domain/entity"
)

// ErrPermissionDenied пользователь отказал в доступе
var ErrPermissionDenied = errors.New("access denied by user")

type gateStep int

const (
	gateClosed gateStep = iota
	gateWarning
	gatePermission
)

// PermissionGate двухшаговое подтверждение перед доступом к камере или галерее:
// сначала предупреждение, затем явное разрешение.
type PermissionGate struct {
	mu   sync.Mutex
	step gateStep
	kind entity.AcquisitionKind
}

// NewPermissionGate создаёт закрытый шлюз
func NewPermissionGate() *PermissionGate {
	return &PermissionGate{}
}

// Open начинает новый запрос. Всегда начинает с предупреждения.
func (g *PermissionGate) Open(kind entity.AcquisitionKind) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.step = gateWarning
	g.kind = kind
}

// Continue принимает предупреждение и показывает запрос разрешения.
func (g *PermissionGate) Continue() (entity.AcquisitionKind, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.step != gateWarning {
		return 0, entity.ErrInvalidTransition
	}
	g.step = gatePermission
	return g.kind, nil
}

// Allow закрывает шлюз и возвращает источник, который можно открыть.
func (g *PermissionGate) Allow() (entity.AcquisitionKind, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.step != gatePermission {
		return 0, entity.ErrInvalidTransition
	}
	kind := g.kind
	g.close()
	return kind, nil
}

// Deny закрывает шлюз с отказом.
func (g *PermissionGate) Deny() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.step != gatePermission {
		return entity.ErrInvalidTransition
	}
	g.close()
	return ErrPermissionDenied
}

// Cancel закрывает шлюз без побочных эффектов.
func (g *PermissionGate) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.close()
}

// WarningShown сообщает, показано ли предупреждение
func (g *PermissionGate) WarningShown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.step == gateWarning
}

// PermissionShown сообщает, показан ли запрос разрешения
func (g *PermissionGate) PermissionShown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.step == gatePermission
}

func (g *PermissionGate) close() {
	g.step = gateClosed
	g.kind = 0
}
