package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

// DefaultDetectTimeout предел ожидания одного анализа
const DefaultDetectTimeout = 30 * time.Second

// HistorySaver сохраняет результат анализа в историю пользователя
type HistorySaver interface {
	Save(ctx context.Context, userID string, result *entity.DetectionResult, image *entity.ImageHandle) (*entity.HistoryRecord, error)
}

// WorkflowOption настраивает Workflow
type WorkflowOption func(*Workflow)

// WithDetectTimeout задаёт предел ожидания анализа; 0 отключает предел.
func WithDetectTimeout(d time.Duration) WorkflowOption {
	return func(w *Workflow) { w.detectTimeout = d }
}

// WithObserver подписывает fn на переходы. fn вызывается под блокировкой
// автомата и не должна обращаться к нему.
func WithObserver(fn func(entity.Transition)) WorkflowOption {
	return func(w *Workflow) { w.observe = fn }
}

// WithLogger задаёт логгер
func WithLogger(logger *zap.Logger) WorkflowOption {
	return func(w *Workflow) { w.logger = logger }
}

// Workflow автомат одного экрана: предупреждение → разрешение → снимок →
// анализ → результат → сохранение. Каждый новый запрос снимка начинает новое
// поколение; ответы прошлых поколений отбрасываются.
type Workflow struct {
	acquirer      port.ImageAcquirer
	detector      port.Detector
	history       HistorySaver
	identity      port.Identity
	logger        *zap.Logger
	detectTimeout time.Duration
	observe       func(entity.Transition)

	mu     sync.Mutex
	gate   *PermissionGate
	state  entity.WorkflowState
	kind   entity.AcquisitionKind
	gen    uint64
	image  *entity.ImageHandle
	result *entity.DetectionResult
	record *entity.HistoryRecord
	saving bool
	cancel context.CancelFunc
}

// NewWorkflow создаёт автомат в состоянии Idle.
func NewWorkflow(acquirer port.ImageAcquirer, detector port.Detector, history HistorySaver, identity port.Identity, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		acquirer:      acquirer,
		detector:      detector,
		history:       history,
		identity:      identity,
		logger:        zap.NewNop(),
		detectTimeout: DefaultDetectTimeout,
		gate:          NewPermissionGate(),
		state:         entity.StateIdle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Snapshot возвращает текущее состояние
func (w *Workflow) Snapshot() entity.WorkflowSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Generation возвращает номер текущего поколения
func (w *Workflow) Generation() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gen
}

// Request начинает новый запрос снимка из любого состояния. Текущая операция
// отменяется, удерживаемый снимок освобождается.
func (w *Workflow) Request(kind entity.AcquisitionKind) (entity.WorkflowSnapshot, error) {
	if !kind.Valid() {
		return w.Snapshot(), fmt.Errorf("unknown acquisition kind %d", int(kind))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.resetLocked()
	w.gate.Open(kind)
	w.kind = kind
	w.setStateLocked(entity.StateWarningPending)
	return w.snapshotLocked(), nil
}

// Continue принимает предупреждение
func (w *Workflow) Continue() (entity.WorkflowSnapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != entity.StateWarningPending {
		return w.snapshotLocked(), entity.ErrInvalidTransition
	}
	if _, err := w.gate.Continue(); err != nil {
		return w.snapshotLocked(), err
	}
	w.setStateLocked(entity.StatePermissionPending)
	return w.snapshotLocked(), nil
}

// Deny отказ в доступе: возврат в Idle с уведомлением
func (w *Workflow) Deny() (entity.WorkflowSnapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != entity.StatePermissionPending {
		return w.snapshotLocked(), entity.ErrInvalidTransition
	}
	err := w.gate.Deny()
	w.toIdleLocked()
	return w.snapshotLocked(), entity.NewFlowError(entity.KindPermissionDenied, err)
}

// Allow разрешает доступ и ждёт снимок. Отмена пользователем возвращает
// Idle без ошибки.
func (w *Workflow) Allow(ctx context.Context) (entity.WorkflowSnapshot, error) {
	w.mu.Lock()
	if w.state != entity.StatePermissionPending {
		defer w.mu.Unlock()
		return w.snapshotLocked(), entity.ErrInvalidTransition
	}
	kind, err := w.gate.Allow()
	if err != nil {
		defer w.mu.Unlock()
		return w.snapshotLocked(), err
	}
	gen := w.gen
	opCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.setStateLocked(entity.StateAcquiring)
	w.mu.Unlock()

	var image *entity.ImageHandle
	granted, err := w.acquirer.RequestPermission(opCtx, kind)
	if err == nil && granted {
		image, err = w.acquirer.Acquire(opCtx, kind)
	}
	cancelled := opCtx.Err() != nil
	cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.gen != gen {
		image.Release()
		return w.snapshotLocked(), entity.ErrStale
	}
	w.cancel = nil

	switch {
	case err != nil && (cancelled || errors.Is(err, context.Canceled)):
		image.Release()
		w.toIdleLocked()
		return w.snapshotLocked(), nil
	case err != nil:
		image.Release()
		w.toIdleLocked()
		w.logger.Warn("image acquisition failed", zap.String("kind", kind.String()), zap.Error(err))
		return w.snapshotLocked(), entity.NewFlowError(entity.KindAcquisitionFailed, err)
	case !granted:
		w.toIdleLocked()
		return w.snapshotLocked(), entity.NewFlowError(entity.KindPermissionDenied, ErrPermissionDenied)
	case image == nil:
		w.toIdleLocked()
		return w.snapshotLocked(), nil
	}

	w.image = image
	w.setStateLocked(entity.StateAcquired)
	return w.snapshotLocked(), nil
}

// Detect запускает анализ удерживаемого снимка. Одновременно выполняется не
// больше одного анализа; ошибка возвращает в Acquired для повтора.
func (w *Workflow) Detect(ctx context.Context) (entity.WorkflowSnapshot, error) {
	w.mu.Lock()
	switch w.state {
	case entity.StateAcquired:
	case entity.StateAnalyzing:
		defer w.mu.Unlock()
		return w.snapshotLocked(), entity.ErrBusy
	default:
		defer w.mu.Unlock()
		return w.snapshotLocked(), entity.ErrInvalidTransition
	}

	gen, image := w.gen, w.image
	var (
		opCtx  context.Context
		cancel context.CancelFunc
	)
	if w.detectTimeout > 0 {
		opCtx, cancel = context.WithTimeout(ctx, w.detectTimeout)
	} else {
		opCtx, cancel = context.WithCancel(ctx)
	}
	w.cancel = cancel
	w.setStateLocked(entity.StateAnalyzing)
	w.mu.Unlock()

	started := time.Now()
	result, err := w.detector.Detect(opCtx, image)
	if err == nil {
		err = result.Validate()
	}
	timedOut := errors.Is(opCtx.Err(), context.DeadlineExceeded)
	cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.gen != gen {
		w.logger.Debug("discarding stale detection", zap.Uint64("generation", gen), zap.Uint64("current", w.gen))
		return w.snapshotLocked(), entity.ErrStale
	}
	w.cancel = nil

	if err != nil {
		if timedOut {
			err = fmt.Errorf("detection timed out after %s: %w", w.detectTimeout, err)
		}
		w.logger.Warn("detection failed", zap.Error(err), zap.Duration("elapsed", time.Since(started)))
		w.setStateLocked(entity.StateAcquired)
		return w.snapshotLocked(), entity.NewFlowError(entity.KindDetectionFailed, err)
	}

	w.result = result
	w.setStateLocked(entity.StateResulted)
	w.logger.Info("detection complete",
		zap.String("disease", result.DiseaseName),
		zap.Int("confidence", result.Confidence),
		zap.Duration("elapsed", time.Since(started)),
	)
	return w.snapshotLocked(), nil
}

// CanSave сообщает, можно ли предложить сохранение: есть результат и
// пользователь вошёл в аккаунт.
func (w *Workflow) CanSave(ctx context.Context) bool {
	if _, ok := w.currentUser(ctx); !ok {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == entity.StateResulted && !w.saving
}

// Save сохраняет результат в историю. Гостю сохранение недоступно.
// Ошибка хранилища оставляет автомат в Resulted.
func (w *Workflow) Save(ctx context.Context) (entity.WorkflowSnapshot, error) {
	userID, authenticated := w.currentUser(ctx)

	w.mu.Lock()
	if w.state != entity.StateResulted {
		defer w.mu.Unlock()
		return w.snapshotLocked(), entity.ErrInvalidTransition
	}
	if w.saving {
		defer w.mu.Unlock()
		return w.snapshotLocked(), entity.ErrBusy
	}
	if !authenticated {
		defer w.mu.Unlock()
		return w.snapshotLocked(), &entity.FlowError{Kind: entity.KindIdentityRequired, Message: "sign in to save detections"}
	}
	gen, result, image := w.gen, w.result, w.image
	w.saving = true
	w.mu.Unlock()

	record, err := w.history.Save(ctx, userID, result, image)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.gen != gen {
		return w.snapshotLocked(), entity.ErrStale
	}
	w.saving = false

	if err != nil {
		return w.snapshotLocked(), entity.NewFlowError(entity.KindSaveFailed, err)
	}

	w.record = record
	w.setStateLocked(entity.StateSaved)
	return w.snapshotLocked(), nil
}

// Cancel возвращает автомат в Idle из любого состояния: отмена предупреждения,
// отказ от результата, «проанализировать ещё».
func (w *Workflow) Cancel() entity.WorkflowSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.toIdleLocked()
	return w.snapshotLocked()
}

func (w *Workflow) currentUser(ctx context.Context) (string, bool) {
	if w.identity == nil {
		return "", false
	}
	return w.identity.CurrentUserID(ctx)
}

// resetLocked открывает новое поколение и сбрасывает всё, что держало старое.
func (w *Workflow) resetLocked() {
	w.gen++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.image.Release()
	w.image = nil
	w.result = nil
	w.record = nil
	w.saving = false
	w.kind = 0
	w.gate.Cancel()
}

func (w *Workflow) toIdleLocked() {
	w.resetLocked()
	w.setStateLocked(entity.StateIdle)
}

func (w *Workflow) setStateLocked(to entity.WorkflowState) {
	from := w.state
	w.state = to
	w.logger.Debug("workflow transition",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Uint64("generation", w.gen),
	)
	if w.observe != nil {
		w.observe(entity.Transition{From: from, To: to, Generation: w.gen})
	}
}

func (w *Workflow) snapshotLocked() entity.WorkflowSnapshot {
	return entity.WorkflowSnapshot{
		State:      w.state,
		Kind:       w.kind,
		Generation: w.gen,
		Image:      w.image,
		Result:     w.result,
		Record:     w.record,
		Busy:       w.saving,
	}
}
