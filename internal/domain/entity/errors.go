package entity

import (
	"errors"
	"fmt"
)

// ErrorKind категория ошибки, видимая пользователю
type ErrorKind int

const (
	KindUserCancelled ErrorKind = iota + 1
	KindPermissionDenied
	KindAcquisitionFailed
	KindDetectionFailed
	KindSaveFailed
	KindIdentityRequired
)

func (k ErrorKind) String() string {
	switch k {
	case KindUserCancelled:
		return "user_cancelled"
	case KindPermissionDenied:
		return "permission_denied"
	case KindAcquisitionFailed:
		return "acquisition_failed"
	case KindDetectionFailed:
		return "detection_failed"
	case KindSaveFailed:
		return "save_failed"
	case KindIdentityRequired:
		return "identity_required"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

var (
	// ErrInvalidTransition действие недоступно в текущем состоянии
	ErrInvalidTransition = errors.New("transition is not allowed in current state")
	// ErrBusy предыдущая операция ещё выполняется
	ErrBusy = errors.New("operation already in flight")
	// ErrStale результат относится к устаревшему поколению и отброшен
	ErrStale = errors.New("result belongs to a superseded generation")
	// ErrRecordNotFound запись не найдена или принадлежит другому пользователю
	ErrRecordNotFound = errors.New("history record not found")
)

// FlowError ошибка сценария, переведённая в одну из категорий.
// Message несёт исходный текст бэкенда только для показа.
type FlowError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// NewFlowError оборачивает ошибку коллаборатора
func NewFlowError(kind ErrorKind, err error) *FlowError {
	fe := &FlowError{Kind: kind, Err: err}
	if err != nil {
		fe.Message = err.Error()
	}
	return fe
}

// KindOf возвращает категорию ошибки, если она есть
func KindOf(err error) (ErrorKind, bool) {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}
