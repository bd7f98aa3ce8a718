package entity

import "fmt"

// WorkflowState состояние сценария «снимок → анализ → сохранение»
type WorkflowState int

const (
	StateIdle WorkflowState = iota
	StateWarningPending
	StatePermissionPending
	StateAcquiring
	StateAcquired
	StateAnalyzing
	StateResulted
	StateSaved
)

func (s WorkflowState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWarningPending:
		return "warning_pending"
	case StatePermissionPending:
		return "permission_pending"
	case StateAcquiring:
		return "acquiring"
	case StateAcquired:
		return "acquired"
	case StateAnalyzing:
		return "analyzing"
	case StateResulted:
		return "resulted"
	case StateSaved:
		return "saved"
	default:
		return fmt.Sprintf("WorkflowState(%d)", int(s))
	}
}

// WorkflowSnapshot неизменяемый срез состояния для UI
type WorkflowSnapshot struct {
	State      WorkflowState
	Kind       AcquisitionKind // для warning/permission/acquiring
	Generation uint64
	Image      *ImageHandle
	Result     *DetectionResult
	Record     *HistoryRecord
	Busy       bool // идёт сохранение
}

// Transition переход автомата; используется для логов и тестов
type Transition struct {
	From       WorkflowState
	To         WorkflowState
	Generation uint64
}
