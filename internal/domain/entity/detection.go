package entity

import (
	"fmt"
	"strings"
	"time"
)

// Severity степень серьёзности диагноза
type Severity int

const (
	SeverityMild Severity = iota + 1
	SeverityModerate
	SeveritySevere
)

// String возвращает имя степени в том виде, в каком оно хранится в истории
func (s Severity) String() string {
	switch s {
	case SeverityMild:
		return "Mild"
	case SeverityModerate:
		return "Moderate"
	case SeveritySevere:
		return "Severe"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Valid сообщает, что значение входит в закрытый набор степеней
func (s Severity) Valid() bool {
	return s >= SeverityMild && s <= SeveritySevere
}

// ParseSeverity разбирает строковое представление степени (регистр не важен).
func ParseSeverity(value string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "mild":
		return SeverityMild, nil
	case "moderate":
		return SeverityModerate, nil
	case "severe":
		return SeveritySevere, nil
	}
	return 0, fmt.Errorf("unknown severity %q", value)
}

// Suggestion рекомендация по обработке растения
type Suggestion struct {
	Name        string // название препарата
	Description string // что это и против чего
	Application string // инструкция по применению
	SafetyNote  string // меры предосторожности
}

// HealthyDiseaseName имя результата «болезнь не найдена»
const HealthyDiseaseName = "Healthy"

// DetectionResult итог анализа одного снимка листа. После создания не меняется.
type DetectionResult struct {
	ID          string
	DiseaseName string
	Description string
	Confidence  int // 0..100
	Severity    Severity
	Suggestions []Suggestion
	ImageRef    string
	DetectedAt  time.Time
}

// Healthy сообщает, что болезнь не обнаружена
func (r *DetectionResult) Healthy() bool {
	return r != nil && r.DiseaseName == HealthyDiseaseName
}

// Validate проверяет инварианты результата.
func (r *DetectionResult) Validate() error {
	if r == nil {
		return fmt.Errorf("detection result is nil")
	}
	if r.DiseaseName == "" {
		return fmt.Errorf("detection result has no disease name")
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return fmt.Errorf("confidence %d is out of range [0,100]", r.Confidence)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("invalid severity %s", r.Severity)
	}
	return nil
}

// Recommendations склеивает рекомендации в текст для истории.
func (r *DetectionResult) Recommendations() string {
	parts := make([]string, 0, len(r.Suggestions))
	for _, s := range r.Suggestions {
		parts = append(parts, s.Name+": "+s.Description)
	}
	return strings.Join(parts, "\n\n")
}
