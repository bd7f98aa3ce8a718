package vision

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

// DefaultStubDelay искусственная задержка заглушки
const DefaultStubDelay = 2 * time.Second

// Random источник случайности заглушки. *rand.Rand подходит.
type Random interface {
	IntN(n int) int
	Float64() float64
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int   { return rand.IntN(n) }
func (globalRandom) Float64() float64 { return rand.Float64() }

// cannedOutcome заготовленный диагноз: уверенность = base + spread*rand
type cannedOutcome struct {
	name        string
	description string
	severity    entity.Severity
	base        float64
	spread      float64
	suggestions []entity.Suggestion
}

var cannedOutcomes = []cannedOutcome{
	{
		name:        "Northern Corn Leaf Blight",
		description: "A fungal disease causing cigar-shaped lesions on leaves, reducing photosynthesis and yield.",
		severity:    entity.SeverityModerate,
		base:        87,
		spread:      10,
		suggestions: []entity.Suggestion{
			{
				Name:        "Azoxystrobin",
				Description: "Broad-spectrum fungicide effective against Northern Corn Leaf Blight",
				Application: "Apply as foliar spray when disease first appears. Repeat every 14 days if needed.",
				SafetyNote:  "Always follow label instructions and local regulations.",
			},
			{
				Name:        "Propiconazole",
				Description: "Systemic fungicide for preventive and curative control",
				Application: "Mix 250ml per hectare in water. Apply during early growth stages.",
				SafetyNote:  "Wear protective equipment during application.",
			},
		},
	},
	{
		name:        "Common Rust",
		description: "Fungal disease characterized by small, circular to elongate pustules on both leaf surfaces.",
		severity:    entity.SeverityMild,
		base:        82,
		spread:      10,
		suggestions: []entity.Suggestion{
			{
				Name:        "Mancozeb",
				Description: "Protective fungicide for rust control",
				Application: "Apply as foliar spray at first sign of disease. Reapply every 7-10 days.",
				SafetyNote:  "Do not apply within 14 days of harvest.",
			},
		},
	},
	{
		name:        "Gray Leaf Spot",
		description: "Severe fungal disease causing rectangular lesions between leaf veins, leading to premature leaf death.",
		severity:    entity.SeveritySevere,
		base:        91,
		spread:      8,
		suggestions: []entity.Suggestion{
			{
				Name:        "Pyraclostrobin + Metconazole",
				Description: "Combination fungicide for effective Gray Leaf Spot control",
				Application: "Apply 400ml per hectare. Start applications at first disease symptoms.",
				SafetyNote:  "Follow resistance management practices. Rotate with different mode of action fungicides.",
			},
			{
				Name:        "Trifloxystrobin",
				Description: "Strobilurin fungicide with protective and curative activity",
				Application: "Apply as foliar spray. Use 300ml per hectare in adequate water volume.",
				SafetyNote:  "Always consult local agricultural extension for expert advice.",
			},
		},
	},
	{
		name:        entity.HealthyDiseaseName,
		description: "No disease symptoms were found on the leaf.",
		severity:    entity.SeverityMild,
		base:        90,
		spread:      9,
	},
}

// StubDetectorOption настраивает заглушку
type StubDetectorOption func(*StubDetector)

// WithDelay задаёт задержку ответа
func WithDelay(d time.Duration) StubDetectorOption {
	return func(s *StubDetector) { s.delay = d }
}

// WithRandom подменяет источник случайности
func WithRandom(r Random) StubDetectorOption {
	return func(s *StubDetector) { s.random = r }
}

// WithClock подменяет часы
func WithClock(now func() time.Time) StubDetectorOption {
	return func(s *StubDetector) { s.now = now }
}

// StubDetector возвращает один из заготовленных диагнозов после задержки.
// Снимок не анализируется.
type StubDetector struct {
	delay  time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	random Random
}

// NewStubDetector создаёт заглушку детектора
func NewStubDetector(logger *zap.Logger, opts ...StubDetectorOption) *StubDetector {
	s := &StubDetector{
		delay:  DefaultStubDelay,
		logger: logger.Named("stub_detector"),
		now:    time.Now,
		random: globalRandom{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Detect ждёт задержку и выбирает диагноз равновероятно, с повторами.
func (s *StubDetector) Detect(ctx context.Context, image *entity.ImageHandle) (*entity.DetectionResult, error) {
	if image == nil {
		return nil, fmt.Errorf("image is required")
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	outcome := cannedOutcomes[s.random.IntN(len(cannedOutcomes))]
	offset := s.random.Float64()
	s.mu.Unlock()

	confidence := int(math.Round(outcome.base + offset*outcome.spread))
	if confidence > 100 {
		confidence = 100
	}

	now := s.now()
	result := &entity.DetectionResult{
		ID:          fmt.Sprintf("detection-%d", now.UnixMilli()),
		DiseaseName: outcome.name,
		Description: outcome.description,
		Confidence:  confidence,
		Severity:    outcome.severity,
		Suggestions: append([]entity.Suggestion(nil), outcome.suggestions...),
		ImageRef:    image.Preview,
		DetectedAt:  now.UTC(),
	}

	s.logger.Debug("stub detection", zap.String("disease", result.DiseaseName), zap.Int("confidence", result.Confidence))
	return result, nil
}

var _ port.Detector = (*StubDetector)(nil)
