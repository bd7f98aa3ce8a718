package inference

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
	"maize-bot/internal/logging"
)

// DetectMethod полное имя унарного метода сервиса распознавания
const DetectMethod = "/maize.inference.v1.Inference/Detect"

// Dial подключается к сервису распознавания и ждёт готовности соединения.
func Dial(ctx context.Context, addr string, logger *zap.Logger) (*grpc.ClientConn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(
		dialCtx,
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		wrapped := logging.NewOperationError("inference.dial", "", err)
		logger.Error("failed to dial inference service", zap.Error(wrapped), zap.String("addr", addr))
		return nil, wrapped
	}
	return conn, nil
}

// Detector удалённый детектор: отправляет снимок по gRPC и разбирает диагноз.
type Detector struct {
	conn   grpc.ClientConnInterface
	logger *zap.Logger
}

// NewDetector создаёт клиента поверх готового соединения
func NewDetector(conn grpc.ClientConnInterface, logger *zap.Logger) *Detector {
	return &Detector{conn: conn, logger: logger.Named("inference")}
}

// Detect отправляет снимок и возвращает проверенный диагноз.
func (d *Detector) Detect(ctx context.Context, image *entity.ImageHandle) (*entity.DetectionResult, error) {
	if image == nil {
		return nil, errors.New("image is required")
	}

	requestID := uuid.NewString()
	req, err := structpb.NewStruct(map[string]any{
		"request_id": requestID,
		"image":      base64.StdEncoding.EncodeToString(image.Data),
		"mime_type":  image.MimeType,
		"filename":   image.Filename,
	})
	if err != nil {
		return nil, logging.NewOperationError("inference.detect", requestID, err)
	}

	resp := &structpb.Struct{}
	if err := d.conn.Invoke(ctx, DetectMethod, req, resp); err != nil {
		wrapped := logging.NewOperationError("inference.detect", requestID, err)
		d.logger.Error("inference call failed", zap.Error(wrapped))
		return nil, wrapped
	}

	result, err := decodeResult(resp)
	if err != nil {
		return nil, logging.NewOperationError("inference.decode", requestID, err)
	}
	if result.ID == "" {
		result.ID = "detection-" + requestID
	}
	if result.DetectedAt.IsZero() {
		result.DetectedAt = time.Now().UTC()
	}
	result.ImageRef = image.Preview

	if err := result.Validate(); err != nil {
		return nil, logging.NewOperationError("inference.validate", requestID, err)
	}
	return result, nil
}

func decodeResult(resp *structpb.Struct) (*entity.DetectionResult, error) {
	fields := resp.GetFields()

	severity, err := entity.ParseSeverity(fields["severity"].GetStringValue())
	if err != nil {
		return nil, err
	}

	confidence := fields["confidence"].GetNumberValue()
	if math.IsNaN(confidence) {
		return nil, fmt.Errorf("confidence is not a number")
	}

	result := &entity.DetectionResult{
		ID:          fields["id"].GetStringValue(),
		DiseaseName: fields["disease_name"].GetStringValue(),
		Description: fields["description"].GetStringValue(),
		Confidence:  int(math.Round(confidence)),
		Severity:    severity,
	}

	if raw := fields["detected_at"].GetStringValue(); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("detected_at: %w", err)
		}
		result.DetectedAt = ts.UTC()
	}

	for _, v := range fields["suggestions"].GetListValue().GetValues() {
		s := v.GetStructValue().GetFields()
		result.Suggestions = append(result.Suggestions, entity.Suggestion{
			Name:        s["name"].GetStringValue(),
			Description: s["description"].GetStringValue(),
			Application: s["application"].GetStringValue(),
			SafetyNote:  s["safety_note"].GetStringValue(),
		})
	}
	return result, nil
}

var _ port.Detector = (*Detector)(nil)
