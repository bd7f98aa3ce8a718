package inference

import (
	"context"
	"encoding/base64"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"maize-bot/internal/domain/entity"
)

type inferenceServer interface {
	Detect(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type fakeServer struct {
	handle func(*structpb.Struct) (*structpb.Struct, error)
}

func (f *fakeServer) Detect(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return f.handle(req)
}

var inferenceServiceDesc = grpc.ServiceDesc{
	ServiceName: "maize.inference.v1.Inference",
	HandlerType: (*inferenceServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Detect",
		Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			in := &structpb.Struct{}
			if err := dec(in); err != nil {
				return nil, err
			}
			return srv.(inferenceServer).Detect(ctx, in)
		},
	}},
	Streams: []grpc.StreamDesc{},
}

func startServer(t *testing.T, impl *fakeServer) *Detector {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	srv.RegisterService(&inferenceServiceDesc, impl)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewDetector(conn, zap.NewNop())
}

func leafImage() *entity.ImageHandle {
	return entity.NewImageHandle([]byte("leaf-bytes"), "image/jpeg", "leaf.jpg", "file-7", nil)
}

func TestDetectorSuccess(t *testing.T) {
	var got *structpb.Struct
	d := startServer(t, &fakeServer{handle: func(req *structpb.Struct) (*structpb.Struct, error) {
		got = req
		return structpb.NewStruct(map[string]any{
			"id":           "det-1",
			"disease_name": "Common Rust",
			"description":  "pustules",
			"confidence":   86.6,
			"severity":     "mild",
			"detected_at":  "2024-05-01T10:00:00Z",
			"suggestions": []any{
				map[string]any{"name": "Mancozeb", "description": "Protective fungicide", "application": "spray", "safety_note": "gloves"},
			},
		})
	}})

	res, err := d.Detect(context.Background(), leafImage())
	require.NoError(t, err)
	require.Equal(t, "det-1", res.ID)
	require.Equal(t, "Common Rust", res.DiseaseName)
	require.Equal(t, 87, res.Confidence)
	require.Equal(t, entity.SeverityMild, res.Severity)
	require.Equal(t, "file-7", res.ImageRef)
	require.Len(t, res.Suggestions, 1)
	require.Equal(t, "gloves", res.Suggestions[0].SafetyNote)
	require.Equal(t, 2024, res.DetectedAt.Year())

	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("leaf-bytes")), got.GetFields()["image"].GetStringValue())
	require.Equal(t, "image/jpeg", got.GetFields()["mime_type"].GetStringValue())
}

func TestDetectorRejectsInvalidResult(t *testing.T) {
	d := startServer(t, &fakeServer{handle: func(*structpb.Struct) (*structpb.Struct, error) {
		return structpb.NewStruct(map[string]any{
			"disease_name": "Common Rust",
			"confidence":   140,
			"severity":     "Mild",
		})
	}})

	_, err := d.Detect(context.Background(), leafImage())
	require.Error(t, err)
}

func TestDetectorRejectsUnknownSeverity(t *testing.T) {
	d := startServer(t, &fakeServer{handle: func(*structpb.Struct) (*structpb.Struct, error) {
		return structpb.NewStruct(map[string]any{
			"disease_name": "Common Rust",
			"confidence":   80,
			"severity":     "critical",
		})
	}})

	_, err := d.Detect(context.Background(), leafImage())
	require.Error(t, err)
}

func TestDetectorPropagatesServerError(t *testing.T) {
	d := startServer(t, &fakeServer{handle: func(*structpb.Struct) (*structpb.Struct, error) {
		return nil, status.Error(codes.Unavailable, "model is loading")
	}})

	_, err := d.Detect(context.Background(), leafImage())
	require.Error(t, err)
	require.Contains(t, err.Error(), "model is loading")
}
