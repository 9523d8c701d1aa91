package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/godilite/report-collector/internal/collector"
	"github.com/godilite/report-collector/internal/repository"
	"github.com/godilite/report-collector/pkg/reportapi"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const defaultRequestTimeout = 2 * time.Minute

var _ ReportServiceServer = (*GRPCHandlers)(nil)

type GRPCHandlers struct {
	reports   ReportService
	snapshots SnapshotStore
	logger    *zap.Logger
	timeout   time.Duration
}

// NewGRPCHandlers initializes the gRPC handlers. snapshots may be nil when
// persistence is disabled.
func NewGRPCHandlers(reports ReportService, snapshots SnapshotStore, logger *zap.Logger, timeout time.Duration) *GRPCHandlers {
	if reports == nil {
		panic("nil ReportService provided to NewGRPCHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &GRPCHandlers{
		reports:   reports,
		snapshots: snapshots,
		logger:    logger.Named("grpc-handler"),
		timeout:   timeout,
	}
}

func requiredString(req *structpb.Struct, names ...string) ([]string, error) {
	values := make([]string, len(names))
	var missing []string
	for i, name := range names {
		v := strings.TrimSpace(req.GetFields()[name].GetStringValue())
		if v == "" {
			missing = append(missing, name)
			continue
		}
		values[i] = v
	}
	if len(missing) > 0 {
		return nil, status.Errorf(codes.InvalidArgument, "missing required field(s): %s", strings.Join(missing, ", "))
	}
	return values, nil
}

// toStruct renders v through its JSON tags so the gRPC payload matches the CLI output.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	var (
		transportErr *reportapi.TransportError
		statusErr    *reportapi.StatusError
		parseErr     *reportapi.ParseError
		missingErr   *collector.MissingFieldError
		typeErr      *collector.FieldTypeError
	)
	switch {
	case errors.Is(err, repository.ErrSnapshotNotFound):
		s.logger.Info("no snapshot stored", zap.String("op", op))
		return status.Error(codes.NotFound, "no snapshot stored")
	case errors.As(err, &transportErr):
		s.logger.Error("reporting API unreachable", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Unavailable, "reporting API unreachable")
	case errors.As(err, &statusErr):
		s.logger.Error("reporting API rejected request", zap.String("op", op), zap.Int("status", statusErr.StatusCode), zap.Error(err))
		if statusErr.StatusCode == http.StatusNotFound {
			return status.Error(codes.NotFound, "reporting API resource not found")
		}
		return status.Errorf(codes.Unavailable, "reporting API returned status %d", statusErr.StatusCode)
	case errors.As(err, &parseErr), errors.As(err, &missingErr), errors.As(err, &typeErr):
		s.logger.Error("malformed reporting API response", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.DataLoss, "malformed reporting API response: %v", err)
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

func absent(st collector.Status, what string) error {
	if st == collector.StatusEmpty {
		return status.Error(codes.NotFound, "no reports available")
	}
	return status.Errorf(codes.NotFound, "%s not found", what)
}

func (s *GRPCHandlers) CollectIndex(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.reports.CollectIndex(ctx)
	if err != nil {
		return nil, s.handleError(ctx, "CollectIndex", err)
	}
	index, ok := res.Get()
	if !ok {
		return nil, absent(res.Status, "assessment index")
	}
	return toStruct(index)
}

func (s *GRPCHandlers) commonGroups(ctx context.Context, op string) (collector.CommonGroups, error) {
	res, err := s.reports.CollectIndex(ctx)
	if err != nil {
		return nil, s.handleError(ctx, op, err)
	}
	index, ok := res.Get()
	if !ok {
		return nil, absent(res.Status, "assessment index")
	}
	return collector.BuildCommonGroups(index), nil
}

func (s *GRPCHandlers) CommonGroups(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	groups, err := s.commonGroups(ctx, "CommonGroups")
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]any{"groups": groups})
}

func (s *GRPCHandlers) CommonReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	args, err := requiredString(req, "assessment_name")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	groups, err := s.commonGroups(ctx, "CommonReport")
	if err != nil {
		return nil, err
	}

	res, err := s.reports.CommonReport(ctx, args[0], groups)
	if err != nil {
		return nil, s.handleError(ctx, "CommonReport", err)
	}
	report, ok := res.Get()
	if !ok {
		return nil, absent(res.Status, fmt.Sprintf("assessment %q", args[0]))
	}
	return toStruct(report)
}

func (s *GRPCHandlers) ResolveSurveyID(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	args, err := requiredString(req, "assessment_type", "assessment_name", "org_unit_name")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.reports.ResolveSurveyID(ctx, args[0], args[1], args[2])
	if err != nil {
		return nil, s.handleError(ctx, "ResolveSurveyID", err)
	}
	id, ok := res.Get()
	if !ok {
		return nil, absent(res.Status, "survey")
	}
	return toStruct(map[string]string{"survey_id": id})
}

func (s *GRPCHandlers) HeatMap(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	args, err := requiredString(req, "survey_id")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	hm, err := s.reports.HeatMap(ctx, args[0])
	if err != nil {
		return nil, s.handleError(ctx, "HeatMap", err)
	}
	return toStruct(hm)
}

func (s *GRPCHandlers) LatestSnapshot(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.snapshots == nil {
		return nil, status.Error(codes.FailedPrecondition, "snapshots are disabled")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ds, err := s.snapshots.LatestSnapshot(ctx)
	if err != nil {
		return nil, s.handleError(ctx, "LatestSnapshot", err)
	}
	return toStruct(ds)
}
