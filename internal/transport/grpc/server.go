// Package grpc exposes product lookups and stock adjustment over gRPC.
package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	perrors "github.com/dongyi/catalog/internal/errors"
	"github.com/dongyi/catalog/internal/service"
	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ProductService is the subset of the service used over gRPC.
type ProductService interface {
	FindByID(ctx context.Context, id int64) (*service.ProductDto, error)
	AdjustStock(ctx context.Context, items []service.StockAdjustmentDto) error
}

var _ ProductServiceServer = (*Server)(nil)

type Server struct {
	service  ProductService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewServer(service ProductService, logger *slog.Logger) *Server {
	return &Server{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "grpc"),
	}
}

func (s *Server) GetProduct(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	logger := s.logger.With(slog.Int64("product_id", req.GetValue()))
	logger.DebugContext(ctx, "received grpc request GetProduct")
	if req.GetValue() <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "invalid product ID: %d", req.GetValue())
	}

	found, err := s.service.FindByID(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(ctx, logger, "service.FindByID", err)
	}
	product, err := toStruct(found)
	if err != nil {
		logger.ErrorContext(ctx, "failed to encode product", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return product, nil
}

func (s *Server) AdjustStock(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	items, ok := req.GetFields()["items"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, `field "items" is required`)
	}
	var batch service.StockAdjustmentBatch
	raw, err := items.MarshalJSON()
	if err == nil {
		err = json.Unmarshal(raw, &batch.Items)
	}
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid items: %v", err)
	}
	if err := s.validate.Struct(batch); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid items: %v", err)
	}
	logger := s.logger.With(slog.Int("items", len(batch.Items)))
	logger.DebugContext(ctx, "received grpc request AdjustStock")

	if err := s.service.AdjustStock(ctx, batch.Items); err != nil {
		return nil, toStatus(ctx, logger, "service.AdjustStock", err)
	}
	return &emptypb.Empty{}, nil
}

// toStatus maps service errors to gRPC codes, hiding the details of internal failures.
func toStatus(ctx context.Context, logger *slog.Logger, op string, err error) error {
	switch {
	case errors.Is(err, perrors.ErrProductNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, perrors.ErrInsufficientStock):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		logger.ErrorContext(ctx, op+" failed", slog.Any("error", err))
		return status.Error(codes.Internal, "internal server error")
	}
}

// toStruct converts the dto through its JSON form so field names match the REST API.
func toStruct(product *service.ProductDto) (*structpb.Struct, error) {
	raw, err := json.Marshal(product)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}
