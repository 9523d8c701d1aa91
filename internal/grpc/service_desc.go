package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name, also used for health checks.
const ServiceName = "reports.v1.ReportService"

// ReportServiceServer is implemented by GRPCHandlers. Every method takes and
// returns a google.protobuf.Struct.
type ReportServiceServer interface {
	CollectIndex(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CommonGroups(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CommonReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveSurveyID(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HeatMap(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LatestSnapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(ReportServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodHandler(name string, call unaryMethod) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReportServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ReportServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ReportServiceDesc describes the report service without generated stubs.
var ReportServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReportServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CollectIndex", Handler: methodHandler("CollectIndex", ReportServiceServer.CollectIndex)},
		{MethodName: "CommonGroups", Handler: methodHandler("CommonGroups", ReportServiceServer.CommonGroups)},
		{MethodName: "CommonReport", Handler: methodHandler("CommonReport", ReportServiceServer.CommonReport)},
		{MethodName: "ResolveSurveyID", Handler: methodHandler("ResolveSurveyID", ReportServiceServer.ResolveSurveyID)},
		{MethodName: "HeatMap", Handler: methodHandler("HeatMap", ReportServiceServer.HeatMap)},
		{MethodName: "LatestSnapshot", Handler: methodHandler("LatestSnapshot", ReportServiceServer.LatestSnapshot)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reports/v1/report_service.proto",
}

func RegisterReportServiceServer(s grpc.ServiceRegistrar, srv ReportServiceServer) {
	s.RegisterService(&ReportServiceDesc, srv)
}

// ReportServiceClient calls the report service over an existing connection.
type ReportServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewReportServiceClient(cc grpc.ClientConnInterface) *ReportServiceClient {
	return &ReportServiceClient{cc: cc}
}

// Call invokes method (for example "HeatMap") with the given request fields.
func (c *ReportServiceClient) Call(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
