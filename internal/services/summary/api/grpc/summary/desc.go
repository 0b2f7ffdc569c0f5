package summary

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "kdd.summary.v1.SummaryService"

// Full method names.
const (
	PreSummarizeMethod  = "/" + ServiceName + "/PreSummarize"
	SummarizeMethod     = "/" + ServiceName + "/Summarize"
	GetSummaryMethod    = "/" + ServiceName + "/GetSummary"
	ListSummariesMethod = "/" + ServiceName + "/ListSummaries"
)

// SummaryServer is the server API of the summary service. Requests and
// responses are schemaless structs so contributions of any data model
// version travel unchanged.
type SummaryServer interface {
	PreSummarize(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Summarize(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSummaries(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes SummaryService for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SummaryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PreSummarize", Handler: unaryHandler(PreSummarizeMethod, SummaryServer.PreSummarize)},
		{MethodName: "Summarize", Handler: unaryHandler(SummarizeMethod, SummaryServer.Summarize)},
		{MethodName: "GetSummary", Handler: unaryHandler(GetSummaryMethod, SummaryServer.GetSummary)},
		{MethodName: "ListSummaries", Handler: unaryHandler(ListSummariesMethod, SummaryServer.ListSummaries)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kdd/summary/v1/summary.proto",
}

// RegisterSummaryServer registers srv on s.
func RegisterSummaryServer(s grpc.ServiceRegistrar, srv SummaryServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(SummaryServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SummaryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SummaryServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client calls SummaryService over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a summary service client.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// PreSummarize calls SummaryService.PreSummarize.
func (c *Client) PreSummarize(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, PreSummarizeMethod, in, opts...)
}

// Summarize calls SummaryService.Summarize.
func (c *Client) Summarize(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SummarizeMethod, in, opts...)
}

// GetSummary calls SummaryService.GetSummary.
func (c *Client) GetSummary(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetSummaryMethod, in, opts...)
}

// ListSummaries calls SummaryService.ListSummaries.
func (c *Client) ListSummaries(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ListSummariesMethod, in, opts...)
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
