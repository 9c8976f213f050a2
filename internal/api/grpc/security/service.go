package security

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "catpoint.v1.SecurityService"

// Full method names.
const (
	GetStatusMethod              = "/" + ServiceName + "/GetStatus"
	SetArmingStatusMethod        = "/" + ServiceName + "/SetArmingStatus"
	SetAlarmStatusMethod         = "/" + ServiceName + "/SetAlarmStatus"
	ListSensorsMethod            = "/" + ServiceName + "/ListSensors"
	AddSensorMethod              = "/" + ServiceName + "/AddSensor"
	RemoveSensorMethod           = "/" + ServiceName + "/RemoveSensor"
	ChangeSensorActivationMethod = "/" + ServiceName + "/ChangeSensorActivation"
	ProcessImageMethod           = "/" + ServiceName + "/ProcessImage"
	WatchStatusMethod            = "/" + ServiceName + "/WatchStatus"
)

// SecurityServiceServer is the server API of the security service.
type SecurityServiceServer interface {
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	SetArmingStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SetAlarmStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListSensors(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	AddSensor(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	RemoveSensor(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	ChangeSensorActivation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ProcessImage(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error)
	WatchStatus(req *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error
}

// ServiceDesc describes the security service for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Registered once at startup.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SecurityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: unaryHandler(GetStatusMethod, SecurityServiceServer.GetStatus)},
		{MethodName: "SetArmingStatus", Handler: unaryHandler(SetArmingStatusMethod, SecurityServiceServer.SetArmingStatus)},
		{MethodName: "SetAlarmStatus", Handler: unaryHandler(SetAlarmStatusMethod, SecurityServiceServer.SetAlarmStatus)},
		{MethodName: "ListSensors", Handler: unaryHandler(ListSensorsMethod, SecurityServiceServer.ListSensors)},
		{MethodName: "AddSensor", Handler: unaryHandler(AddSensorMethod, SecurityServiceServer.AddSensor)},
		{MethodName: "RemoveSensor", Handler: unaryHandler(RemoveSensorMethod, SecurityServiceServer.RemoveSensor)},
		{
			MethodName: "ChangeSensorActivation",
			Handler:    unaryHandler(ChangeSensorActivationMethod, SecurityServiceServer.ChangeSensorActivation),
		},
		{MethodName: "ProcessImage", Handler: unaryHandler(ProcessImageMethod, SecurityServiceServer.ProcessImage)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchStatus",
			Handler:       watchStatusHandler,
			ServerStreams: true,
		},
	},
}

// RegisterSecurityServiceServer registers srv with the gRPC server.
func RegisterSecurityServiceServer(registrar grpc.ServiceRegistrar, srv SecurityServiceServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

// unaryHandler adapts a server method to grpc.MethodHandler.
func unaryHandler[Req, Res any](
	fullMethod string,
	call func(SecurityServiceServer, context.Context, *Req) (*Res, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(SecurityServiceServer)

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			typed, _ := req.(*Req)

			return call(server, ctx, typed)
		}

		return interceptor(ctx, in, info, handler)
	}
}

// watchStatusHandler adapts WatchStatus to grpc.StreamHandler.
func watchStatusHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	server, _ := srv.(SecurityServiceServer)

	return server.WatchStatus(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}
