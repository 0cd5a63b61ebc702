// Package notedbv1 описывает gRPC API notedb: сервис входа и сервис документов.
// Сообщения - well-known типы protobuf (structpb.Struct, emptypb.Empty),
// поэтому пакет не требует сгенерированных дескрипторов.
package notedbv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	AuthServiceName     = "notedb.v1.AuthService"
	DocumentServiceName = "notedb.v1.DocumentService"

	AuthService_SignInAnonymously_FullMethodName     = "/notedb.v1.AuthService/SignInAnonymously"
	AuthService_SignInWithCustomToken_FullMethodName = "/notedb.v1.AuthService/SignInWithCustomToken"
	DocumentService_SetDocument_FullMethodName       = "/notedb.v1.DocumentService/SetDocument"
	DocumentService_DeleteDocument_FullMethodName    = "/notedb.v1.DocumentService/DeleteDocument"
	DocumentService_ListDocuments_FullMethodName     = "/notedb.v1.DocumentService/ListDocuments"
	DocumentService_WatchCollection_FullMethodName   = "/notedb.v1.DocumentService/WatchCollection"
)

// Заголовки metadata
const (
	AuthorizationHeader = "authorization"
	APIKeyHeader        = "x-api-key"
)

// AuthServiceServer серверная часть сервиса входа.
//
// SignInAnonymously: in {} -> out {"uid", "idToken"}
// SignInWithCustomToken: in {"token"} -> out {"uid", "idToken"}
type AuthServiceServer interface {
	SignInAnonymously(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SignInWithCustomToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// DocumentServiceServer серверная часть сервиса документов.
//
// SetDocument: {"path", "id", "data", "merge", "exists"} -> {}
// (exists=true: документ обязан существовать, иначе NOT_FOUND)
// DeleteDocument: {"path", "id"} -> {}
// ListDocuments: {"path"} -> {"documents": [{"id", "data"}]}
// WatchCollection: {"path"} -> stream {"documents": [...]} (полный снимок на каждое изменение)
type DocumentServiceServer interface {
	SetDocument(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	DeleteDocument(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	ListDocuments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchCollection(*structpb.Struct, DocumentService_WatchCollectionServer) error
}

// DocumentService_WatchCollectionServer серверный поток снимков коллекции
type DocumentService_WatchCollectionServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

// RegisterAuthServiceServer регистрирует сервис входа
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthService_ServiceDesc, srv)
}

// RegisterDocumentServiceServer регистрирует сервис документов
func RegisterDocumentServiceServer(s grpc.ServiceRegistrar, srv DocumentServiceServer) {
	s.RegisterService(&DocumentService_ServiceDesc, srv)
}

// AuthService_ServiceDesc дескриптор сервиса входа
var AuthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SignInAnonymously", Handler: _AuthService_SignInAnonymously_Handler},
		{MethodName: "SignInWithCustomToken", Handler: _AuthService_SignInWithCustomToken_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "notedb/v1/notedb.proto",
}

// DocumentService_ServiceDesc дескриптор сервиса документов
var DocumentService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: DocumentServiceName,
	HandlerType: (*DocumentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SetDocument", Handler: _DocumentService_SetDocument_Handler},
		{MethodName: "DeleteDocument", Handler: _DocumentService_DeleteDocument_Handler},
		{MethodName: "ListDocuments", Handler: _DocumentService_ListDocuments_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchCollection",
			Handler:       _DocumentService_WatchCollection_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "notedb/v1/notedb.proto",
}

func _AuthService_SignInAnonymously_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServiceServer).SignInAnonymously(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuthService_SignInAnonymously_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuthServiceServer).SignInAnonymously(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _AuthService_SignInWithCustomToken_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServiceServer).SignInWithCustomToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuthService_SignInWithCustomToken_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuthServiceServer).SignInWithCustomToken(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _DocumentService_SetDocument_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentServiceServer).SetDocument(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DocumentService_SetDocument_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DocumentServiceServer).SetDocument(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _DocumentService_DeleteDocument_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentServiceServer).DeleteDocument(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DocumentService_DeleteDocument_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DocumentServiceServer).DeleteDocument(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _DocumentService_ListDocuments_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentServiceServer).ListDocuments(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DocumentService_ListDocuments_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DocumentServiceServer).ListDocuments(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _DocumentService_WatchCollection_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(DocumentServiceServer).WatchCollection(m, &documentServiceWatchCollectionServer{stream})
}

type documentServiceWatchCollectionServer struct {
	grpc.ServerStream
}

func (x *documentServiceWatchCollectionServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}
