package grpc

import (
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"markdown-notes/internal/api/grpc/interceptors"
	notedbv1 "markdown-notes/pkg/notedbv1"
)

// NewServer создает и настраивает gRPC сервер notedb с интерцепторами и конфигурацией
func NewServer(handler *Handler, authz *interceptors.Auth, useReflection bool) *grpc.Server {
	// Порядок интерцепторов важен:
	// 1. Logger - логирует все запросы (включая заблокированные)
	// 2. Auth - проверяет api key и id-токен, кладет uid в контекст
	grpcServer := grpc.NewServer(
		// Каждый клиент держит один долгий WatchCollection, лимит с запасом
		grpc.MaxConcurrentStreams(100),
		// KeepAlive параметры для защиты от зависших соединений.
		// MaxConnectionAge не задан: он рвал бы долгоживущие подписки.
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: 30 * time.Minute,
			Time:              2 * time.Minute,
			Timeout:           20 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             30 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(
			interceptors.LoggerUnaryInterceptor,
			authz.Unary,
		),
		grpc.ChainStreamInterceptor(
			interceptors.StreamInterceptor,
			authz.Stream,
		),
	)

	notedbv1.RegisterAuthServiceServer(grpcServer, handler)
	notedbv1.RegisterDocumentServiceServer(grpcServer, handler)
	log.Println("Registered AuthService and DocumentService")

	if useReflection {
		reflection.Register(grpcServer)
		log.Println("Enabled gRPC reflection")
	}

	return grpcServer
}
