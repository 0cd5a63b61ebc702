package interceptors

import (
	"context"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"markdown-notes/internal/logger"
)

// LoggerUnaryInterceptor логирует запрос: метод, адрес клиента, статус и время выполнения.
// Стоит первым в цепочке, поэтому видит и запросы, отклоненные авторизацией.
func LoggerUnaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	from := "unknown"
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		from = p.Addr.String()
	}
	logger.Debugf("Incoming request: %s from %s", info.FullMethod, from)

	start := time.Now()
	resp, err := handler(ctx, req)
	duration := time.Since(start)

	if err != nil {
		st, _ := status.FromError(err)
		log.Printf("Request %s from %s failed with status %s: %v (duration: %v)",
			info.FullMethod, from, st.Code(), st.Message(), duration)
	} else {
		log.Printf("Request %s from %s completed successfully (duration: %v)",
			info.FullMethod, from, duration)
	}

	return resp, err
}
