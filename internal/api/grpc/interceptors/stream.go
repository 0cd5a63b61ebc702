package interceptors

import (
	"io"
	"log"

	"google.golang.org/grpc"

	"markdown-notes/internal/logger"
)

// wrappedServerStream оборачивает grpc.ServerStream и считает отправленные снимки
type wrappedServerStream struct {
	grpc.ServerStream
	sent int
}

// RecvMsg логирует входящие сообщения
func (w *wrappedServerStream) RecvMsg(m interface{}) error {
	err := w.ServerStream.RecvMsg(m)
	switch {
	case err == nil:
		logger.Debugf("📥 Stream RecvMsg: received message of type %T", m)
	case err == io.EOF:
		logger.Debugf("📥 Stream RecvMsg: received EOF (stream closed)")
	default:
		log.Printf("📥 Stream RecvMsg error: %v", err)
	}
	return err
}

// SendMsg логирует исходящие сообщения
func (w *wrappedServerStream) SendMsg(m interface{}) error {
	err := w.ServerStream.SendMsg(m)
	if err != nil {
		log.Printf("📤 Stream SendMsg error: %v", err)
		return err
	}
	w.sent++
	logger.Debugf("📤 Stream SendMsg: snapshot #%d sent", w.sent)
	return nil
}

// StreamInterceptor логирует жизненный цикл стрима и каждое сообщение в нем
// (снимки коллекций WatchCollection идут именно здесь)
func StreamInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	log.Printf("🔌 Stream connection established: %s", info.FullMethod)

	wrapped := &wrappedServerStream{ServerStream: ss}

	err := handler(srv, wrapped)
	if err != nil {
		log.Printf("❌ Stream handler error: %v (method: %s, sent: %d)", err, info.FullMethod, wrapped.sent)
	} else {
		log.Printf("✅ Stream completed successfully: %s (sent: %d)", info.FullMethod, wrapped.sent)
	}

	return err
}
