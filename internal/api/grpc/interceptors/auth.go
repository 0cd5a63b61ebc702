package interceptors

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"markdown-notes/internal/auth"
	notedbv1 "markdown-notes/pkg/notedbv1"
)

// TokenVerifier проверяет id-токен и возвращает uid
type TokenVerifier interface {
	Verify(idToken string) (string, error)
}

// Auth проверяет api key проекта и id-токен пользователя
type Auth struct {
	verifier TokenVerifier
	apiKeys  []string
}

// NewAuth создает интерцепторы авторизации. Пустой список ключей отключает проверку api key.
func NewAuth(verifier TokenVerifier, apiKeys []string) *Auth {
	return &Auth{verifier: verifier, apiKeys: apiKeys}
}

// Unary проверяет запрос и кладет uid в контекст.
// Методы AuthService требуют только api key: личность у вызывающего еще не установлена.
func (a *Auth) Unary(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.Unauthenticated, "metadata not provided")
	}

	needIdentity := !strings.HasPrefix(info.FullMethod, "/"+notedbv1.AuthServiceName+"/")
	uid, err := a.Check(md, needIdentity)
	if err != nil {
		return nil, err
	}
	if !needIdentity {
		return handler(ctx, req)
	}

	return handler(auth.WithUID(ctx, uid), req)
}

// Stream делает то же самое для потоковых методов
func (a *Auth) Stream(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	md, ok := metadata.FromIncomingContext(ss.Context())
	if !ok {
		return status.Errorf(codes.Unauthenticated, "metadata not provided")
	}

	uid, err := a.Check(md, true)
	if err != nil {
		return err
	}

	return handler(srv, &identifiedServerStream{
		ServerStream: ss,
		ctx:          auth.WithUID(ss.Context(), uid),
	})
}

// Check проверяет api key и, если нужна личность, id-токен. Возвращает uid.
// Ошибки - gRPC статусы codes.Unauthenticated.
func (a *Auth) Check(md metadata.MD, needIdentity bool) (string, error) {
	if err := a.checkAPIKey(md); err != nil {
		return "", err
	}
	if !needIdentity {
		return "", nil
	}
	return a.identify(md)
}

func (a *Auth) checkAPIKey(md metadata.MD) error {
	if len(a.apiKeys) == 0 {
		return nil
	}

	keys := md.Get(notedbv1.APIKeyHeader)
	if len(keys) == 0 {
		return status.Errorf(codes.Unauthenticated, "api key not provided")
	}

	for _, allowed := range a.apiKeys {
		if subtle.ConstantTimeCompare([]byte(keys[0]), []byte(allowed)) == 1 {
			return nil
		}
	}
	return status.Errorf(codes.Unauthenticated, "invalid api key")
}

func (a *Auth) identify(md metadata.MD) (string, error) {
	// Получаем значение заголовка authorization
	authHeaders := md.Get(notedbv1.AuthorizationHeader)
	if len(authHeaders) == 0 {
		return "", status.Errorf(codes.Unauthenticated, "authorization header not provided")
	}

	authHeader := authHeaders[0]

	// Проверяем формат токена (должен начинаться с "Bearer ")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", status.Errorf(codes.Unauthenticated, "invalid authorization header format")
	}

	uid, err := a.verifier.Verify(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return "", status.Errorf(codes.Unauthenticated, "invalid token")
	}

	return uid, nil
}

// identifiedServerStream подменяет контекст стрима контекстом с uid
type identifiedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identifiedServerStream) Context() context.Context {
	return s.ctx
}
