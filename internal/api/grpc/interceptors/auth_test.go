package interceptors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"markdown-notes/internal/auth"
	notedbv1 "markdown-notes/pkg/notedbv1"
)

type stubVerifier map[string]string

func (s stubVerifier) Verify(token string) (string, error) {
	if uid, ok := s[token]; ok {
		return uid, nil
	}
	return "", errors.New("bad token")
}

type stubStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *stubStream) Context() context.Context { return s.ctx }

func incoming(pairs ...string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(pairs...))
}

var docInfo = &grpc.UnaryServerInfo{FullMethod: notedbv1.DocumentService_SetDocument_FullMethodName}

func TestAuthUnary_PutsUIDInContext(t *testing.T) {
	a := NewAuth(stubVerifier{"tok": "u1"}, []string{"key"})

	var seen string
	_, err := a.Unary(incoming("x-api-key", "key", "authorization", "Bearer tok"), nil, docInfo,
		func(ctx context.Context, req interface{}) (interface{}, error) {
			seen, _ = auth.UIDFromContext(ctx)
			return nil, nil
		})

	require.NoError(t, err)
	assert.Equal(t, "u1", seen)
}

func TestAuthUnary_Rejections(t *testing.T) {
	a := NewAuth(stubVerifier{"tok": "u1"}, []string{"key"})
	never := func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler must not be called")
		return nil, nil
	}

	cases := map[string]context.Context{
		"no metadata":   context.Background(),
		"no api key":    incoming("authorization", "Bearer tok"),
		"wrong api key": incoming("x-api-key", "nope", "authorization", "Bearer tok"),
		"no token":      incoming("x-api-key", "key"),
		"not bearer":    incoming("x-api-key", "key", "authorization", "tok"),
		"bad token":     incoming("x-api-key", "key", "authorization", "Bearer other"),
	}

	for name, ctx := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Unary(ctx, nil, docInfo, never)
			assert.Equal(t, codes.Unauthenticated, status.Code(err))
		})
	}
}

func TestAuthUnary_SignInNeedsOnlyAPIKey(t *testing.T) {
	a := NewAuth(stubVerifier{}, []string{"key"})
	info := &grpc.UnaryServerInfo{FullMethod: notedbv1.AuthService_SignInAnonymously_FullMethodName}

	called := false
	_, err := a.Unary(incoming("x-api-key", "key"), nil, info,
		func(ctx context.Context, req interface{}) (interface{}, error) {
			called = true
			return nil, nil
		})

	require.NoError(t, err)
	assert.True(t, called)
}

func TestAuthStream_WrapsContext(t *testing.T) {
	a := NewAuth(stubVerifier{"tok": "u1"}, nil)
	ss := &stubStream{ctx: incoming("authorization", "Bearer tok")}

	var seen string
	err := a.Stream(nil, ss, &grpc.StreamServerInfo{FullMethod: notedbv1.DocumentService_WatchCollection_FullMethodName},
		func(srv interface{}, stream grpc.ServerStream) error {
			seen, _ = auth.UIDFromContext(stream.Context())
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, "u1", seen)
}
