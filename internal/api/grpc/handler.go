package grpc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"markdown-notes/internal/auth"
	"markdown-notes/internal/converter"
	"markdown-notes/internal/model"
	"markdown-notes/internal/repository"
	svc "markdown-notes/internal/service"
	"markdown-notes/internal/service/documents"
	notedbv1 "markdown-notes/pkg/notedbv1"
)

const errorDomain = "notedb"

// Handler реализует gRPC сервер для AuthService и DocumentService
type Handler struct {
	documentService svc.DocumentService
	issuer          *auth.Issuer

	// Контекст сервера: стримы завершаются при его отмене (graceful shutdown)
	serverCtx context.Context
}

var (
	_ notedbv1.AuthServiceServer     = (*Handler)(nil)
	_ notedbv1.DocumentServiceServer = (*Handler)(nil)
)

// NewHandler создает новый экземпляр gRPC хэндлера
func NewHandler(documentService svc.DocumentService, issuer *auth.Issuer, serverCtx context.Context) *Handler {
	if serverCtx == nil {
		serverCtx = context.Background()
	}
	return &Handler{
		documentService: documentService,
		issuer:          issuer,
		serverCtx:       serverCtx,
	}
}

// SignInAnonymously заводит анонимного пользователя
func (h *Handler) SignInAnonymously(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	uid, idToken, err := h.issuer.SignInAnonymously()
	if err != nil {
		return nil, handleError(err)
	}
	return notedbv1.Identity(uid, idToken), nil
}

// SignInWithCustomToken обменивает custom-токен на id-токен
func (h *Handler) SignInWithCustomToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token := req.GetFields()["token"].GetStringValue()
	if token == "" {
		return nil, handleError(errors.New("token cannot be empty"))
	}

	uid, idToken, err := h.issuer.SignInWithCustomToken(token)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "custom token rejected: %v", err)
	}
	return notedbv1.Identity(uid, idToken), nil
}

// SetDocument записывает документ. При "exists": true документ должен
// существовать (слияние без создания), иначе NotFound.
func (h *Handler) SetDocument(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	uid, err := auth.UIDFromContext(ctx)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	f := req.GetFields()
	doc := model.Document{
		ID:   f["id"].GetStringValue(),
		Data: f["data"].GetStructValue().AsMap(),
	}

	path := f["path"].GetStringValue()
	if f["exists"].GetBoolValue() {
		err = h.documentService.Update(ctx, uid, path, doc)
	} else {
		err = h.documentService.Set(ctx, uid, path, doc, f["merge"].GetBoolValue())
	}
	if err != nil {
		return nil, handleError(err)
	}

	return &emptypb.Empty{}, nil
}

// DeleteDocument удаляет документ
func (h *Handler) DeleteDocument(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	uid, err := auth.UIDFromContext(ctx)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	f := req.GetFields()
	if err := h.documentService.Delete(ctx, uid, f["path"].GetStringValue(), f["id"].GetStringValue()); err != nil {
		return nil, handleError(err)
	}

	return &emptypb.Empty{}, nil
}

// ListDocuments возвращает снимок коллекции
func (h *Handler) ListDocuments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	uid, err := auth.UIDFromContext(ctx)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	docs, err := h.documentService.List(ctx, uid, req.GetFields()["path"].GetStringValue())
	if err != nil {
		return nil, handleError(err)
	}

	resp, err := converter.DocumentsToProto(docs)
	if err != nil {
		return nil, handleError(err)
	}
	return resp, nil
}

// WatchCollection отправляет полный снимок коллекции на каждое изменение
func (h *Handler) WatchCollection(req *structpb.Struct, stream notedbv1.DocumentService_WatchCollectionServer) error {
	ctx := stream.Context()
	uid, err := auth.UIDFromContext(ctx)
	if err != nil {
		return status.Error(codes.Unauthenticated, err.Error())
	}

	snapshots, cancel, err := h.documentService.Watch(ctx, uid, req.GetFields()["path"].GetStringValue())
	if err != nil {
		return handleError(err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.serverCtx.Done():
			return status.Error(codes.Unavailable, "server is shutting down")
		case docs, ok := <-snapshots:
			if !ok {
				return nil
			}
			msg, err := converter.DocumentsToProto(docs)
			if err != nil {
				return handleError(err)
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

// handleError конвертирует внутренние ошибки в gRPC статусы с детализацией
func handleError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, repository.ErrDocumentNotFound) {
		return withInfo(codes.NotFound, "document not found", "NOT_FOUND", err)
	}

	if errors.Is(err, documents.ErrPermissionDenied) {
		return withInfo(codes.PermissionDenied, "permission denied", "PERMISSION_DENIED", err)
	}

	if errors.Is(err, notedbv1.ErrInvalidPath) {
		return withInfo(codes.InvalidArgument, err.Error(), "VALIDATION_ERROR", err)
	}

	// Проверяем ошибки валидации (содержат "cannot be empty")
	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "cannot be empty") || strings.Contains(errMsg, "invalid") {
		return withInfo(codes.InvalidArgument, err.Error(), "VALIDATION_ERROR", err)
	}

	// Все остальные ошибки - Internal
	return withInfo(codes.Internal, "internal error", "INTERNAL_ERROR", err)
}

func withInfo(code codes.Code, msg, reason string, err error) error {
	st := status.New(code, msg)
	info := &errdetails.ErrorInfo{
		Reason: reason,
		Domain: errorDomain,
		Metadata: map[string]string{
			"cause": fmt.Sprintf("%v", err),
		},
	}
	withDetails, detailsErr := st.WithDetails(info)
	if detailsErr != nil {
		// Если не удалось добавить Details, просто возвращаем ошибку без деталей
		return st.Err()
	}
	return withDetails.Err()
}
