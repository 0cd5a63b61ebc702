package gateway

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"markdown-notes/internal/api/grpc/interceptors"
	"markdown-notes/internal/api/http/middleware"
	"markdown-notes/internal/auth"
	"markdown-notes/internal/config"
	"markdown-notes/internal/converter"
	"markdown-notes/internal/repository"
	svc "markdown-notes/internal/service"
	"markdown-notes/internal/service/documents"
	notedbv1 "markdown-notes/pkg/notedbv1"
)

const writeWait = 10 * time.Second

// Gateway HTTP доступ к notedb для браузерных клиентов:
//
//	GET  /healthz
//	POST /v1/auth/anonymous
//	GET  /v1/documents?path=...
//	GET  /v1/watch?path=...   (WebSocket, полный снимок на каждое изменение)
type Gateway struct {
	documentService svc.DocumentService
	issuer          *auth.Issuer
	authz           *interceptors.Auth
	cfg             *config.ConfigGateway

	// Контекст сервера: WebSocket соединения закрываются при его отмене
	serverCtx context.Context
	upgrader  websocket.Upgrader
}

// New создает HTTP Gateway поверх того же сервиса, что и gRPC хэндлер
func New(documentService svc.DocumentService, issuer *auth.Issuer, authz *interceptors.Auth, cfg *config.ConfigGateway, serverCtx context.Context) *Gateway {
	if serverCtx == nil {
		serverCtx = context.Background()
	}
	g := &Gateway{
		documentService: documentService,
		issuer:          issuer,
		authz:           authz,
		cfg:             cfg,
		serverCtx:       serverCtx,
	}
	// Источник проверяет CORS слой, апгрейдер принимает все
	g.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	return g
}

// Handler собирает маршруты и middleware
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", g.healthz)
	mux.HandleFunc("POST /v1/auth/anonymous", g.signInAnonymously)
	mux.HandleFunc("GET /v1/documents", g.listDocuments)
	mux.HandleFunc("GET /v1/watch", g.watch)

	// Применение middleware (в обратном порядке выполнения):
	// CORS -> Logging -> Rate Limiting -> mux
	var handler http.Handler = mux
	handler = middleware.RateLimit(handler, g.cfg.RateLimitRPS, g.cfg.RateLimitBurst)
	handler = middleware.Logging(handler)
	handler = setupCORS(g.cfg).Handler(handler)

	return handler
}

func (g *Gateway) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (g *Gateway) signInAnonymously(w http.ResponseWriter, r *http.Request) {
	if _, err := g.authz.Check(requestMetadata(r), false); err != nil {
		writeError(w, err)
		return
	}

	uid, idToken, err := g.issuer.SignInAnonymously()
	if err != nil {
		writeError(w, err)
		return
	}

	writeProto(w, notedbv1.Identity(uid, idToken))
}

func (g *Gateway) listDocuments(w http.ResponseWriter, r *http.Request) {
	uid, err := g.authz.Check(requestMetadata(r), true)
	if err != nil {
		writeError(w, err)
		return
	}

	docs, err := g.documentService.List(r.Context(), uid, r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}

	msg, err := converter.DocumentsToProto(docs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeProto(w, msg)
}

func (g *Gateway) watch(w http.ResponseWriter, r *http.Request) {
	uid, err := g.authz.Check(requestMetadata(r), true)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancelCtx := context.WithCancel(r.Context())
	defer cancelCtx()

	snapshots, cancel, err := g.documentService.Watch(ctx, uid, r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		log.Printf("[HTTP] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("🚀 [WS] watch started for uid=%s", uid)

	// Клиент ничего не присылает; чтение нужно, чтобы заметить закрытие соединения
	go func() {
		defer cancelCtx()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Printf("✅ [WS] watch closed by client uid=%s", uid)
			return
		case <-g.serverCtx.Done():
			log.Printf("🛑 [WS] server shutting down, closing watch uid=%s", uid)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server is shutting down"),
				time.Now().Add(writeWait))
			return
		case docs, ok := <-snapshots:
			if !ok {
				return
			}
			msg, err := converter.DocumentsToProto(docs)
			if err != nil {
				log.Printf("❌ [WS] convert snapshot: %v", err)
				return
			}
			payload, err := protojson.Marshal(msg)
			if err != nil {
				log.Printf("❌ [WS] marshal snapshot: %v", err)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("❌ [WS] send snapshot: %v", err)
				return
			}
		}
	}
}

// requestMetadata переносит заголовки авторизации HTTP в gRPC metadata.
// Браузер не может выставить заголовки WebSocket запроса, поэтому
// токен и ключ также принимаются из query (access_token, key).
func requestMetadata(r *http.Request) metadata.MD {
	md := metadata.New(nil)

	if v := r.Header.Get("Authorization"); v != "" {
		md.Set(notedbv1.AuthorizationHeader, v)
	} else if v := r.URL.Query().Get("access_token"); v != "" {
		md.Set(notedbv1.AuthorizationHeader, "Bearer "+v)
	}

	if v := r.Header.Get("X-Api-Key"); v != "" {
		md.Set(notedbv1.APIKeyHeader, v)
	} else if v := r.URL.Query().Get("key"); v != "" {
		md.Set(notedbv1.APIKeyHeader, v)
	}

	return md
}

func writeProto(w http.ResponseWriter, msg proto.Message) {
	payload, err := protojson.Marshal(msg)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

// writeError переводит ошибку в HTTP статус
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case status.Code(err) == codes.Unauthenticated:
		code, msg = http.StatusUnauthorized, status.Convert(err).Message()
	case errors.Is(err, repository.ErrDocumentNotFound):
		code, msg = http.StatusNotFound, "document not found"
	case errors.Is(err, documents.ErrPermissionDenied):
		code, msg = http.StatusForbidden, "permission denied"
	case errors.Is(err, notedbv1.ErrInvalidPath),
		strings.Contains(strings.ToLower(err.Error()), "cannot be empty"):
		code, msg = http.StatusBadRequest, err.Error()
	default:
		log.Printf("[HTTP] internal error: %v", err)
	}

	http.Error(w, msg, code)
}

// setupCORS настраивает CORS middleware используя конфигурацию
func setupCORS(cfg *config.ConfigGateway) *cors.Cors {
	origins := strings.Split(cfg.CORSAllowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	maxAge := cfg.CORSMaxAge
	if maxAge == 0 {
		maxAge = 86400 // 24 часа по умолчанию
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			"X-Api-Key",
			"X-Requested-With",
		},
		AllowCredentials: true,
		MaxAge:           maxAge,
	})
}
