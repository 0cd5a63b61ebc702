package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/grpc"

	"markdown-notes/internal/api/gateway"
	grpcapi "markdown-notes/internal/api/grpc"
	"markdown-notes/internal/api/grpc/interceptors"
	"markdown-notes/internal/auth"
	"markdown-notes/internal/config"
	"markdown-notes/internal/repository"
	"markdown-notes/internal/repository/memory"
	"markdown-notes/internal/repository/sqlite"
	"markdown-notes/internal/service/documents"
)

// Server представляет сервер notedb с gRPC и HTTP Gateway
type Server struct {
	// HTTP компоненты
	HTTPServer *http.Server
	HTTPAddr   string

	// gRPC компоненты
	GRPCServer *grpc.Server
	GRPCAddr   string
	Listener   net.Listener

	// Контекст сервера для graceful shutdown стримов.
	// Отменяется при shutdown: стримы и WebSocket соединения слушают его явно
	Ctx    context.Context
	Cancel context.CancelFunc

	Config *config.ServerConfig

	repo repository.DocumentRepository
}

// NewServer создает сервер и занимает порт gRPC
func NewServer(cfg *config.ServerConfig) (*Server, error) {
	grpcAddr := "0.0.0.0:" + strconv.Itoa(cfg.Server.PortGRPC)
	httpAddr := "0.0.0.0:" + strconv.Itoa(cfg.Server.PortHTTP)

	log.Printf("📋 Config loaded: gRPC port=%d, HTTP port=%d, storage=%s",
		cfg.Server.PortGRPC, cfg.Server.PortHTTP, cfg.Storage.Driver)

	listener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())

	return &Server{
		HTTPAddr: httpAddr,
		GRPCAddr: grpcAddr,
		Listener: listener,
		Ctx:      serverCtx,
		Cancel:   serverCancel,
		Config:   cfg,
	}, nil
}

// Initialize инициализирует компоненты сервера (Repository → Service → Handler)
func (s *Server) Initialize() error {
	repo, err := newRepository(s.Config.Storage)
	if err != nil {
		return err
	}
	s.repo = repo

	issuer, err := auth.NewIssuer(s.Config.Auth.Secret, s.Config.Auth.Issuer,
		time.Duration(s.Config.Auth.TokenTTL)*time.Minute)
	if err != nil {
		return fmt.Errorf("init issuer: %w", err)
	}

	apiKeys := s.Config.Auth.Keys()
	if len(apiKeys) == 0 {
		log.Printf("⚠️  Warning: no api keys configured, api key check is disabled")
	}
	authz := interceptors.NewAuth(issuer, apiKeys)

	documentSvc := documents.NewDocumentService(repo, documents.NewEventService())
	log.Println("Initialized document service")

	handler := grpcapi.NewHandler(documentSvc, issuer, s.Ctx)
	s.GRPCServer = grpcapi.NewServer(handler, authz, s.Config.Server.UseReflection)

	gw := gateway.New(documentSvc, issuer, authz, s.Config.Gateway, s.Ctx)
	s.HTTPServer = &http.Server{
		Addr:              s.HTTPAddr,
		Handler:           gw.Handler(),
		ReadTimeout:       seconds(s.Config.Server.HTTPReadTimeout),
		WriteTimeout:      seconds(s.Config.Server.HTTPWriteTimeout),
		IdleTimeout:       seconds(s.Config.Server.HTTPIdleTimeout),
		ReadHeaderTimeout: seconds(s.Config.Server.HTTPReadHeaderTimeout),
	}

	return nil
}

// Start запускает gRPC и HTTP Gateway серверы в горутинах
// Возвращает канал ошибок для отслеживания ошибок серверов
func (s *Server) Start() <-chan error {
	errChan := make(chan error, 2)

	go func() {
		log.Printf("gRPC server listening on %s", s.GRPCAddr)
		if err := s.GRPCServer.Serve(s.Listener); err != nil {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		log.Printf("HTTP Gateway server listening on %s", s.HTTPAddr)
		log.Printf("CORS enabled for origins: %s", s.Config.Gateway.CORSAllowedOrigins)
		if err := s.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP Gateway error: %w", err)
		}
	}()

	return errChan
}

// Shutdown выполняет graceful shutdown сервера
func (s *Server) Shutdown() error {
	log.Println("Starting graceful shutdown...")

	// Контекст сервера отменяется ПЕРЕД GracefulStop(): иначе GracefulStop
	// будет бесконечно ждать стримы WatchCollection
	log.Println("Cancelling server context to signal streaming methods to stop...")
	s.Cancel()

	shutdownTimeout := time.Duration(s.Config.Server.GracefulShutdownTimeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if s.HTTPServer != nil {
		if err := s.HTTPServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}

	stopped := make(chan struct{})
	go func() {
		s.GRPCServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Println("gRPC server stopped gracefully")
	case <-ctx.Done():
		log.Println("Graceful shutdown timeout, forcing stop...")
		s.GRPCServer.Stop()
		log.Println("gRPC server stopped forcefully")
		errs = append(errs, ctx.Err())
	}

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close repository: %w", err))
		}
	}

	return errors.Join(errs...)
}

func newRepository(cfg *config.ConfigStorage) (repository.DocumentRepository, error) {
	switch cfg.Driver {
	case "memory":
		log.Println("Initialized in-memory repository (map-based)")
		return memory.NewRepository(), nil
	case "sqlite":
		repo, err := sqlite.NewRepository(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("init sqlite repository: %w", err)
		}
		log.Printf("Initialized sqlite repository at %s", cfg.DSN)
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
