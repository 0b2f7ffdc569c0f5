// Package server wires the summary runtime and gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"

	"github.com/earthref/KDD/internal/platform/config"
	summaryservice "github.com/earthref/KDD/internal/services/summary/api/grpc/summary"
	summarysqlite "github.com/earthref/KDD/internal/services/summary/storage/sqlite"
	"github.com/earthref/KDD/internal/services/summary/summarizer"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

type serverEnv struct {
	DBPath string `env:"KDD_SUMMARY_DB_PATH"`
	summarizer.Config
}

func loadServerEnv() (serverEnv, error) {
	var cfg serverEnv
	if err := config.ParseEnv(&cfg); err != nil {
		return serverEnv{}, err
	}
	cfg.DBPath = config.DataPath(cfg.DBPath, "summaries.db")
	return cfg, nil
}

// Server hosts the summary gRPC API and storage lifecycle.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      *summarysqlite.Store
}

// New creates a configured summary server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured summary server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	env, err := loadServerEnv()
	if err != nil {
		return nil, err
	}
	engine, err := summarizer.New(env.Config)
	if err != nil {
		return nil, fmt.Errorf("configure summarizer: %w", err)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	store, err := openSummaryStore(env.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	summaryservice.RegisterSummaryServer(grpcServer, summaryservice.NewService(engine, store))
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(summaryservice.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	log.Printf("summary data model %s, store %s", engine.Model().Version, env.DBPath)
	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a summary server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("summary server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	var err error
	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		err = <-serveErr
	case err = <-serveErr:
	}
	if err == nil || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return fmt.Errorf("serve gRPC: %w", err)
}

// Close releases summary server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close summary store: %v", err)
		}
	}
}

func openSummaryStore(path string) (*summarysqlite.Store, error) {
	if err := config.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	store, err := summarysqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open summary sqlite store: %w", err)
	}
	return store, nil
}
