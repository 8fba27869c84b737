// Package grpc exposes the gRPC transport. Every non-public method passes
// through the session interceptors, which resolve the caller's identity and
// relay renewed tokens back in response header metadata.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/storeauth/internal/logging"
	"github.com/dmitrijs2005/storeauth/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SessionResolver is the part of auth.SessionResolver the transport needs.
type SessionResolver interface {
	Resolve(ctx context.Context, accessToken, refreshToken string) (*auth.Session, error)
}

// DefaultPublicMethods may be called without tokens.
var DefaultPublicMethods = []string{
	healthpb.Health_Check_FullMethodName,
	healthpb.Health_Watch_FullMethodName,
}

type GRPCServer struct {
	address  string
	resolver SessionResolver
	logger   logging.Logger
	public   map[string]bool
	services []func(grpc.ServiceRegistrar)
}

// NewGRPCServer builds a server listening on a. Business services are added
// through register; the health service is always present.
func NewGRPCServer(a string, l logging.Logger, resolver SessionResolver, publicMethods []string, register ...func(grpc.ServiceRegistrar)) *GRPCServer {
	public := make(map[string]bool, len(publicMethods))
	for _, m := range publicMethods {
		public[m] = true
	}
	return &GRPCServer{
		address:  a,
		resolver: resolver,
		logger:   l.With("module", "grpc_server"),
		public:   public,
		services: register,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.sessionInterceptor),
		grpc.ChainStreamInterceptor(s.sessionStreamInterceptor),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	for _, register := range s.services {
		register(srv)
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
