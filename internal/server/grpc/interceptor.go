package grpc

import (
	"context"

	"github.com/dmitrijs2005/storeauth/internal/common"
	"github.com/dmitrijs2005/storeauth/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) sessionInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.public[info.FullMethod] {
		return handler(ctx, req)
	}

	sess, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if md := renewedTokens(sess); md != nil {
		if err := grpc.SetHeader(ctx, md); err != nil {
			s.logger.Warn(ctx, "cannot relay renewed tokens", "method", info.FullMethod, "error", err)
		}
	}

	return handler(auth.ContextWithSession(ctx, sess), req)
}

func (s *GRPCServer) sessionStreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if s.public[info.FullMethod] {
		return handler(srv, ss)
	}

	sess, err := s.resolve(ss.Context())
	if err != nil {
		return err
	}
	if md := renewedTokens(sess); md != nil {
		if err := ss.SetHeader(md); err != nil {
			s.logger.Warn(ss.Context(), "cannot relay renewed tokens", "method", info.FullMethod, "error", err)
		}
	}

	return handler(srv, &sessionStream{ServerStream: ss, ctx: auth.ContextWithSession(ss.Context(), sess)})
}

// resolve reads the tokens from incoming metadata and maps failures to gRPC
// status errors.
func (s *GRPCServer) resolve(ctx context.Context) (*auth.Session, error) {
	var accessToken, refreshToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		accessToken = first(md, common.AccessTokenHeaderName)
		refreshToken = first(md, common.RefreshTokenHeaderName)
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	sess, err := s.resolver.Resolve(ctx, accessToken, refreshToken)
	if err != nil {
		if ae, ok := auth.AsAuthError(err); ok {
			return nil, status.Error(codes.Unauthenticated, ae.Message)
		}
		s.logger.Error(ctx, "session resolution failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return sess, nil
}

// renewedTokens returns header metadata for the tokens that changed, or nil.
func renewedTokens(sess *auth.Session) metadata.MD {
	var md metadata.MD
	if sess.AccessRenewed {
		md = metadata.Join(md, metadata.Pairs(common.AccessTokenHeaderName, sess.AccessToken))
	}
	if sess.RefreshRotated {
		md = metadata.Join(md, metadata.Pairs(common.RefreshTokenHeaderName, sess.RefreshToken))
	}
	return md
}

func first(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

type sessionStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *sessionStream) Context() context.Context { return s.ctx }
