package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/storeauth/internal/common"
	"github.com/dmitrijs2005/storeauth/internal/logging"
	"github.com/dmitrijs2005/storeauth/internal/server/auth"
	"github.com/dmitrijs2005/storeauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type fakeResolver struct {
	sess *auth.Session
	err  error

	gotAccess, gotRefresh string
}

func (f *fakeResolver) Resolve(_ context.Context, access, refresh string) (*auth.Session, error) {
	f.gotAccess, f.gotRefresh = access, refresh
	return f.sess, f.err
}

// fakeTransportStream captures headers set through grpc.SetHeader.
type fakeTransportStream struct {
	header metadata.MD
}

func (f *fakeTransportStream) Method() string { return "/test/Method" }
func (f *fakeTransportStream) SetHeader(md metadata.MD) error {
	f.header = metadata.Join(f.header, md)
	return nil
}
func (f *fakeTransportStream) SendHeader(md metadata.MD) error { return f.SetHeader(md) }
func (f *fakeTransportStream) SetTrailer(metadata.MD) error    { return nil }

func newTestServer(r SessionResolver) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", logging.Nop(), r, []string{"/pkg.Service/Public"})
}

func incoming(pairs ...string) (context.Context, *fakeTransportStream) {
	ts := &fakeTransportStream{}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(pairs...))
	return grpc.NewContextWithServerTransportStream(ctx, ts), ts
}

var protected = &grpc.UnaryServerInfo{FullMethod: "/pkg.Service/Protected"}

func TestInterceptor_PublicMethodSkipsResolution(t *testing.T) {
	r := &fakeResolver{err: errors.New("must not be called")}
	s := newTestServer(r)

	resp, err := s.sessionInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/pkg.Service/Public"},
		func(ctx context.Context, req any) (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Empty(t, r.gotAccess)
}

func TestInterceptor_MissingToken(t *testing.T) {
	s := newTestServer(&fakeResolver{})

	_, err := s.sessionInterceptor(context.Background(), nil, protected,
		func(ctx context.Context, req any) (any, error) {
			t.Fatal("handler should not be called when token missing")
			return nil, nil
		})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "missing token", status.Convert(err).Message())
}

func TestInterceptor_AuthFailureIsUnauthenticated(t *testing.T) {
	resolveErr := &auth.AuthError{Kind: auth.KindExpired, Message: "refresh token has expired", Status: 401}
	r := &fakeResolver{err: resolveErr}
	s := newTestServer(r)
	ctx, _ := incoming(common.AccessTokenHeaderName, "a", common.RefreshTokenHeaderName, "r")

	_, err := s.sessionInterceptor(ctx, nil, protected,
		func(ctx context.Context, req any) (any, error) {
			t.Fatal("handler should not be called")
			return nil, nil
		})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "refresh token has expired", status.Convert(err).Message())
	assert.Equal(t, "a", r.gotAccess)
	assert.Equal(t, "r", r.gotRefresh)
}

func TestInterceptor_InternalFailure(t *testing.T) {
	s := newTestServer(&fakeResolver{err: common.ErrorInternal})
	ctx, _ := incoming(common.AccessTokenHeaderName, "a")

	_, err := s.sessionInterceptor(ctx, nil, protected,
		func(ctx context.Context, req any) (any, error) { return nil, nil })
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestInterceptor_SuccessPropagatesSessionAndRelaysTokens(t *testing.T) {
	sess := &auth.Session{
		Person:         &models.Person{ID: 42},
		AccessToken:    "new-access",
		RefreshToken:   "new-refresh",
		State:          auth.StateAuthenticated,
		AccessRenewed:  true,
		RefreshRotated: true,
	}
	s := newTestServer(&fakeResolver{sess: sess})
	ctx, ts := incoming(common.AccessTokenHeaderName, "old-access", common.RefreshTokenHeaderName, "old-refresh")

	var got *auth.Session
	resp, err := s.sessionInterceptor(ctx, nil, protected,
		func(ctx context.Context, req any) (any, error) {
			got, _ = auth.SessionFromContext(ctx)
			return "ok", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.Person.ID)
	assert.Equal(t, []string{"new-access"}, ts.header.Get(common.AccessTokenHeaderName))
	assert.Equal(t, []string{"new-refresh"}, ts.header.Get(common.RefreshTokenHeaderName))
}

func TestInterceptor_UnchangedTokensAreNotRelayed(t *testing.T) {
	sess := &auth.Session{Person: &models.Person{ID: 1}, AccessToken: "a", State: auth.StateAccessValid}
	s := newTestServer(&fakeResolver{sess: sess})
	ctx, ts := incoming(common.AccessTokenHeaderName, "a")

	_, err := s.sessionInterceptor(ctx, nil, protected,
		func(ctx context.Context, req any) (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.Empty(t, ts.header)
}

func TestRenewedTokens(t *testing.T) {
	assert.Nil(t, renewedTokens(&auth.Session{}))

	md := renewedTokens(&auth.Session{AccessToken: "a", AccessRenewed: true})
	assert.Equal(t, []string{"a"}, md.Get(common.AccessTokenHeaderName))
	assert.Empty(t, md.Get(common.RefreshTokenHeaderName))
}
