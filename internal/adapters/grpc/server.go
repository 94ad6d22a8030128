package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/application"
	"github.com/viralforge/mesh/services/core-platform/session-security-service/internal/domain"
)

const (
	serviceName       = "viralforge.auth.v1.AuthInternalService"
	validateTokenPath = "/" + serviceName + "/ValidateToken"
	publicKeysPath    = "/" + serviceName + "/GetPublicKeys"
)

type AuthInternalService interface {
	ValidateToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPublicKeys(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// TokenAuthenticator resolves an access token to the session-backed caller.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (application.Principal, error)
}

type AuthInternalServer struct {
	auth TokenAuthenticator
	jwks func() []map[string]any
}

// NewAuthInternalServer exposes token validation to sibling services.
// jwks may be nil when tokens are signed with a shared secret.
func NewAuthInternalServer(auth TokenAuthenticator, jwks func() []map[string]any) *AuthInternalServer {
	return &AuthInternalServer{auth: auth, jwks: jwks}
}

func Register(server grpc.ServiceRegistrar, svc AuthInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*AuthInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "ValidateToken",
				Handler:    validateTokenHandler(svc),
			},
			{
				MethodName: "GetPublicKeys",
				Handler:    getPublicKeysHandler(svc),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "mesh/contracts/proto/auth/v1/auth_internal.proto",
	}, svc)
}

func (s *AuthInternalServer) ValidateToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token := req.GetFields()["token"].GetStringValue()
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}

	principal, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, toStatus(ctx, "validate_token", err)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"valid":   true,
		"user_id": principal.UserID.String(),
		"email":   principal.Email,
		"role":    principal.Role,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *AuthInternalServer) GetPublicKeys(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	// structpb only accepts []any, not typed slices.
	keys := []any{}
	if s.jwks != nil {
		for _, key := range s.jwks() {
			keys = append(keys, key)
		}
	}
	resp, err := structpb.NewStruct(map[string]any{"keys": keys})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func toStatus(ctx context.Context, operation string, err error) error {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "token expired")
	case errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrSessionInactive),
		errors.Is(err, domain.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "invalid token")
	case errors.Is(err, domain.ErrTwoFactorRequired):
		return status.Error(codes.PermissionDenied, "second factor pending")
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return status.Error(codes.ResourceExhausted, "too many requests")
	default:
		slog.Default().ErrorContext(ctx, "grpc operation failed",
			"service", "session-security-service",
			"module", "grpc",
			"layer", "adapter",
			"operation", operation,
			"outcome", "failure",
			"error", err,
		)
		return status.Error(codes.Internal, "internal error")
	}
}

func validateTokenHandler(svc AuthInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.ValidateToken(ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: validateTokenPath}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.ValidateToken(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

func getPublicKeysHandler(svc AuthInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &emptypb.Empty{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.GetPublicKeys(ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: publicKeysPath}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*emptypb.Empty)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.GetPublicKeys(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
