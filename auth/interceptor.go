package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Methods that do not require a bearer token.
var publicMethods = map[string]struct{}{
	grpc_health_v1.Health_Check_FullMethodName: {},
	grpc_health_v1.Health_List_FullMethodName:  {},
	grpc_health_v1.Health_Watch_FullMethodName: {},
}

// UnaryInterceptor handles JWT validation for incoming gRPC calls.
func UnaryInterceptor(tokens *TokenIssuer) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if isPublicMethod(info.FullMethod) {
			return handler(ctx, req)
		}
		newCtx, err := authenticate(ctx, tokens)
		if err != nil {
			return nil, err
		}
		return handler(newCtx, req)
	}
}

// StreamInterceptor is UnaryInterceptor for streams: the handler sees the
// enriched context through the wrapped stream.
func StreamInterceptor(tokens *TokenIssuer) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if isPublicMethod(info.FullMethod) {
			return handler(srv, ss)
		}
		newCtx, err := authenticate(ss.Context(), tokens)
		if err != nil {
			return err
		}
		return handler(srv, &authenticatedStream{ServerStream: ss, ctx: newCtx})
	}
}

type authenticatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authenticatedStream) Context() context.Context {
	return s.ctx
}

func authenticate(ctx context.Context, tokens *TokenIssuer) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "metadata is missing")
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, status.Error(codes.Unauthenticated, "authorization token is missing")
	}
	claims, err := tokens.ValidateToken(strings.TrimPrefix(values[0], "Bearer "))
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid subject")
	}
	newCtx := context.WithValue(ctx, UserIDKey, userID)
	newCtx = context.WithValue(newCtx, RolesKey, claims.Roles)
	return newCtx, nil
}

func isPublicMethod(method string) bool {
	_, ok := publicMethods[method]
	return ok
}
